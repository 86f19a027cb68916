// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/suprsokr/go-lpack"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <pack>",
		Aliases: []string{"ls"},
		Short:   "Show a pack's manifest and files",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := lpack.Open(args[0], a.packOptions()...)
			if err != nil {
				return err
			}
			defer pack.Close()

			printManifest(cmd, pack)
			return nil
		},
	}
}

func printManifest(cmd *cobra.Command, pack *lpack.Pack) {
	out := cmd.OutOrStdout()
	m := pack.Manifest()

	fmt.Fprintln(out, titleStyle.Render(m.Name))
	fmt.Fprintln(out, field("Type", m.Type.String()))
	fmt.Fprintln(out, field("Priority", fmt.Sprint(m.Priority)))
	optional := []struct{ label, value string }{
		{"Language", m.Lang},
		{"Version", m.Version},
		{"Author", m.Author},
		{"Website", m.Website},
		{"Reference", m.CustomRef},
		{"Description", m.Description},
	}
	for _, o := range optional {
		if o.value != "" {
			fmt.Fprintln(out, field(o.label, o.value))
		}
	}
	fmt.Fprintln(out, field("MIME type", lpack.ContentType))
	fmt.Fprintln(out, field("Files", fmt.Sprint(pack.Len())))

	if pack.Len() == 0 {
		return
	}

	t := newTable("Path", "Size", "Stored", "Compression", "Encryption")
	var total, stored uint64
	for _, path := range pack.Files() {
		entry, _ := pack.Entry(path)
		total += entry.OriginalSize
		stored += entry.CompressedSize
		t.Row(
			path,
			humanize.Bytes(entry.OriginalSize),
			humanize.Bytes(entry.CompressedSize),
			entry.Compression.String(),
			entry.Encryption.String(),
		)
	}
	fmt.Fprintln(out, t)
	fmt.Fprintln(out, field("Total", fmt.Sprintf("%s (%s stored)", humanize.Bytes(total), humanize.Bytes(stored))))
}
