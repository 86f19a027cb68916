// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/suprsokr/go-lpack"
)

// previewLines is how much of a text file resolve prints.
const previewLines = 10

func (a *app) newResolveCmd() *cobra.Command {
	var (
		dir   string
		packs []string
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Show which pack provides a file and preview it",
		Long: `Load packs and show every layer that contains path, highest priority
first, followed by a preview of the winning copy.

Packs come from --pack (repeatable) and --dir. With neither, the configured
pack_dir is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && len(packs) == 0 {
				dir = a.cfg.PackDir
			}
			return a.runResolve(cmd, args[0], dir, packs)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of *.lpack and *.pack files")
	cmd.Flags().StringArrayVar(&packs, "pack", nil, "pack file to load (repeatable)")
	return cmd
}

func (a *app) runResolve(cmd *cobra.Command, virtualPath, dir string, packs []string) error {
	opts := append(a.packOptions(), lpack.WithCacheSize(a.cfg.CacheSize))
	r, err := lpack.NewResolver(opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	out := cmd.OutOrStdout()
	if dir != "" {
		if err := r.AddDir(dir); err != nil {
			// Packs that loaded are still usable.
			fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("Warning: ")+err.Error())
		}
	}
	for _, path := range packs {
		pack, err := lpack.Open(path, a.packOptions()...)
		if err != nil {
			return err
		}
		r.AddPack(pack)
	}
	if r.Len() == 0 {
		return errors.New("no packs loaded")
	}

	layers := r.Layers(virtualPath)
	if len(layers) == 0 {
		return fmt.Errorf("%s: not found in %d packs", virtualPath, r.Len())
	}

	fmt.Fprintln(out, titleStyle.Render(virtualPath))
	for i, layer := range layers {
		marker := "  "
		if i == 0 {
			marker = successStyle.Render("> ")
		}
		fmt.Fprintln(out, marker+layer)
	}

	data, ok := r.Resolve(virtualPath)
	if !ok {
		return fmt.Errorf("%s: top layer %s could not be read", virtualPath, layers[0])
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, preview(data))
	return nil
}

// preview returns the first lines of text content, or a placeholder for
// binary content.
func preview(data []byte) string {
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return labelStyle.Render("(binary content)")
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) <= previewLines {
		return strings.Join(lines, "\n")
	}
	more := labelStyle.Render(fmt.Sprintf("... (%d more lines)", len(lines)-previewLines))
	return strings.Join(lines[:previewLines], "\n") + "\n" + more
}
