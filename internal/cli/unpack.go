// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suprsokr/go-lpack"
)

func (a *app) newUnpackCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "unpack <pack> <output-dir>",
		Short: "Extract every file of a pack",
		Long: `Extract every file of a pack below output-dir.

When a security key is configured, --key must match it. Extraction stops at
the first file that cannot be read.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lpack.CheckSecurityKey(a.cfg.SecurityKey, key); err != nil {
				return err
			}

			pack, err := lpack.Open(args[0], a.packOptions()...)
			if err != nil {
				return err
			}
			defer pack.Close()

			if err := pack.ExtractAll(args[1]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("Extracted %d files from %s to %s", pack.Len(), pack.Name(), args[1])))
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "security key required to unpack")
	return cmd
}
