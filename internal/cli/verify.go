// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suprsokr/go-lpack"
)

func (a *app) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <pack>",
		Short: "Check every file against its stored hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := lpack.Open(args[0], a.packOptions()...)
			if err != nil {
				return err
			}
			defer pack.Close()

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range pack.Files() {
				if err := pack.VerifyFile(path); err != nil {
					failed++
					fmt.Fprintln(out, errorStyle.Render("FAIL ")+err.Error())
					continue
				}
				a.logger.Debug("verified", "path", path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed verification", failed, pack.Len())
			}
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("All %d files in %s verified", pack.Len(), pack.Name())))
			return nil
		},
	}
}
