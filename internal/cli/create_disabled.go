// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

//go:build nobuilder

package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func (a *app) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "create <source-dir> <output>",
		Short:  "Build a pack from a directory (not available in this build)",
		Hidden: true,
		RunE: func(*cobra.Command, []string) error {
			return errors.New("this lpack was built without pack creation (nobuilder tag)")
		},
	}
}
