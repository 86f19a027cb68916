// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package cli contains the lpack command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/suprsokr/go-lpack"
	"github.com/suprsokr/go-lpack/internal/config"
)

// Version is the semantic version (set via -ldflags).
var Version = "dev"

// app is the state shared by every command of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	verbose  bool

	cfg    *config.Config
	logger *log.Logger
}

// newRootCmd builds a fresh command tree.
func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "lpack",
		Short: "Build, inspect and layer LPACK asset packs",
		Long: titleStyle.Render("lpack") + labelStyle.Render(" - layered asset packs") + `

An LPACK file bundles a directory of assets with a manifest. Packs are
stacked by priority: a mod pack with priority 10 overrides the same file
in a base pack with priority 0.

` + labelStyle.Render("Examples:") + `
  lpack create assets base.lpack --name base
  lpack list base.lpack
  lpack resolve ui/title.txt --dir packs
  lpack unpack mod.lpack out --key <security key>`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/lpack/config.toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		a.newCreateCmd(),
		a.newListCmd(),
		a.newResolveCmd(),
		a.newUnpackCmd(),
		a.newVerifyCmd(),
	)
	return cmd
}

// setup loads the configuration and creates the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, path, err := config.Load(config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Level()
	if a.logLevel != "" {
		if level, err = log.ParseLevel(strings.ToLower(a.logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	if a.verbose {
		level = log.DebugLevel
	}

	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "lpack",
		Level:  level,
	})
	if path != "" {
		a.logger.Debug("loaded config", "path", path)
	}
	return nil
}

// packOptions returns the library options derived from the configuration.
func (a *app) packOptions() []lpack.Option {
	return []lpack.Option{
		lpack.WithSecret(a.cfg.EncryptionKey),
		lpack.WithLogger(a.logger),
	}
}

// Execute runs the lpack command line and exits non-zero on failure.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
