// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

//go:build !nobuilder

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/suprsokr/go-lpack"
)

type createFlags struct {
	name        string
	packType    string
	lang        string
	priority    int32
	ref         string
	author      string
	website     string
	description string
	version     string
	encrypt     bool
}

func (a *app) newCreateCmd() *cobra.Command {
	var f createFlags

	cmd := &cobra.Command{
		Use:   "create <source-dir> <output>",
		Short: "Build a pack from a directory",
		Long: `Build a pack from every file under source-dir.

The manifest is read from source-dir/pack.json when present (comments and
trailing commas are allowed) and any flag given on the command line
overrides the matching field. The output always gets the .lpack extension.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCreate(cmd, f, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.name, "name", "", "pack name (default: output file name)")
	flags.StringVar(&f.packType, "type", "base", "pack type: base, text, image, audio, script, mod, other")
	flags.StringVar(&f.lang, "lang", "", "language code, e.g. en")
	flags.Int32Var(&f.priority, "priority", 0, "layer priority, higher wins")
	flags.StringVar(&f.ref, "ref", "", "custom reference stored in the manifest")
	flags.StringVar(&f.author, "author", "", "pack author")
	flags.StringVar(&f.website, "website", "", "pack website")
	flags.StringVar(&f.description, "description", "", "pack description")
	flags.StringVar(&f.version, "version", "", "pack version")
	flags.BoolVar(&f.encrypt, "encrypt", false, "encrypt every file with the configured encryption key")
	return cmd
}

func (a *app) runCreate(cmd *cobra.Command, f createFlags, sourceDir, output string) error {
	manifest, found, err := loadSourceManifest(sourceDir)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !found || flags.Changed("type") {
		packType, err := lpack.ParsePackType(f.packType)
		if err != nil {
			return err
		}
		manifest.Type = packType
	}
	if flags.Changed("name") {
		manifest.Name = f.name
	}
	if flags.Changed("lang") {
		manifest.Lang = f.lang
	}
	if flags.Changed("priority") {
		manifest.Priority = f.priority
	}
	if flags.Changed("ref") {
		manifest.CustomRef = f.ref
	}
	if flags.Changed("author") {
		manifest.Author = f.author
	}
	if flags.Changed("website") {
		manifest.Website = f.website
	}
	if flags.Changed("description") {
		manifest.Description = f.description
	}
	if flags.Changed("version") {
		manifest.Version = f.version
	}

	output = withPackExtension(output)
	if manifest.Name == "" {
		manifest.Name = strings.TrimSuffix(filepath.Base(output), lpack.Extension)
	}

	opts := []lpack.Option{lpack.WithLogger(a.logger)}
	if f.encrypt {
		if a.cfg.EncryptionKey == "" {
			return errors.New("--encrypt needs an encryption key (set encryption_key or LPACK_ENCRYPTION_KEY)")
		}
		opts = append(opts, lpack.WithSecret(a.cfg.EncryptionKey))
	}

	b, err := lpack.NewBuilder(manifest, opts...)
	if err != nil {
		return err
	}
	if err := b.AddDir(sourceDir); err != nil {
		return err
	}
	if err := b.Build(output); err != nil {
		return err
	}

	info, err := os.Stat(output)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, successStyle.Render("Created "+output))
	fmt.Fprintln(out, field("Name", manifest.Name))
	fmt.Fprintln(out, field("Type", manifest.Type.String()))
	fmt.Fprintln(out, field("Priority", fmt.Sprint(manifest.Priority)))
	fmt.Fprintln(out, field("Files", fmt.Sprint(b.Len())))
	fmt.Fprintln(out, field("Size", humanize.Bytes(uint64(info.Size()))))
	if f.encrypt {
		fmt.Fprintln(out, field("Encryption", lpack.EncryptionAES256GCM.String()))
	}
	return nil
}

// loadSourceManifest reads pack.json from the source root. found is false
// when there is none.
func loadSourceManifest(sourceDir string) (m lpack.Manifest, found bool, err error) {
	path := filepath.Join(sourceDir, lpack.ManifestFileName)
	if !fileExists(path) {
		return lpack.Manifest{}, false, nil
	}
	m, err = lpack.ReadManifestFile(path)
	return m, err == nil, err
}

// withPackExtension replaces any extension of path with .lpack.
func withPackExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == lpack.Extension {
		return path
	}
	return strings.TrimSuffix(path, ext) + lpack.Extension
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
