// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
)

// Builder assembles a pack from files on disk.
//
// Files are only enumerated when added; their contents are read one at a
// time while the pack is written.
type Builder struct {
	manifest Manifest
	pending  map[string]string // virtual path -> source path
	key      *Key
	logger   *log.Logger
}

// NewBuilder returns a builder for a pack with the given manifest.
func NewBuilder(manifest Manifest, opts ...Option) (*Builder, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	return &Builder{
		manifest: manifest,
		pending:  make(map[string]string),
		key:      o.key,
		logger:   o.logger,
	}, nil
}

// Build writes a pack of every file under sourceDir to outputPath.
func Build(manifest Manifest, sourceDir, outputPath string, opts ...Option) error {
	b, err := NewBuilder(manifest, opts...)
	if err != nil {
		return err
	}
	if err := b.AddDir(sourceDir); err != nil {
		return err
	}
	return b.Build(outputPath)
}

// AddFile adds a single file under the given virtual path. Backslashes
// are converted to forward slashes. Adding the same virtual path twice is
// an error.
func (b *Builder) AddFile(srcPath, virtualPath string) error {
	virtualPath = strings.TrimPrefix(normalizePath(virtualPath), "/")
	if virtualPath == "" {
		return buildError(srcPath, "empty virtual path")
	}
	if existing, ok := b.pending[virtualPath]; ok {
		return buildError(virtualPath, "duplicate path (from %s and %s)", existing, srcPath)
	}
	b.pending[virtualPath] = srcPath
	return nil
}

// AddDir adds every regular file under root, keyed by its slash-separated
// path relative to root. Hidden files and directories (names starting with
// ".") and the manifest file pack.json at the root are skipped.
func (b *Builder) AddDir(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return newError("build", root, ErrBuildSource, err)
	}
	if !info.IsDir() {
		return buildError(root, "not a directory")
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return newError("build", path, ErrBuildSource, err)
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return newError("build", path, ErrBuildSource, err)
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestFileName {
			return nil
		}
		return b.AddFile(path, rel)
	})
}

// Len returns the number of files added so far.
func (b *Builder) Len() int {
	return len(b.pending)
}

// Build writes the pack to outputPath. The pack is written to a temporary
// file in the same directory and renamed into place, so a failed build
// never leaves a file at outputPath.
func (b *Builder) Build(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ioError("create directory", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "lpack_*.tmp")
	if err != nil {
		return ioError("create temp file", dir, err)
	}
	tempPath := tempFile.Name()

	if _, err := b.WritePack(tempFile); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return err
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return ioError("sync", tempPath, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return ioError("close", tempPath, err)
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		os.Remove(tempPath)
		return ioError("save pack", outputPath, err)
	}

	b.logger.Info("pack created", "path", outputPath, "name", b.manifest.Name, "files", len(b.pending))
	return nil
}

// WritePack streams the pack to w and returns the index it wrote.
//
// The header carries a zeroed index pointer until every payload is
// written; only then is the index appended and the pointer backpatched.
// If WritePack fails, the pointer stays zero and readers reject the output.
func (b *Builder) WritePack(w io.WriteSeeker) ([]FileEntry, error) {
	manifestJSON, err := json.Marshal(&b.manifest)
	if err != nil {
		return nil, buildError("", "encode manifest: %w", err)
	}

	pointerPos, err := writePackHeader(w, manifestJSON)
	if err != nil {
		return nil, ioError("write header", "", err)
	}

	paths := make([]string, 0, len(b.pending))
	for virtualPath := range b.pending {
		paths = append(paths, virtualPath)
	}
	slices.Sort(paths)

	entries := make([]FileEntry, 0, len(paths))
	for _, virtualPath := range paths {
		entry, err := b.writeFile(w, virtualPath, b.pending[virtualPath])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	indexOffset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, ioError("get index position", "", err)
	}

	indexJSON, err := json.Marshal(entries)
	if err != nil {
		return nil, buildError("", "encode index: %w", err)
	}
	if uint64(len(indexJSON)) > 0xFFFFFFFF {
		return nil, buildError("", "index too large: %d bytes", len(indexJSON))
	}
	if _, err := w.Write(indexJSON); err != nil {
		return nil, ioError("write index", "", err)
	}
	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, ioError("get end position", "", err)
	}

	if _, err := w.Seek(int64(pointerPos), io.SeekStart); err != nil {
		return nil, ioError("seek to index pointer", "", err)
	}
	if _, err := w.Write(encodeIndexPointer(uint64(indexOffset), uint32(len(indexJSON)))); err != nil {
		return nil, ioError("write index pointer", "", err)
	}
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return nil, ioError("seek to end", "", err)
	}

	return entries, nil
}

// writeFile appends one payload and returns its entry.
func (b *Builder) writeFile(w io.WriteSeeker, virtualPath, srcPath string) (FileEntry, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return FileEntry{}, newError("build", srcPath, ErrBuildSource, err)
	}

	payload, compression, err := compressData(b.manifest.Type, virtualPath, data)
	if err != nil {
		return FileEntry{}, buildError(virtualPath, "compress: %w", err)
	}

	encryption := EncryptionNone
	if b.key != nil {
		payload, err = Encrypt(payload, b.key)
		if err != nil {
			return FileEntry{}, buildError(virtualPath, "encrypt: %w", err)
		}
		encryption = EncryptionAES256GCM
	}

	offset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return FileEntry{}, ioError("get file position", virtualPath, err)
	}
	if _, err := w.Write(payload); err != nil {
		return FileEntry{}, ioError("write file data", virtualPath, err)
	}

	entry := FileEntry{
		Path:           virtualPath,
		Offset:         uint64(offset),
		OriginalSize:   uint64(len(data)),
		CompressedSize: uint64(len(payload)),
		Compression:    compression,
		Encryption:     encryption,
		Hash:           contentHash(data),
	}

	b.logger.Debug("stored file", "path", virtualPath, "size", entry.OriginalSize,
		"stored", entry.CompressedSize, "compression", compression, "encryption", encryption)
	return entry, nil
}
