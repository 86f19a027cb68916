// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Pack is a loaded pack: its manifest and index are held in memory and
// file payloads are read from the underlying Source on demand.
//
// Reads seek and then read the Source, so they are serialized by an
// internal mutex. A Pack is safe for concurrent use; separate Packs never
// contend with each other.
type Pack struct {
	mu     sync.Mutex
	src    Source
	closed bool

	source   string // where the pack was loaded from, for messages
	manifest Manifest
	entries  map[string]FileEntry
	key      *Key
	logger   *log.Logger
}

// normalizePath converts a lookup path to the forward-slash form used in
// the index.
func normalizePath(virtualPath string) string {
	return strings.ReplaceAll(virtualPath, "\\", "/")
}

// Load reads the header, manifest and index of a pack from src. name
// describes the source in errors and logs. The Pack takes ownership of src.
func Load(src Source, name string, opts ...Option) (*Pack, error) {
	o := newOptions(opts)

	size, err := sourceSize(src)
	if err != nil {
		return nil, ioError("load", name, err)
	}

	header, err := readPackHeader(src, size)
	if err != nil {
		return nil, withSource(err, name)
	}

	manifest, err := decodeManifest(header.Manifest)
	if err != nil {
		return nil, withSource(err, name)
	}

	if _, err := src.Seek(int64(header.IndexOffset), io.SeekStart); err != nil {
		return nil, ioError("seek to index", name, err)
	}
	index := make([]byte, header.IndexLength)
	if _, err := io.ReadFull(src, index); err != nil {
		return nil, newError("read index", name, ErrTruncated, err)
	}

	entries, err := decodeIndex(index, header.dataStart, header.IndexOffset)
	if err != nil {
		return nil, withSource(err, name)
	}

	o.logger.Debug("loaded pack", "source", name, "name", manifest.Name,
		"priority", manifest.Priority, "files", len(entries))

	return &Pack{
		src:      src,
		source:   name,
		manifest: manifest,
		entries:  entries,
		key:      o.key,
		logger:   o.logger,
	}, nil
}

// withSource fills in the file name on header-level errors.
func withSource(err error, name string) error {
	var pe *Error
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = name
	}
	return err
}

// Manifest returns a copy of the pack manifest.
func (p *Pack) Manifest() Manifest {
	return p.manifest
}

// Name returns the manifest name.
func (p *Pack) Name() string {
	return p.manifest.Name
}

// Author returns the manifest author, or "" when unset.
func (p *Pack) Author() string {
	return p.manifest.Author
}

// Priority returns the manifest priority.
func (p *Pack) Priority() int32 {
	return p.manifest.Priority
}

// Source describes where the pack was loaded from.
func (p *Pack) Source() string {
	return p.source
}

// Files returns every virtual path in the pack, sorted.
func (p *Pack) Files() []string {
	files := make([]string, 0, len(p.entries))
	for path := range p.entries {
		files = append(files, path)
	}
	slices.Sort(files)
	return files
}

// Len returns the number of files in the pack.
func (p *Pack) Len() int {
	return len(p.entries)
}

// Entry returns the index entry for a path without reading its payload.
func (p *Pack) Entry(virtualPath string) (FileEntry, bool) {
	entry, ok := p.entries[normalizePath(virtualPath)]
	return entry, ok
}

// Has reports whether the pack contains a path.
func (p *Pack) Has(virtualPath string) bool {
	_, ok := p.entries[normalizePath(virtualPath)]
	return ok
}

// ReadFile returns the original bytes of a file, decrypting and then
// decompressing its payload.
//
// Errors carry ErrNotFound for an unknown path, ErrDecrypt or ErrDecompress
// when the payload does not decode, and ErrIO for a closed pack. Entries
// are bounds-checked at load, so ErrTruncated only occurs when the source
// shrank after the pack was loaded.
func (p *Pack) ReadFile(virtualPath string) ([]byte, error) {
	virtualPath = normalizePath(virtualPath)
	entry, ok := p.entries[virtualPath]
	if !ok {
		return nil, newError("read file", virtualPath, ErrNotFound, nil)
	}

	payload, err := p.readPayload(entry)
	if err != nil {
		return nil, err
	}
	return decodePayload(entry, payload, p.key)
}

// readPayload reads the stored bytes of entry.
func (p *Pack) readPayload(entry FileEntry) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, newError("read file", entry.Path, ErrIO, fmt.Errorf("pack is closed"))
	}

	if _, err := p.src.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, ioError("seek to file data", entry.Path, err)
	}

	payload := make([]byte, entry.CompressedSize)
	if _, err := io.ReadFull(p.src, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, newError("read file data", entry.Path, ErrTruncated, err)
		}
		return nil, ioError("read file data", entry.Path, err)
	}
	return payload, nil
}

// decodePayload reverses the build pipeline: decrypt first, then
// decompress.
func decodePayload(entry FileEntry, payload []byte, key *Key) ([]byte, error) {
	switch entry.Encryption {
	case EncryptionNone:
	case EncryptionAES256GCM:
		if key == nil {
			return nil, newError("decrypt", entry.Path, ErrDecrypt, fmt.Errorf("no key configured"))
		}
		plaintext, err := Decrypt(payload, key)
		if err != nil {
			return nil, newError("decrypt", entry.Path, ErrDecrypt, err)
		}
		payload = plaintext
	default:
		return nil, newError("decrypt", entry.Path, ErrDecrypt, fmt.Errorf("unsupported encryption: %v", entry.Encryption))
	}

	data, err := Decompress(payload, entry.Compression, entry.OriginalSize)
	if err != nil {
		return nil, newError("decompress", entry.Path, ErrDecompress, err)
	}
	return data, nil
}

// VerifyFile reads a file and checks it against the hash stored in the
// index.
func (p *Pack) VerifyFile(virtualPath string) error {
	data, err := p.ReadFile(virtualPath)
	if err != nil {
		return err
	}

	entry, _ := p.Entry(virtualPath)
	if got := contentHash(data); got != entry.Hash {
		return newError("verify", entry.Path, ErrCorruptPack,
			fmt.Errorf("hash mismatch: stored %s, computed %s", entry.Hash, got))
	}
	return nil
}

// ExtractFile writes the original bytes of a file to destPath, creating
// parent directories as needed.
func (p *Pack) ExtractFile(virtualPath, destPath string) error {
	data, err := p.ReadFile(virtualPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return ioError("create directory", destPath, err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return ioError("write file", destPath, err)
	}
	return nil
}

// ExtractAll writes every file of the pack below dir. Paths that would
// escape dir are rejected as corrupt. It stops at the first error.
func (p *Pack) ExtractAll(dir string) error {
	for _, virtualPath := range p.Files() {
		local := filepath.FromSlash(virtualPath)
		if !filepath.IsLocal(local) {
			return newError("extract", virtualPath, ErrCorruptPack, fmt.Errorf("path escapes output directory"))
		}
		if err := p.ExtractFile(virtualPath, filepath.Join(dir, local)); err != nil {
			return err
		}
		p.logger.Debug("extracted", "path", virtualPath)
	}
	return nil
}

// Close releases the underlying source. Further reads fail. Close is
// idempotent.
func (p *Pack) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if closer, ok := p.src.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
