// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTree creates files below dir from a map of slash paths to content.
func writeTree(t testing.TB, dir string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}
}

// buildPack builds a pack from files and returns its path.
func buildPack(t testing.TB, manifest Manifest, files map[string][]byte, opts ...Option) string {
	t.Helper()
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	writeTree(t, src, files)

	out := filepath.Join(tmpDir, manifest.Name+Extension)
	require.NoError(t, Build(manifest, src, out, opts...))
	return out
}

// openPack builds and opens a pack, closing it when the test ends.
func openPack(t testing.TB, manifest Manifest, files map[string][]byte, opts ...Option) *Pack {
	t.Helper()
	pack, err := Open(buildPack(t, manifest, files, opts...), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { pack.Close() })
	return pack
}

// rawPack assembles pack bytes by hand. index receives the offset of the
// data region and returns the index JSON.
func rawPack(manifest string, data []byte, index func(dataStart uint64) string) []byte {
	dataStart := uint64(fixedHeaderSize + len(manifest) + indexPointerSize)
	indexJSON := index(dataStart)

	buf := []byte(packMagic)
	buf = binary.LittleEndian.AppendUint32(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(manifest)))
	buf = append(buf, manifest...)
	buf = binary.LittleEndian.AppendUint64(buf, dataStart+uint64(len(data)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(indexJSON)))
	buf = append(buf, data...)
	buf = append(buf, indexJSON...)
	return buf
}

// sampleFiles covers every codec path for the pack types used in tests.
func sampleFiles() map[string][]byte {
	text := make([]byte, 0, 4096)
	for len(text) < 4000 {
		text = append(text, "the quick brown fox jumps over the lazy dog\n"...)
	}
	noise := make([]byte, 2048)
	seed := uint32(2463534242)
	for i := range noise {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		noise[i] = byte(seed)
	}

	return map[string][]byte{
		"readme.txt":          text,
		"data/config.json":    []byte(`{"a": 1, "b": [1, 2, 3], "c": "` + string(text[:200]) + `"}`),
		"scripts/main.lua":    text,
		"scripts/tiny.py":     []byte("x"),
		"images/noise.bin":    noise,
		"empty.txt":           {},
		"deep/nested/dir/a.c": []byte("int main(void) { return 0; }\n"),
	}
}
