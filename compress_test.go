// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	inputs := map[string][]byte{
		"empty":      {},
		"single":     []byte("x"),
		"repetitive": bytes.Repeat([]byte("LPACK asset data "), 512),
		"random":     random,
	}

	for _, kind := range []Compression{CompressionStore, CompressionZstd, CompressionLZ4} {
		for name, input := range inputs {
			t.Run(kind.String()+"/"+name, func(t *testing.T) {
				compressed, err := Compress(input, kind)
				require.NoError(t, err)

				decompressed, err := Decompress(compressed, kind, uint64(len(input)))
				require.NoError(t, err)
				assert.True(t, bytes.Equal(input, decompressed), "round trip changed the data")
			})
		}
	}
}

func TestLZ4SizePrefix(t *testing.T) {
	input := bytes.Repeat([]byte("function f() return 1 end\n"), 100)

	compressed, err := Compress(input, CompressionLZ4)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(compressed), lz4SizePrefix)
	assert.Equal(t, uint32(len(input)), binary.LittleEndian.Uint32(compressed))

	empty, err := Compress(nil, CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, empty)
}

func TestSelectCompression(t *testing.T) {
	tests := []struct {
		packType PackType
		path     string
		want     Compression
	}{
		{PackText, "strings/en.txt", CompressionZstd},
		{PackText, "fonts/title.ttf", CompressionZstd},
		{PackText, "noext", CompressionZstd},
		{PackScript, "main.lua", CompressionLZ4},
		{PackScript, "ui/menu.JS", CompressionLZ4},
		{PackScript, "tools/build.py", CompressionLZ4},
		{PackScript, "data/config.json", CompressionStore},
		{PackBase, "data/config.json", CompressionZstd},
		{PackBase, "data/list.CSV", CompressionZstd},
		{PackBase, "data/a.xml", CompressionZstd},
		{PackMod, "mod.yaml", CompressionZstd},
		{PackImage, "notes.txt", CompressionZstd},
		{PackImage, "sprites/hero.png", CompressionStore},
		{PackAudio, "music/theme.ogg", CompressionStore},
		{PackOther, "main.lua", CompressionStore},
		{PackBase, ".txt", CompressionStore},
		{PackBase, "dir.txt/file", CompressionStore},
		{PackBase, "archive.tar.txt", CompressionZstd},
	}

	for _, tt := range tests {
		t.Run(tt.packType.String()+"/"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectCompression(tt.packType, tt.path))
		})
	}
}

func TestCompressDataFallsBackToStore(t *testing.T) {
	random := make([]byte, 1024)
	_, err := rand.Read(random)
	require.NoError(t, err)

	payload, kind, err := compressData(PackText, "noise.txt", random)
	require.NoError(t, err)
	assert.Equal(t, CompressionStore, kind)
	assert.Equal(t, random, payload)

	payload, kind, err = compressData(PackScript, "tiny.lua", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, CompressionStore, kind)
	assert.Equal(t, []byte("x"), payload)

	payload, kind, err = compressData(PackBase, "empty.json", nil)
	require.NoError(t, err)
	assert.Equal(t, CompressionStore, kind)
	assert.Empty(t, payload)
}

func TestCompressDataKeepsSmallerOutput(t *testing.T) {
	input := bytes.Repeat([]byte("key=value\n"), 200)

	payload, kind, err := compressData(PackBase, "settings.txt", input)
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, kind)
	assert.Less(t, len(payload), len(input))

	payload, kind, err = compressData(PackScript, "init.lua", input)
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, kind)
	assert.Less(t, len(payload), len(input))
}

func TestDecompressErrors(t *testing.T) {
	input := bytes.Repeat([]byte("abcdefgh"), 256)

	zstdPayload, err := Compress(input, CompressionZstd)
	require.NoError(t, err)
	lz4Payload, err := Compress(input, CompressionLZ4)
	require.NoError(t, err)

	tests := []struct {
		name         string
		data         []byte
		kind         Compression
		originalSize uint64
	}{
		{"store size mismatch", []byte("abc"), CompressionStore, 4},
		{"zstd garbage", []byte("not a zstd frame"), CompressionZstd, 16},
		{"zstd size mismatch", zstdPayload, CompressionZstd, uint64(len(input)) + 1},
		{"lz4 missing prefix", []byte{1, 2}, CompressionLZ4, 2},
		{"lz4 prefix mismatch", lz4Payload, CompressionLZ4, uint64(len(input)) - 1},
		{"lz4 forged prefix", []byte{0xFF, 0xFF, 0xFF, 0x7F, 0x00}, CompressionLZ4, 0x7FFFFFFF},
		{"lz4 truncated block", lz4Payload[:len(lz4Payload)/2], CompressionLZ4, uint64(len(input))},
		{"unknown kind", input, Compression(9), uint64(len(input))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress(tt.data, tt.kind, tt.originalSize)
			assert.Error(t, err)
		})
	}
}

// zstdBomb streams n zero bytes into a single zstd frame. The streaming
// encoder does not know the size up front, so the frame header carries no
// content size.
func zstdBomb(t testing.TB, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderConcurrency(1))
	require.NoError(t, err)

	chunk := make([]byte, 64<<10)
	for written := 0; written < n; written += len(chunk) {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// allocatedDuring reports the bytes allocated while fn runs.
func allocatedDuring(fn func()) uint64 {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestDecompressZstdBoundedBySize(t *testing.T) {
	const decoded = 256 << 20
	const budget = 64 << 20
	bomb := zstdBomb(t, decoded)
	require.Less(t, len(bomb), 1<<20)

	for _, originalSize := range []uint64{0, 1, 4096} {
		var err error
		allocated := allocatedDuring(func() {
			_, err = Decompress(bomb, CompressionZstd, originalSize)
		})
		assert.Error(t, err, "original size %d", originalSize)
		assert.Less(t, allocated, uint64(budget), "original size %d", originalSize)
	}
}

func TestDecompressZstdRejectsDeclaredSize(t *testing.T) {
	frame, err := Compress(make([]byte, 1<<20), CompressionZstd)
	require.NoError(t, err)

	var header zstd.Header
	require.NoError(t, header.Decode(frame))
	require.True(t, header.HasFCS)

	var out []byte
	allocated := allocatedDuring(func() {
		out, err = Decompress(frame, CompressionZstd, 1)
	})
	assert.ErrorContains(t, err, "frame declares")
	assert.Nil(t, out)
	assert.Less(t, allocated, uint64(1<<20))

	out, err = Decompress(frame, CompressionZstd, 1<<20)
	require.NoError(t, err)
	assert.Len(t, out, 1<<20)
}
