// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifestJSON = `{"name":"raw","type":"base","priority":3}`

func TestPackTypeText(t *testing.T) {
	for i, name := range []string{"base", "text", "image", "audio", "script", "mod", "other"} {
		pt := PackType(i)
		assert.Equal(t, name, pt.String())

		text, err := pt.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))

		parsed, err := ParsePackType(name)
		require.NoError(t, err)
		assert.Equal(t, pt, parsed)
	}

	parsed, err := ParsePackType("Script")
	require.NoError(t, err)
	assert.Equal(t, PackScript, parsed)

	_, err = ParsePackType("texture")
	assert.Error(t, err)
	_, err = PackType(42).MarshalText()
	assert.Error(t, err)
}

func TestManifestJSON(t *testing.T) {
	m := Manifest{Name: "english", Type: PackText, Lang: "en", Priority: -2}
	data, err := json.Marshal(&m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"english","type":"text","lang":"en","priority":-2}`, string(data))

	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"name":"x","type":"bogus"}`), &decoded))
}

func TestManifestValidate(t *testing.T) {
	assert.NoError(t, (&Manifest{Name: "ok"}).Validate())
	assert.ErrorIs(t, (&Manifest{Name: "  "}).Validate(), ErrInvalidManifest)
	assert.ErrorIs(t, (&Manifest{Name: "x", Type: PackType(-1)}).Validate(), ErrInvalidManifest)
}

func TestFileEntryJSON(t *testing.T) {
	entry := FileEntry{
		Path:           "ui/title.txt",
		Offset:         100,
		OriginalSize:   12,
		CompressedSize: 40,
		Compression:    CompressionZstd,
		Encryption:     EncryptionAES256GCM,
		Hash:           contentHash([]byte("hello world!")),
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "zstd", fields["compression"])
	assert.Equal(t, "aes256gcm", fields["encryption"])
	assert.Equal(t, "ui/title.txt", fields["path"])
	assert.EqualValues(t, 12, fields["original_size"])

	var decoded FileEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestIndexWithoutEncryptionField(t *testing.T) {
	content := []byte("plain stored bytes")
	data := rawPack(testManifestJSON, content, func(dataStart uint64) string {
		return fmt.Sprintf(`[{"path":"a.bin","offset":%d,"original_size":%d,"compressed_size":%d,"compression":"store","hash":%q}]`,
			dataStart, len(content), len(content), contentHash(content))
	})

	pack, err := LoadFromMemory(data)
	require.NoError(t, err)
	defer pack.Close()

	entry, ok := pack.Entry("a.bin")
	require.True(t, ok)
	assert.Equal(t, EncryptionNone, entry.Encryption)

	got, err := pack.ReadFile("a.bin")
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.NoError(t, pack.VerifyFile("a.bin"))

	m := pack.Manifest()
	assert.Equal(t, "raw", m.Name)
	assert.Equal(t, PackBase, m.Type)
	assert.Equal(t, int32(3), m.Priority)
}

func TestHeaderRejectsMalformedInput(t *testing.T) {
	valid := rawPack(testManifestJSON, nil, func(uint64) string { return "[]" })

	withVersion := func(v uint32) []byte {
		data := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(data[magicSize:], v)
		return data
	}
	withPointer := func(offset uint64, length uint32) []byte {
		data := bytes.Clone(valid)
		pos := fixedHeaderSize + len(testManifestJSON)
		copy(data[pos:], encodeIndexPointer(offset, length))
		return data
	}
	withManifestLength := func(n uint32) []byte {
		data := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(data[magicSize+4:], n)
		return data
	}
	dataStart := uint64(fixedHeaderSize + len(testManifestJSON) + indexPointerSize)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short magic", []byte("LPA"), ErrTruncated},
		{"bad magic short", []byte("MPQ\x1a\x00\x00"), ErrInvalidFormat},
		{"bad magic", append([]byte("NOTPK"), valid[magicSize:]...), ErrInvalidFormat},
		{"unknown version", withVersion(2), ErrInvalidFormat},
		{"version zero", withVersion(0), ErrInvalidFormat},
		{"manifest length too large", withManifestLength(1 << 20), ErrTruncated},
		{"zero pointer", withPointer(0, 0), ErrCorruptPack},
		{"pointer into header", withPointer(3, 2), ErrCorruptPack},
		{"index length too large", withPointer(dataStart, 1000), ErrTruncated},
		{"index offset past end", withPointer(dataStart+500, 2), ErrTruncated},
		{"header only", valid[:fixedHeaderSize+len(testManifestJSON)], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromMemory(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	badManifest := rawPack(`{"name": `, nil, func(uint64) string { return "[]" })
	_, err := LoadFromMemory(badManifest)
	assert.ErrorIs(t, err, ErrManifestParse)

	badIndex := rawPack(testManifestJSON, nil, func(uint64) string { return `[{"path":` })
	_, err = LoadFromMemory(badIndex)
	assert.ErrorIs(t, err, ErrIndexParse)

	badCompression := rawPack(testManifestJSON, nil, func(dataStart uint64) string {
		return fmt.Sprintf(`[{"path":"a","offset":%d,"original_size":0,"compressed_size":0,"compression":"brotli","hash":""}]`, dataStart)
	})
	_, err = LoadFromMemory(badCompression)
	assert.ErrorIs(t, err, ErrIndexParse)
}

func TestLoadRejectsEntryOutsideDataRegion(t *testing.T) {
	content := []byte("0123456789")

	tests := map[string]func(dataStart uint64) string{
		"before data": func(dataStart uint64) string {
			return fmt.Sprintf(`[{"path":"a","offset":%d,"original_size":4,"compressed_size":4,"compression":"store","hash":""}]`, dataStart-4)
		},
		"overlaps index": func(dataStart uint64) string {
			return fmt.Sprintf(`[{"path":"a","offset":%d,"original_size":20,"compressed_size":20,"compression":"store","hash":""}]`, dataStart)
		},
		"huge size": func(dataStart uint64) string {
			return fmt.Sprintf(`[{"path":"a","offset":%d,"original_size":1,"compressed_size":18446744073709551615,"compression":"store","hash":""}]`, dataStart+2)
		},
	}

	for name, index := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromMemory(rawPack(testManifestJSON, content, index))
			assert.ErrorIs(t, err, ErrCorruptPack)
		})
	}
}

func TestErrorMessageIncludesSource(t *testing.T) {
	path := t.TempDir() + "/broken.lpack"
	require.NoError(t, os.WriteFile(path, []byte("garbage that is not a pack"), 0644))

	_, err := Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), path)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.Path)
}
