// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// LPACK format constants
const (
	// Magic signature at offset 0
	packMagic = "LPACK"

	// FormatVersion is the only on-disk version this package reads and writes.
	FormatVersion uint32 = 1

	// ContentType is the MIME type of a pack file.
	ContentType = "application/vnd.lpack"

	// Extension is the default file extension for packs.
	Extension = ".lpack"

	// ManifestFileName is the reserved manifest file in a build source root.
	ManifestFileName = "pack.json"

	magicSize        = 5
	fixedHeaderSize  = magicSize + 4 + 4 // magic + version + manifest length
	indexPointerSize = 8 + 4             // offset + length
)

// PackType classifies a pack. It drives the builder's compression heuristics.
type PackType int

const (
	PackBase PackType = iota
	PackText
	PackImage
	PackAudio
	PackScript
	PackMod
	PackOther
)

var packTypeNames = [...]string{"base", "text", "image", "audio", "script", "mod", "other"}

func (t PackType) String() string {
	if t < 0 || int(t) >= len(packTypeNames) {
		return fmt.Sprintf("unknown(%d)", int(t))
	}
	return packTypeNames[t]
}

// ParsePackType parses the lowercase name of a pack type.
func ParsePackType(name string) (PackType, error) {
	for i, n := range packTypeNames {
		if strings.EqualFold(n, name) {
			return PackType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pack type: %q", ErrInvalidManifest, name)
}

func (t PackType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(packTypeNames) {
		return nil, fmt.Errorf("unknown pack type: %d", int(t))
	}
	return []byte(packTypeNames[t]), nil
}

func (t *PackType) UnmarshalText(text []byte) error {
	parsed, err := ParsePackType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Compression identifies how a stored payload was compressed.
type Compression int

const (
	CompressionStore Compression = iota
	CompressionZstd
	CompressionLZ4
)

var compressionNames = [...]string{"store", "zstd", "lz4"}

func (c Compression) String() string {
	if c < 0 || int(c) >= len(compressionNames) {
		return fmt.Sprintf("unknown(%d)", int(c))
	}
	return compressionNames[c]
}

func (c Compression) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(compressionNames) {
		return nil, fmt.Errorf("unknown compression: %d", int(c))
	}
	return []byte(compressionNames[c]), nil
}

func (c *Compression) UnmarshalText(text []byte) error {
	for i, n := range compressionNames {
		if n == string(text) {
			*c = Compression(i)
			return nil
		}
	}
	return fmt.Errorf("unknown compression: %q", text)
}

// Encryption identifies how a stored payload was encrypted.
type Encryption int

const (
	EncryptionNone Encryption = iota
	EncryptionAES256GCM
)

var encryptionNames = [...]string{"none", "aes256gcm"}

func (e Encryption) String() string {
	if e < 0 || int(e) >= len(encryptionNames) {
		return fmt.Sprintf("unknown(%d)", int(e))
	}
	return encryptionNames[e]
}

func (e Encryption) MarshalText() ([]byte, error) {
	if e < 0 || int(e) >= len(encryptionNames) {
		return nil, fmt.Errorf("unknown encryption: %d", int(e))
	}
	return []byte(encryptionNames[e]), nil
}

func (e *Encryption) UnmarshalText(text []byte) error {
	for i, n := range encryptionNames {
		if n == string(text) {
			*e = Encryption(i)
			return nil
		}
	}
	return fmt.Errorf("unknown encryption: %q", text)
}

// Manifest is the per-pack metadata stored once after the header.
type Manifest struct {
	Name        string   `json:"name"`
	Type        PackType `json:"type"`
	Lang        string   `json:"lang,omitempty"`
	Priority    int32    `json:"priority"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	CustomRef   string   `json:"custom_ref,omitempty"`
	Author      string   `json:"author,omitempty"`
	Website     string   `json:"website,omitempty"`
}

// Validate checks the fields a builder requires.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}
	if _, err := m.Type.MarshalText(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return nil
}

// FileEntry describes one logical file stored in a pack.
type FileEntry struct {
	Path           string      `json:"path"`
	Offset         uint64      `json:"offset"`
	OriginalSize   uint64      `json:"original_size"`
	CompressedSize uint64      `json:"compressed_size"`
	Compression    Compression `json:"compression"`
	// Packs written before encryption existed omit this field; the zero
	// value is EncryptionNone.
	Encryption Encryption `json:"encryption"`
	// Hash is the lowercase hex SHA-256 of the original bytes.
	Hash string `json:"hash"`
}

// packHeader is the fixed part of a pack that precedes the data region.
type packHeader struct {
	Version      uint32
	Manifest     []byte
	IndexOffset  uint64
	IndexLength  uint32
	dataStart    uint64 // first byte after the index pointer
	pointerStart uint64 // position of the index pointer
}

// writePackHeader writes magic, version, the manifest block and a zeroed
// index pointer. It returns the position of the pointer for backpatching.
func writePackHeader(w io.Writer, manifest []byte) (uint64, error) {
	if uint64(len(manifest)) > 0xFFFFFFFF {
		return 0, fmt.Errorf("manifest too large: %d bytes", len(manifest))
	}

	buf := make([]byte, 0, fixedHeaderSize+len(manifest)+indexPointerSize)
	buf = append(buf, packMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(manifest)))
	buf = append(buf, manifest...)
	pointerPos := uint64(len(buf))
	buf = append(buf, make([]byte, indexPointerSize)...)

	if _, err := w.Write(buf); err != nil {
		return 0, err
	}
	return pointerPos, nil
}

// encodeIndexPointer returns the 12-byte index pointer.
func encodeIndexPointer(offset uint64, length uint32) []byte {
	buf := make([]byte, 0, indexPointerSize)
	buf = binary.LittleEndian.AppendUint64(buf, offset)
	buf = binary.LittleEndian.AppendUint32(buf, length)
	return buf
}

// readPackHeader reads and validates everything before the data region.
// size is the total length of the source.
func readPackHeader(r io.Reader, size uint64) (*packHeader, error) {
	if size < fixedHeaderSize {
		if size >= magicSize {
			magic := make([]byte, magicSize)
			if _, err := io.ReadFull(r, magic); err == nil && string(magic) != packMagic {
				return nil, newError("read header", "", ErrInvalidFormat, fmt.Errorf("bad magic %q", magic))
			}
		}
		return nil, newError("read header", "", ErrTruncated, fmt.Errorf("file is %d bytes, header needs %d", size, fixedHeaderSize))
	}

	fixed := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, newError("read header", "", ErrTruncated, err)
	}
	if string(fixed[:magicSize]) != packMagic {
		return nil, newError("read header", "", ErrInvalidFormat, fmt.Errorf("bad magic %q", fixed[:magicSize]))
	}

	h := &packHeader{
		Version: binary.LittleEndian.Uint32(fixed[magicSize:]),
	}
	if h.Version != FormatVersion {
		return nil, newError("read header", "", ErrInvalidFormat,
			fmt.Errorf("unsupported format version: %d (only %d is supported)", h.Version, FormatVersion))
	}

	manifestLen := uint64(binary.LittleEndian.Uint32(fixed[magicSize+4:]))
	if manifestLen > size-fixedHeaderSize || size-fixedHeaderSize-manifestLen < indexPointerSize {
		return nil, newError("read manifest", "", ErrTruncated,
			fmt.Errorf("manifest length %d exceeds remaining %d bytes", manifestLen, size-fixedHeaderSize))
	}

	h.Manifest = make([]byte, manifestLen)
	if _, err := io.ReadFull(r, h.Manifest); err != nil {
		return nil, newError("read manifest", "", ErrTruncated, err)
	}

	pointer := make([]byte, indexPointerSize)
	if _, err := io.ReadFull(r, pointer); err != nil {
		return nil, newError("read index pointer", "", ErrTruncated, err)
	}
	h.pointerStart = fixedHeaderSize + manifestLen
	h.dataStart = h.pointerStart + indexPointerSize
	h.IndexOffset = binary.LittleEndian.Uint64(pointer[0:8])
	h.IndexLength = binary.LittleEndian.Uint32(pointer[8:12])

	// A zero pointer is what an interrupted build leaves behind.
	if h.IndexOffset == 0 {
		return nil, newError("read index pointer", "", ErrCorruptPack, fmt.Errorf("index pointer was never written"))
	}
	if h.IndexOffset < h.dataStart {
		return nil, newError("read index pointer", "", ErrCorruptPack,
			fmt.Errorf("index offset %d points into the header (data starts at %d)", h.IndexOffset, h.dataStart))
	}
	if h.IndexOffset > size || uint64(h.IndexLength) > size-h.IndexOffset {
		return nil, newError("read index pointer", "", ErrTruncated,
			fmt.Errorf("index [%d, +%d) exceeds file size %d", h.IndexOffset, h.IndexLength, size))
	}

	return h, nil
}

// decodeManifest parses the manifest block.
func decodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, newError("parse manifest", "", ErrManifestParse, err)
	}
	return m, nil
}

// decodeIndex parses the index block and checks every entry lies inside
// the data region [dataStart, dataEnd).
func decodeIndex(data []byte, dataStart, dataEnd uint64) (map[string]FileEntry, error) {
	var list []FileEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, newError("parse index", "", ErrIndexParse, err)
	}

	entries := make(map[string]FileEntry, len(list))
	for _, e := range list {
		if e.Offset < dataStart || e.Offset > dataEnd || e.CompressedSize > dataEnd-e.Offset {
			return nil, newError("parse index", e.Path, ErrCorruptPack,
				fmt.Errorf("payload [%d, +%d) outside data region [%d, %d)", e.Offset, e.CompressedSize, dataStart, dataEnd))
		}
		entries[e.Path] = e
	}
	return entries, nil
}
