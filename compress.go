// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// zstdLevel is the zstd compression level used for every zstd payload.
const zstdLevel = 3

// lz4SizePrefix is the length of the little-endian original size that
// precedes every LZ4 block.
const lz4SizePrefix = 4

// LZ4 blocks cannot expand more than this factor, which bounds the
// allocation a forged size prefix can trigger.
const lz4MaxRatio = 255

// maxPrealloc caps the buffer reserved up front from an untrusted size.
// Larger zstd payloads are streamed instead of decoded in one call.
const maxPrealloc = 64 << 20

// Extensions that get compressed outside of Text and Script packs.
var zstdExtensions = map[string]bool{
	"txt":  true,
	"json": true,
	"xml":  true,
	"yaml": true,
	"csv":  true,
}

// Script extensions that get LZ4 in Script packs.
var lz4Extensions = map[string]bool{
	"lua": true,
	"js":  true,
	"py":  true,
}

// Encoders and decoders are safe for concurrent use and reused across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(zstdLevel)),
	)
	if err != nil {
		panic("lpack: zstd encoder initialization failed: " + err.Error())
	}

	// DecodeAll stops at cap(dst), so callers bound the output by the
	// capacity they pass in.
	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecodeAllCapLimit(true),
		zstd.WithDecoderMaxMemory(maxPrealloc),
	)
	if err != nil {
		panic("lpack: zstd decoder initialization failed: " + err.Error())
	}
}

// fileExtension returns the extension of a virtual path without the dot,
// lowercased. Names like ".profile" have no extension.
func fileExtension(virtualPath string) string {
	base := path.Base(virtualPath)
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// SelectCompression returns the codec the builder attempts for a file.
// The result is only a candidate: compressData still falls back to
// CompressionStore when the output is not strictly smaller.
func SelectCompression(packType PackType, virtualPath string) Compression {
	ext := fileExtension(virtualPath)
	switch packType {
	case PackText:
		return CompressionZstd
	case PackScript:
		if lz4Extensions[ext] {
			return CompressionLZ4
		}
		return CompressionStore
	default:
		if zstdExtensions[ext] {
			return CompressionZstd
		}
		return CompressionStore
	}
}

// compressData runs the build-time compression policy on one file. The
// compressed result is kept only when strictly smaller than data;
// otherwise data itself is returned with CompressionStore.
func compressData(packType PackType, virtualPath string, data []byte) ([]byte, Compression, error) {
	kind := SelectCompression(packType, virtualPath)
	if kind == CompressionStore {
		return data, CompressionStore, nil
	}

	compressed, err := Compress(data, kind)
	if err != nil {
		return nil, 0, err
	}
	if len(compressed) >= len(data) {
		return data, CompressionStore, nil
	}
	return compressed, kind, nil
}

// Compress encodes data with the given codec.
func Compress(data []byte, kind Compression) ([]byte, error) {
	switch kind {
	case CompressionStore:
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		return compressLZ4(data)
	default:
		return nil, fmt.Errorf("unsupported compression: %v", kind)
	}
}

// Decompress reverses Compress. originalSize is the size recorded in the
// index and must match the decoded length exactly.
func Decompress(data []byte, kind Compression, originalSize uint64) ([]byte, error) {
	switch kind {
	case CompressionStore:
		if uint64(len(data)) != originalSize {
			return nil, fmt.Errorf("stored payload is %d bytes, expected %d", len(data), originalSize)
		}
		return data, nil
	case CompressionZstd:
		return decompressZstd(data, originalSize)
	case CompressionLZ4:
		return decompressLZ4(data, originalSize)
	default:
		return nil, fmt.Errorf("unsupported compression: %v", kind)
	}
}

func decompressZstd(compressed []byte, originalSize uint64) ([]byte, error) {
	var header zstd.Header
	if err := header.Decode(compressed); err == nil && header.HasFCS && header.FrameContentSize != originalSize {
		return nil, fmt.Errorf("zstd decompress: frame declares %d bytes, expected %d", header.FrameContentSize, originalSize)
	}

	if originalSize == 0 || originalSize > maxPrealloc {
		return decompressZstdStream(compressed, originalSize)
	}

	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, originalSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if uint64(len(result)) != originalSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), originalSize)
	}
	return result, nil
}

// decompressZstdStream decodes through a reader limited to one byte past
// originalSize, so output grows only as far as the frame really decodes.
func decompressZstdStream(compressed []byte, originalSize uint64) ([]byte, error) {
	if originalSize >= math.MaxInt64 {
		return nil, fmt.Errorf("zstd decompress: original size %d out of range", originalSize)
	}

	decoder, err := zstd.NewReader(bytes.NewReader(compressed),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxWindow(maxPrealloc),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	defer decoder.Close()

	result, err := io.ReadAll(io.LimitReader(decoder, int64(originalSize)+1))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if uint64(len(result)) != originalSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), originalSize)
	}
	return result, nil
}

// compressLZ4 emits a size-prefixed LZ4 block.
func compressLZ4(data []byte) ([]byte, error) {
	if uint64(len(data)) > 0xFFFFFFFF {
		return nil, fmt.Errorf("lz4 compress: input of %d bytes exceeds size prefix", len(data))
	}

	destination := make([]byte, lz4SizePrefix+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(destination, uint32(len(data)))
	if len(data) == 0 {
		return destination[:lz4SizePrefix], nil
	}

	written, err := lz4.CompressBlock(data, destination[lz4SizePrefix:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 {
		return nil, fmt.Errorf("lz4 compress: block encoder produced no output")
	}
	return destination[:lz4SizePrefix+written], nil
}

func decompressLZ4(compressed []byte, originalSize uint64) ([]byte, error) {
	if len(compressed) < lz4SizePrefix {
		return nil, fmt.Errorf("lz4 decompress: payload too short for size prefix")
	}
	declared := uint64(binary.LittleEndian.Uint32(compressed))
	if declared != originalSize {
		return nil, fmt.Errorf("lz4 decompress: size prefix %d does not match expected %d", declared, originalSize)
	}

	if declared > uint64(len(compressed)-lz4SizePrefix)*lz4MaxRatio+lz4SizePrefix {
		return nil, fmt.Errorf("lz4 decompress: size prefix %d impossible for %d byte block", declared, len(compressed)-lz4SizePrefix)
	}

	destination := make([]byte, declared)
	if declared == 0 {
		return destination, nil
	}
	read, err := lz4.UncompressBlock(compressed[lz4SizePrefix:], destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint64(read) != declared {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, declared)
	}
	return destination, nil
}
