// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// Source is the seekable byte source a Pack reads from. Open file handles,
// memory-mapped files and in-memory readers all satisfy it. If a Source
// also implements io.Closer, the Pack closes it on Close.
type Source interface {
	io.Reader
	io.Seeker
}

// sourceSize returns the total length of src and rewinds it.
func sourceSize(src Source) (uint64, error) {
	end, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek to end: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to start: %w", err)
	}
	return uint64(end), nil
}

// mappedSource adapts a memory-mapped file to Source.
type mappedSource struct {
	*io.SectionReader
	ra *mmap.ReaderAt
}

func (m *mappedSource) Close() error {
	return m.ra.Close()
}

// Open opens a pack file from disk.
func Open(path string, opts ...Option) (*Pack, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ioError("open pack", path, err)
	}

	pack, err := Load(file, path, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	return pack, nil
}

// OpenMapped opens a pack file through a read-only memory mapping. Reads
// are served from the page cache without a system call per file.
func OpenMapped(path string, opts ...Option) (*Pack, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, ioError("map pack", path, err)
	}

	src := &mappedSource{
		SectionReader: io.NewSectionReader(ra, 0, int64(ra.Len())),
		ra:            ra,
	}
	pack, err := Load(src, path, opts...)
	if err != nil {
		ra.Close()
		return nil, err
	}
	return pack, nil
}

// LoadFromMemory loads a pack held entirely in memory, for hosts without a
// filesystem. The pack keeps a reference to data; callers must not modify
// it afterwards.
func LoadFromMemory(data []byte, opts ...Option) (*Pack, error) {
	return Load(bytes.NewReader(data), "memory", opts...)
}
