// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"errors"
	"fmt"
)

// Error kinds. Errors from loading, reading, building and resolving packs
// are *Error values whose Kind matches one of these with errors.Is. The
// codec helpers (Compress, Decompress, Encrypt, Decrypt) return plain
// errors; ReadFile and Builder report them as ErrDecompress, ErrDecrypt or
// ErrBuildSource.
var (
	ErrInvalidFormat   = errors.New("invalid pack format")
	ErrTruncated       = errors.New("truncated input")
	ErrManifestParse   = errors.New("manifest parse error")
	ErrIndexParse      = errors.New("index parse error")
	ErrCorruptPack     = errors.New("corrupt pack")
	ErrNotFound        = errors.New("path not found")
	ErrDecompress      = errors.New("decompression failure")
	ErrDecrypt         = errors.New("decryption failure")
	ErrIO              = errors.New("i/o failure")
	ErrBuildSource     = errors.New("build source error")
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrAccessDenied    = errors.New("access denied")
)

// Error records a failed operation together with its kind and cause.
type Error struct {
	Op   string // operation, e.g. "read file"
	Path string // virtual path or file name, may be empty
	Kind error  // one of the Err* kinds
	Err  error  // underlying cause, may be nil
}

func newError(op, path string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ioError wraps an I/O failure unless it is already a typed pack error.
func ioError(op, path string, err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return newError(op, path, ErrIO, err)
}

// buildError wraps a failure while reading the build source.
func buildError(path string, format string, args ...any) error {
	return newError("build", path, ErrBuildSource, fmt.Errorf(format, args...))
}
