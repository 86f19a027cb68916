// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"encoding/json"
	"os"

	"github.com/tidwall/jsonc"
)

// ParseManifest parses a manifest from JSON. Comments and trailing commas
// are accepted.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return Manifest{}, newError("parse manifest", "", ErrManifestParse, err)
	}
	return m, nil
}

// ReadManifestFile reads a pack.json style manifest from disk.
func ReadManifestFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, ioError("read manifest", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, withSource(err, path)
	}
	return m, nil
}
