// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"crypto/sha256"
	"encoding/hex"
)

// contentHash returns the lowercase hex SHA-256 of data.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
