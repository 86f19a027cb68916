// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
)

// KeySize is the size of an AES-256-GCM key.
const KeySize = 32

// NonceSize is the size of the per-file nonce prepended to every
// encrypted payload.
const NonceSize = 12

// Key is a payload encryption key. Packs never store key material; only
// the per-file nonce travels with the ciphertext.
type Key [KeySize]byte

// DeriveKey turns an application secret into a Key by hashing it with
// SHA-256. The secret is opaque configuration supplied at runtime.
func DeriveKey(secret string) Key {
	return Key(sha256.Sum256([]byte(secret)))
}

// newGCM returns an AES-256-GCM AEAD for key.
func newGCM(key *Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext with a fresh random nonce and returns
// nonce || ciphertext || tag.
func Encrypt(plaintext []byte, key *Key) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	output := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, output); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(output, output[:NonceSize], plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt. A wrong key or any
// modification of the payload fails authentication.
func Decrypt(payload []byte, key *Key) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(payload) < NonceSize+aead.Overhead() {
		return nil, fmt.Errorf("encrypted payload is %d bytes, minimum is %d (nonce + tag)",
			len(payload), NonceSize+aead.Overhead())
	}

	plaintext, err := aead.Open(nil, payload[:NonceSize], payload[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("wrong key or tampered data: %w", err)
	}
	return plaintext, nil
}

// CheckSecurityKey compares a caller-supplied access key against the
// configured one in constant time. An empty expected key disables the
// check. This is obfuscation for embedders that ship the key with their
// binary, not access control.
func CheckSecurityKey(expected, supplied string) error {
	if expected == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) != 1 {
		return newError("check security key", "", ErrAccessDenied, nil)
	}
	return nil
}
