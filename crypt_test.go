// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package lpack

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	key := DeriveKey("my_super_secret_game_key_12345")
	assert.Equal(t, Key(sha256.Sum256([]byte("my_super_secret_game_key_12345"))), key)
	assert.NotEqual(t, key, DeriveKey("another secret"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveKey("secret")

	for _, plaintext := range [][]byte{nil, []byte("a"), []byte("hello, encrypted world")} {
		payload, err := Encrypt(plaintext, &key)
		require.NoError(t, err)
		assert.Len(t, payload, NonceSize+len(plaintext)+16)

		decrypted, err := Decrypt(payload, &key)
		require.NoError(t, err)
		assert.Equal(t, string(plaintext), string(decrypted))
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	key := DeriveKey("secret")
	plaintext := []byte("same input")

	a, err := Encrypt(plaintext, &key)
	require.NoError(t, err)
	b, err := Encrypt(plaintext, &key)
	require.NoError(t, err)

	assert.NotEqual(t, a[:NonceSize], b[:NonceSize])
	assert.NotEqual(t, a, b)
}

func TestDecryptFailures(t *testing.T) {
	key := DeriveKey("secret")
	wrong := DeriveKey("not the secret")

	payload, err := Encrypt([]byte("protected asset"), &key)
	require.NoError(t, err)

	_, err = Decrypt(payload, &wrong)
	assert.Error(t, err, "wrong key")

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-1] ^= 0x01
	_, err = Decrypt(tampered, &key)
	assert.Error(t, err, "tampered tag")

	tampered = append([]byte(nil), payload...)
	tampered[NonceSize] ^= 0x80
	_, err = Decrypt(tampered, &key)
	assert.Error(t, err, "tampered ciphertext")

	_, err = Decrypt(payload[:NonceSize+15], &key)
	assert.Error(t, err, "shorter than nonce and tag")
}

func TestCheckSecurityKey(t *testing.T) {
	assert.NoError(t, CheckSecurityKey("", ""))
	assert.NoError(t, CheckSecurityKey("", "anything"))
	assert.NoError(t, CheckSecurityKey("letmein", "letmein"))

	err := CheckSecurityKey("letmein", "guess")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, CheckSecurityKey("letmein", ""), ErrAccessDenied)
}
