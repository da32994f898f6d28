// Package aesgcm implements the TokenCipher port with AES-256-GCM.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// FingerprintLength is the number of hex characters kept from the token digest.
const FingerprintLength = 10

// ErrInvalidKeySize is returned by New when the key is not KeySize bytes.
var ErrInvalidKeySize = errors.New("encryption key must be exactly 32 bytes")

// Compile-time interface satisfaction check.
var _ driven.TokenCipher = (*Cipher)(nil)

// Cipher encrypts tokens with AES-256-GCM. The user ID and panel URL are bound
// as additional authenticated data, so a blob only decrypts under the context
// it was created for.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext || tag).
func (c *Cipher) Encrypt(userID, panelURL, plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to nonce, producing: nonce || ciphertext || tag.
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), associatedData(userID, panelURL))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure, including a context
// mismatch, wraps model.ErrCrypto.
func (c *Cipher) Decrypt(userID, panelURL, blob string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", model.ErrCrypto, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", model.ErrCrypto)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, associatedData(userID, panelURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCrypto, err)
	}

	return string(plaintext), nil
}

// Fingerprint returns the last FingerprintLength hex characters of the
// token's SHA-256 digest.
func (c *Cipher) Fingerprint(plaintext string) string {
	return Fingerprint(plaintext)
}

// Fingerprint is the package-level form of (*Cipher).Fingerprint; it needs no
// key material.
func Fingerprint(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	digest := hex.EncodeToString(sum[:])
	return digest[len(digest)-FingerprintLength:]
}

func associatedData(userID, panelURL string) []byte {
	return []byte(userID + "|" + panelURL)
}
