package aesgcm

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

func newTestCipher(t *testing.T, fill byte) *Cipher {
	t.Helper()
	c, err := New(bytes.Repeat([]byte{fill}, KeySize))
	require.NoError(t, err)
	return c
}

func TestNew_RejectsWrongKeySize(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := New(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidKeySize, "key of %d bytes", n)
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, 0x42)

	for _, token := range []string{"ptlc_abc123", "", strings.Repeat("x", 4096), "ключ-🔑"} {
		blob, err := c.Encrypt("1001", "https://panel.example.com", token)
		require.NoError(t, err)

		got, err := c.Decrypt("1001", "https://panel.example.com", blob)
		require.NoError(t, err)
		assert.Equal(t, token, got)
	}
}

func TestCipher_BlobLayout(t *testing.T) {
	c := newTestCipher(t, 0x01)

	blob, err := c.Encrypt("1001", "https://panel.example.com", "ptlc_token")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	// 12-byte nonce + plaintext + 16-byte tag.
	assert.Len(t, raw, 12+len("ptlc_token")+16)
}

func TestCipher_FreshNoncePerCall(t *testing.T) {
	c := newTestCipher(t, 0x01)

	a, err := c.Encrypt("1001", "https://panel.example.com", "same")
	require.NoError(t, err)
	b, err := c.Encrypt("1001", "https://panel.example.com", "same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCipher_ContextBinding(t *testing.T) {
	c := newTestCipher(t, 0x07)

	blob, err := c.Encrypt("1001", "https://a.example", "ptlc_secret")
	require.NoError(t, err)

	_, err = c.Decrypt("1002", "https://a.example", blob)
	assert.ErrorIs(t, err, model.ErrCrypto, "different user must fail")

	_, err = c.Decrypt("1001", "https://b.example", blob)
	assert.ErrorIs(t, err, model.ErrCrypto, "different panel must fail")
}

func TestCipher_WrongKey(t *testing.T) {
	blob, err := newTestCipher(t, 0x01).Encrypt("1001", "https://a.example", "ptlc_secret")
	require.NoError(t, err)

	_, err = newTestCipher(t, 0x02).Decrypt("1001", "https://a.example", blob)
	assert.ErrorIs(t, err, model.ErrCrypto)
}

func TestCipher_TamperedBlob(t *testing.T) {
	c := newTestCipher(t, 0x01)

	blob, err := c.Encrypt("1001", "https://a.example", "ptlc_secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = c.Decrypt("1001", "https://a.example", base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, model.ErrCrypto)

	_, err = c.Decrypt("1001", "https://a.example", "not base64!!")
	assert.ErrorIs(t, err, model.ErrCrypto)

	_, err = c.Decrypt("1001", "https://a.example", base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, model.ErrCrypto)
}

func TestFingerprint(t *testing.T) {
	token := "ptlc_0123456789abcdefghijklmnopqrstuvwxyz"

	fp := Fingerprint(token)
	assert.Len(t, fp, FingerprintLength)
	assert.Equal(t, fp, Fingerprint(token), "fingerprint must be deterministic")
	assert.NotEqual(t, fp, Fingerprint(token+"x"))
	assert.Less(t, len(fp), len(token))
	assert.Equal(t, fp, newTestCipher(t, 0x09).Fingerprint(token))
}
