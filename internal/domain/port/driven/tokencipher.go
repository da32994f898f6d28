package driven

// TokenCipher encrypts panel tokens bound to the (user, panel) context they
// were linked under. Decrypt must fail with model.ErrCrypto when the context
// differs from the one used at encryption time.
type TokenCipher interface {
	Encrypt(userID, panelURL, plaintext string) (string, error)
	Decrypt(userID, panelURL, blob string) (string, error)

	// Fingerprint returns a short one-way digest of the token for display.
	Fingerprint(plaintext string) string
}
