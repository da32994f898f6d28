package model

import "time"

// Credential is one encrypted panel token linked by a user. UserID and
// PanelURL form the credential's group; Label is empty when the credential
// was linked without one.
type Credential struct {
	ID             int64
	UserID         string
	PanelURL       string
	Label          string
	Ciphertext     string
	KeyVersion     int
	Fingerprint    string
	IsDefault      bool
	Revoked        bool
	CreatedAt      time.Time
	LastVerifiedAt *time.Time
	LastUsedAt     *time.Time
}

// HasLabel reports whether the credential carries a label.
func (c Credential) HasLabel() bool {
	return c.Label != ""
}

// LastActivity returns LastUsedAt when set, otherwise CreatedAt. The purge
// sweep ages credentials by this value.
func (c Credential) LastActivity() time.Time {
	if c.LastUsedAt != nil {
		return *c.LastUsedAt
	}
	return c.CreatedAt
}
