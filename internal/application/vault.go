// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// DefaultLabelAlphabet is the set of single-character labels accepted when
// VaultConfig.LabelAlphabet is empty.
const DefaultLabelAlphabet = "123456789"

// VaultConfig carries the settings a Vault needs at construction.
type VaultConfig struct {
	// KeyVersion is stamped on every newly linked credential.
	KeyVersion int
	// LabelAlphabet lists the characters allowed as labels.
	LabelAlphabet string
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Vault is the credential vault: it encrypts tokens before they reach the
// store and applies the default-selection rules of a (user, panel) group.
// Every method maps to a single store operation, so each commits or fails as
// one transaction.
type Vault struct {
	store      driven.CredentialStore
	cipher     driven.TokenCipher
	keyVersion int
	alphabet   string
	now        func() time.Time
	logger     *slog.Logger
	metrics    *Metrics
}

// NewVault creates a Vault.
func NewVault(store driven.CredentialStore, cipher driven.TokenCipher, cfg VaultConfig, logger *slog.Logger, metrics *Metrics) *Vault {
	if cfg.LabelAlphabet == "" {
		cfg.LabelAlphabet = DefaultLabelAlphabet
	}
	if cfg.KeyVersion <= 0 {
		cfg.KeyVersion = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Vault{
		store:      store,
		cipher:     cipher,
		keyVersion: cfg.KeyVersion,
		alphabet:   cfg.LabelAlphabet,
		now:        cfg.Now,
		logger:     logger,
		metrics:    metrics.orNop(),
	}
}

// Link encrypts token and stores it as a new credential. The first credential
// of a group becomes its default. A label already used in the group fails
// with model.ErrDuplicateLabel; an empty label never conflicts.
func (v *Vault) Link(ctx context.Context, userID, panelURL, token, label string) (model.Credential, error) {
	cred, err := v.prepare(userID, panelURL, token, label)
	if err != nil {
		return model.Credential{}, err
	}

	created, err := v.store.Create(ctx, cred)
	if err != nil {
		return model.Credential{}, fmt.Errorf("link credential: %w", err)
	}

	v.logger.Info("credential linked",
		"user_id", created.UserID,
		"panel", created.PanelURL,
		"label", created.Label,
		"fingerprint", created.Fingerprint,
		"default", created.IsDefault,
	)

	return created, nil
}

// prepare validates the inputs of Link and builds the encrypted row.
func (v *Vault) prepare(userID, panelURL, token, label string) (model.Credential, error) {
	if err := validateUserID(userID); err != nil {
		return model.Credential{}, err
	}

	panel, err := model.NormalizePanelURL(panelURL)
	if err != nil {
		return model.Credential{}, err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return model.Credential{}, model.ErrEmptyToken
	}

	if err := v.validateLabel(label, true); err != nil {
		return model.Credential{}, err
	}

	blob, err := v.cipher.Encrypt(userID, panel, token)
	if err != nil {
		return model.Credential{}, fmt.Errorf("encrypt token: %w", err)
	}

	return model.Credential{
		UserID:      userID,
		PanelURL:    panel,
		Label:       label,
		Ciphertext:  blob,
		KeyVersion:  v.keyVersion,
		Fingerprint: v.cipher.Fingerprint(token),
		CreatedAt:   v.now(),
	}, nil
}

// List returns every credential of the user across all panels.
func (v *Vault) List(ctx context.Context, userID string) ([]model.Credential, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	creds, err := v.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// Panels returns the distinct panels the user holds credentials for, sorted
// ascending.
func (v *Vault) Panels(ctx context.Context, userID string) ([]string, error) {
	panels, err := v.store.ListPanels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	return panels, nil
}

// SetDefault makes the labeled credential the group default. It returns false
// and changes nothing when no credential carries the label.
func (v *Vault) SetDefault(ctx context.Context, userID, panelURL, label string) (bool, error) {
	panel, err := v.group(userID, panelURL)
	if err != nil {
		return false, err
	}
	if err := v.validateLabel(label, false); err != nil {
		return false, err
	}

	ok, err := v.store.SetDefault(ctx, userID, panel, label)
	if err != nil {
		return false, fmt.Errorf("set default: %w", err)
	}
	return ok, nil
}

// Delete removes the labeled credential, or the group default when label is
// empty. It returns the number of rows removed. Removing the default leaves
// the group without one.
func (v *Vault) Delete(ctx context.Context, userID, panelURL, label string) (int64, error) {
	panel, err := v.group(userID, panelURL)
	if err != nil {
		return 0, err
	}

	var n int64
	if label == "" {
		n, err = v.store.DeleteDefault(ctx, userID, panel)
	} else {
		if err := v.validateLabel(label, false); err != nil {
			return 0, err
		}
		n, err = v.store.DeleteByLabel(ctx, userID, panel, label)
	}
	if err != nil {
		return 0, fmt.Errorf("delete credential: %w", err)
	}

	return n, nil
}

// WipeUser removes every credential of the user.
func (v *Vault) WipeUser(ctx context.Context, userID string) (int64, error) {
	if err := validateUserID(userID); err != nil {
		return 0, err
	}

	n, err := v.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("wipe user credentials: %w", err)
	}
	v.logger.Info("user credentials wiped", "user_id", userID, "removed", n)
	return n, nil
}

// WipeAll removes every credential in the vault.
func (v *Vault) WipeAll(ctx context.Context) (int64, error) {
	n, err := v.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("wipe all credentials: %w", err)
	}
	v.logger.Warn("all credentials wiped", "removed", n)
	return n, nil
}

// Reveal returns the plaintext token of the group credential chosen by
// preferLabel, the default, or the oldest row, in that order.
func (v *Vault) Reveal(ctx context.Context, userID, panelURL, preferLabel string) (string, error) {
	_, token, err := v.RevealCredential(ctx, userID, panelURL, preferLabel)
	return token, err
}

// RevealCredential is Reveal that also returns the chosen credential. The
// chosen row's last-used time is touched before returning; a row removed
// concurrently by a purge yields model.ErrCredentialNotFound.
func (v *Vault) RevealCredential(ctx context.Context, userID, panelURL, preferLabel string) (model.Credential, string, error) {
	cred, token, err := v.reveal(ctx, userID, panelURL, preferLabel)
	v.metrics.Reveals.WithLabelValues(errorClass(err)).Inc()
	return cred, token, err
}

func (v *Vault) reveal(ctx context.Context, userID, panelURL, preferLabel string) (model.Credential, string, error) {
	panel, err := v.group(userID, panelURL)
	if err != nil {
		return model.Credential{}, "", err
	}

	creds, err := v.store.ListByPanel(ctx, userID, panel)
	if err != nil {
		return model.Credential{}, "", fmt.Errorf("load credentials: %w", err)
	}

	cred, ok := selectCredential(creds, preferLabel)
	if !ok {
		return model.Credential{}, "", fmt.Errorf("reveal %s: %w", panel, model.ErrCredentialNotFound)
	}

	token, err := v.cipher.Decrypt(cred.UserID, cred.PanelURL, cred.Ciphertext)
	if err != nil {
		v.logger.Error("credential decryption failed",
			"user_id", userID,
			"panel", panel,
			"credential_id", cred.ID,
			"key_version", cred.KeyVersion,
		)
		return model.Credential{}, "", fmt.Errorf("reveal %s: %w", panel, err)
	}

	usedAt := v.now()
	if err := v.store.TouchLastUsed(ctx, cred.ID, usedAt); err != nil {
		return model.Credential{}, "", fmt.Errorf("reveal %s: %w", panel, err)
	}
	cred.LastUsedAt = &usedAt

	return cred, token, nil
}

// selectCredential applies the reveal order: exact label, then default, then
// the first row in storage order.
func selectCredential(creds []model.Credential, preferLabel string) (model.Credential, bool) {
	if len(creds) == 0 {
		return model.Credential{}, false
	}

	if preferLabel != "" {
		for _, c := range creds {
			if c.Label == preferLabel {
				return c, true
			}
		}
	}

	for _, c := range creds {
		if c.IsDefault {
			return c, true
		}
	}

	return creds[0], true
}

// TokenFor reveals the user's token for a panel for the resolver. A group
// with no credential is reported as ok=false rather than an error.
func (v *Vault) TokenFor(ctx context.Context, userID, panelURL string) (string, bool, error) {
	token, err := v.Reveal(ctx, userID, panelURL, "")
	if errors.Is(err, model.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// MarkVerified records that the panel accepted the credential just now and
// returns the recorded time.
func (v *Vault) MarkVerified(ctx context.Context, id int64) (time.Time, error) {
	at := v.now()
	if err := v.store.MarkVerified(ctx, id, at); err != nil {
		return time.Time{}, fmt.Errorf("mark verified: %w", err)
	}
	return at, nil
}

// Revoke flags the credential so the next purge removes it.
func (v *Vault) Revoke(ctx context.Context, id int64) error {
	if err := v.store.Revoke(ctx, id); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	v.logger.Info("credential revoked", "credential_id", id)
	return nil
}

// Purge removes revoked credentials and those whose last activity is at
// least olderThanDays old. It is safe to run concurrently with other calls.
func (v *Vault) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("%w: purge horizon must not be negative", model.ErrValidation)
	}

	cutoff := v.now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	n, err := v.store.DeleteInactive(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge credentials: %w", err)
	}
	return n, nil
}

// group validates a (user, panel) pair and returns the normalized panel.
func (v *Vault) group(userID, panelURL string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}
	return model.NormalizePanelURL(panelURL)
}

// validateLabel accepts exactly one character from the alphabet. allowEmpty
// permits the unlabeled case.
func (v *Vault) validateLabel(label string, allowEmpty bool) error {
	if label == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: label is required", model.ErrInvalidLabel)
	}

	r, size := utf8.DecodeRuneInString(label)
	if size != len(label) || r == utf8.RuneError || !strings.ContainsRune(v.alphabet, r) {
		return fmt.Errorf("%w: %q (allowed: %s)", model.ErrInvalidLabel, label, v.alphabet)
	}
	return nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", model.ErrValidation)
	}
	return nil
}
