package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

const credentialColumns = `
	id, user_id, panel_url, label, ciphertext, key_version, fingerprint,
	is_default, revoked, created_at, last_verified_at, last_used_at`

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// It persists ciphertext only; tokens are encrypted before they reach this layer.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Create inserts a credential. The group-emptiness check and the insert share
// one transaction so the first credential of a group is always the default.
func (r *CredentialRepo) Create(ctx context.Context, cred model.Credential) (model.Credential, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.Credential{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const countQuery = `SELECT COUNT(*) FROM credentials WHERE user_id = ? AND panel_url = ?`
	var existing int
	if err := tx.QueryRowContext(ctx, countQuery, cred.UserID, cred.PanelURL).Scan(&existing); err != nil {
		return model.Credential{}, fmt.Errorf("count credentials for %s: %w", cred.PanelURL, err)
	}
	cred.IsDefault = existing == 0

	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	cred.CreatedAt = createdAt.UTC()

	const insertQuery = `
		INSERT INTO credentials (
			user_id, panel_url, label, ciphertext, key_version, fingerprint,
			is_default, revoked, created_at, last_verified_at, last_used_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, insertQuery,
		cred.UserID, cred.PanelURL, nullString(cred.Label), cred.Ciphertext, cred.KeyVersion, cred.Fingerprint,
		boolToInt(cred.IsDefault), boolToInt(cred.Revoked), formatTime(cred.CreatedAt),
		formatNullTime(cred.LastVerifiedAt), formatNullTime(cred.LastUsedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Credential{}, fmt.Errorf("create credential %s label %q: %w", cred.PanelURL, cred.Label, model.ErrDuplicateLabel)
		}
		return model.Credential{}, fmt.Errorf("create credential %s: %w", cred.PanelURL, err)
	}

	cred.ID, err = result.LastInsertId()
	if err != nil {
		return model.Credential{}, fmt.Errorf("get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return model.Credential{}, fmt.Errorf("create credential %s label %q: %w", cred.PanelURL, cred.Label, model.ErrDuplicateLabel)
		}
		return model.Credential{}, fmt.Errorf("commit credential %s: %w", cred.PanelURL, err)
	}

	return cred, nil
}

// ListByUser returns every credential of a user ordered by panel URL, then ID.
func (r *CredentialRepo) ListByUser(ctx context.Context, userID string) ([]model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE user_id = ? ORDER BY panel_url, id`
	return r.queryCredentials(ctx, query, userID)
}

// ListByPanel returns the (user, panel) group in insertion order.
func (r *CredentialRepo) ListByPanel(ctx context.Context, userID, panelURL string) ([]model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE user_id = ? AND panel_url = ? ORDER BY id`
	return r.queryCredentials(ctx, query, userID, panelURL)
}

// ListPanels returns the distinct panel URLs of a user, sorted ascending.
func (r *CredentialRepo) ListPanels(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT DISTINCT panel_url FROM credentials WHERE user_id = ? ORDER BY panel_url`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	defer rows.Close()

	panels := []string{}
	for rows.Next() {
		var panel string
		if err := rows.Scan(&panel); err != nil {
			return nil, fmt.Errorf("scan panel: %w", err)
		}
		panels = append(panels, panel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate panels: %w", err)
	}

	return panels, nil
}

// SetDefault moves the default flag to the labeled credential. The clear and
// the set commit together, or not at all when the label does not exist.
func (r *CredentialRepo) SetDefault(ctx context.Context, userID, panelURL, label string) (bool, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const findQuery = `SELECT id FROM credentials WHERE user_id = ? AND panel_url = ? AND label = ?`
	var id int64
	err = tx.QueryRowContext(ctx, findQuery, userID, panelURL, label).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find credential %s label %q: %w", panelURL, label, err)
	}

	const clearQuery = `UPDATE credentials SET is_default = 0 WHERE user_id = ? AND panel_url = ?`
	if _, err := tx.ExecContext(ctx, clearQuery, userID, panelURL); err != nil {
		return false, fmt.Errorf("clear default for %s: %w", panelURL, err)
	}

	const setQuery = `UPDATE credentials SET is_default = 1 WHERE id = ?`
	if _, err := tx.ExecContext(ctx, setQuery, id); err != nil {
		return false, fmt.Errorf("set default credential %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit default for %s: %w", panelURL, err)
	}

	return true, nil
}

// DeleteDefault removes the group's default credential. At most one row is
// removed even if the group somehow carries several defaults.
func (r *CredentialRepo) DeleteDefault(ctx context.Context, userID, panelURL string) (int64, error) {
	const query = `
		DELETE FROM credentials
		WHERE id = (
			SELECT id FROM credentials
			WHERE user_id = ? AND panel_url = ? AND is_default = 1
			ORDER BY id
			LIMIT 1
		)
	`
	return r.exec(ctx, "delete default credential", query, userID, panelURL)
}

// DeleteByLabel removes the labeled credential of the group.
func (r *CredentialRepo) DeleteByLabel(ctx context.Context, userID, panelURL, label string) (int64, error) {
	const query = `DELETE FROM credentials WHERE user_id = ? AND panel_url = ? AND label = ?`
	return r.exec(ctx, "delete credential by label", query, userID, panelURL, label)
}

// DeleteByUser removes every credential of a user.
func (r *CredentialRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM credentials WHERE user_id = ?`
	return r.exec(ctx, "delete user credentials", query, userID)
}

// DeleteAll removes every credential.
func (r *CredentialRepo) DeleteAll(ctx context.Context) (int64, error) {
	const query = `DELETE FROM credentials`
	return r.exec(ctx, "delete all credentials", query)
}

// DeleteInactive removes revoked credentials and credentials inactive since cutoff.
func (r *CredentialRepo) DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM credentials
		WHERE revoked = 1
		   OR COALESCE(last_used_at, created_at) <= ?
	`
	return r.exec(ctx, "delete inactive credentials", query, formatTime(cutoff))
}

// TouchLastUsed records a use of the credential.
func (r *CredentialRepo) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE credentials SET last_used_at = ? WHERE id = ?`
	return r.updateOne(ctx, "touch credential", id, query, formatTime(at), id)
}

// MarkVerified records a successful validation against the panel.
func (r *CredentialRepo) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE credentials SET last_verified_at = ? WHERE id = ?`
	return r.updateOne(ctx, "mark credential verified", id, query, formatTime(at), id)
}

// Revoke flags the credential for removal by the next purge.
func (r *CredentialRepo) Revoke(ctx context.Context, id int64) error {
	const query = `UPDATE credentials SET revoked = 1 WHERE id = ?`
	return r.updateOne(ctx, "revoke credential", id, query, id)
}

func (r *CredentialRepo) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}

func (r *CredentialRepo) updateOne(ctx context.Context, op string, id int64, query string, args ...any) error {
	n, err := r.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, model.ErrCredentialNotFound)
	}
	return nil
}

func (r *CredentialRepo) queryCredentials(ctx context.Context, query string, args ...any) ([]model.Credential, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	creds := []model.Credential{}
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (*model.Credential, error) {
	var cred model.Credential
	var label, lastVerifiedAt, lastUsedAt sql.NullString
	var isDefault, revoked int
	var createdAt string

	err := s.Scan(
		&cred.ID, &cred.UserID, &cred.PanelURL, &label, &cred.Ciphertext, &cred.KeyVersion, &cred.Fingerprint,
		&isDefault, &revoked, &createdAt, &lastVerifiedAt, &lastUsedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.Label = label.String
	cred.IsDefault = isDefault != 0
	cred.Revoked = revoked != 0

	cred.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	cred.LastVerifiedAt, err = parseNullTime(lastVerifiedAt)
	if err != nil {
		return nil, fmt.Errorf("parse last_verified_at: %w", err)
	}

	cred.LastUsedAt, err = parseNullTime(lastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("parse last_used_at: %w", err)
	}

	return &cred, nil
}
