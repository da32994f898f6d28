package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

// CredentialStore defines the driven port for credential persistence. It
// stores ciphertext only; encryption happens above it. Every method runs in a
// single storage transaction that is committed before it returns.
type CredentialStore interface {
	// Create inserts cred and returns it with ID and IsDefault populated.
	// IsDefault is true exactly when no other credential exists for the
	// (UserID, PanelURL) group at insert time. A duplicate non-empty label
	// returns model.ErrDuplicateLabel.
	Create(ctx context.Context, cred model.Credential) (model.Credential, error)

	// ListByUser returns every credential of a user ordered by panel, then ID.
	ListByUser(ctx context.Context, userID string) ([]model.Credential, error)

	// ListByPanel returns the credentials of one (user, panel) group in
	// storage order.
	ListByPanel(ctx context.Context, userID, panelURL string) ([]model.Credential, error)

	// ListPanels returns the distinct panel URLs the user has credentials for,
	// sorted ascending.
	ListPanels(ctx context.Context, userID string) ([]string, error)

	// SetDefault clears the default flag across the group and sets it on the
	// credential with the given label. Returns false and changes nothing if
	// no credential carries that label.
	SetDefault(ctx context.Context, userID, panelURL, label string) (bool, error)

	// DeleteDefault removes the group's default credential, if any.
	DeleteDefault(ctx context.Context, userID, panelURL string) (int64, error)

	// DeleteByLabel removes the group's credential with the given label, if any.
	DeleteByLabel(ctx context.Context, userID, panelURL, label string) (int64, error)

	// DeleteByUser removes every credential of a user.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// DeleteAll removes every credential.
	DeleteAll(ctx context.Context) (int64, error)

	// DeleteInactive removes revoked credentials and credentials whose last
	// activity (last_used_at, falling back to created_at) is at or before cutoff.
	DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error)

	// TouchLastUsed sets last_used_at. Returns model.ErrCredentialNotFound
	// when the row no longer exists.
	TouchLastUsed(ctx context.Context, id int64, at time.Time) error

	// MarkVerified sets last_verified_at. Returns model.ErrCredentialNotFound
	// when the row no longer exists.
	MarkVerified(ctx context.Context, id int64, at time.Time) error

	// Revoke flags the credential as revoked. Returns
	// model.ErrCredentialNotFound when the row no longer exists.
	Revoke(ctx context.Context, id int64) error
}
