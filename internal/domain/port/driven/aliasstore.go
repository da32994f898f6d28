package driven

import (
	"context"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

// AliasStore defines the driven port for server alias persistence.
type AliasStore interface {
	// Upsert creates the alias or replaces the target UUID and panel binding
	// of an existing alias with the same name.
	Upsert(ctx context.Context, alias model.Alias) error

	// GetByName returns the alias with exactly this name (case-sensitive).
	// Returns (nil, nil) if it does not exist.
	GetByName(ctx context.Context, name string) (*model.Alias, error)

	ListAll(ctx context.Context) ([]model.Alias, error)

	// Delete removes the alias. Returns model.ErrNotFound if it does not exist.
	Delete(ctx context.Context, name string) error
}
