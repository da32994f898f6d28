package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// MaxAliasLength bounds alias names.
const MaxAliasLength = 64

// AliasDirectory validates and manages server aliases. Role checks are the
// caller's responsibility.
type AliasDirectory struct {
	store  driven.AliasStore
	logger *slog.Logger
}

// NewAliasDirectory creates an AliasDirectory.
func NewAliasDirectory(store driven.AliasStore, logger *slog.Logger) *AliasDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &AliasDirectory{store: store, logger: logger}
}

// Set creates or replaces an alias. panelURL is optional; when given it is
// normalized and the alias resolves without probing any panel.
func (d *AliasDirectory) Set(ctx context.Context, name, serverUUID, panelURL string) (model.Alias, error) {
	name = strings.TrimSpace(name)
	if err := validateAliasName(name); err != nil {
		return model.Alias{}, err
	}

	serverUUID = strings.TrimSpace(serverUUID)
	if !model.IsServerUUID(serverUUID) {
		return model.Alias{}, fmt.Errorf("%w: %q", model.ErrInvalidServerUUID, serverUUID)
	}

	alias := model.Alias{Name: name, ServerUUID: serverUUID}
	if strings.TrimSpace(panelURL) != "" {
		panel, err := model.NormalizePanelURL(panelURL)
		if err != nil {
			return model.Alias{}, err
		}
		alias.PanelURL = panel
	}

	if err := d.store.Upsert(ctx, alias); err != nil {
		return model.Alias{}, fmt.Errorf("set alias: %w", err)
	}

	d.logger.Info("alias set", "alias", alias.Name, "server_uuid", alias.ServerUUID, "panel", alias.PanelURL)
	return alias, nil
}

// Get returns the alias or model.ErrNotFound.
func (d *AliasDirectory) Get(ctx context.Context, name string) (model.Alias, error) {
	alias, err := d.store.GetByName(ctx, name)
	if err != nil {
		return model.Alias{}, fmt.Errorf("get alias: %w", err)
	}
	if alias == nil {
		return model.Alias{}, fmt.Errorf("alias %q: %w", name, model.ErrNotFound)
	}
	return *alias, nil
}

// List returns every alias ordered by name.
func (d *AliasDirectory) List(ctx context.Context) ([]model.Alias, error) {
	aliases, err := d.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return aliases, nil
}

// Delete removes an alias. A missing alias is model.ErrNotFound.
func (d *AliasDirectory) Delete(ctx context.Context, name string) error {
	if err := d.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	d.logger.Info("alias deleted", "alias", name)
	return nil
}

func validateAliasName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", model.ErrInvalidAlias)
	}
	if utf8.RuneCountInString(name) > MaxAliasLength {
		return fmt.Errorf("%w: name longer than %d characters", model.ErrInvalidAlias, MaxAliasLength)
	}
	// A UUID-shaped alias could never be looked up; the resolver takes the
	// UUID branch first.
	if model.IsServerUUID(name) {
		return fmt.Errorf("%w: name must not be a server uuid", model.ErrInvalidAlias)
	}
	return nil
}
