package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AliasStore = (*AliasRepo)(nil)

// AliasRepo is the SQLite implementation of the AliasStore port interface.
type AliasRepo struct {
	db *DB
}

// NewAliasRepo creates a new AliasRepo backed by the given DB.
func NewAliasRepo(db *DB) *AliasRepo {
	return &AliasRepo{db: db}
}

// Upsert inserts or updates an alias. On conflict the target UUID and panel
// binding are replaced.
func (r *AliasRepo) Upsert(ctx context.Context, alias model.Alias) error {
	const query = `
		INSERT INTO server_aliases (alias, server_uuid, panel_url)
		VALUES (?, ?, ?)
		ON CONFLICT(alias) DO UPDATE SET
			server_uuid = excluded.server_uuid,
			panel_url = excluded.panel_url
	`

	_, err := r.db.Writer.ExecContext(ctx, query, alias.Name, alias.ServerUUID, nullString(alias.PanelURL))
	if err != nil {
		return fmt.Errorf("upsert alias %q: %w", alias.Name, err)
	}

	return nil
}

// GetByName retrieves an alias by exact name. Returns (nil, nil) if the alias
// does not exist.
func (r *AliasRepo) GetByName(ctx context.Context, name string) (*model.Alias, error) {
	const query = `SELECT id, alias, server_uuid, panel_url FROM server_aliases WHERE alias = ?`

	alias, err := scanAlias(r.db.Reader.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alias %q: %w", name, err)
	}

	return alias, nil
}

// ListAll returns all aliases ordered by name.
func (r *AliasRepo) ListAll(ctx context.Context) ([]model.Alias, error) {
	const query = `SELECT id, alias, server_uuid, panel_url FROM server_aliases ORDER BY alias`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	aliases := []model.Alias{}
	for rows.Next() {
		alias, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, *alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}

	return aliases, nil
}

// Delete removes an alias by name.
func (r *AliasRepo) Delete(ctx context.Context, name string) error {
	const query = `DELETE FROM server_aliases WHERE alias = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("delete alias %q: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete alias %q: %w", name, model.ErrNotFound)
	}

	return nil
}

func scanAlias(s scanner) (*model.Alias, error) {
	var alias model.Alias
	var panelURL sql.NullString

	if err := s.Scan(&alias.ID, &alias.Name, &alias.ServerUUID, &panelURL); err != nil {
		return nil, err
	}
	alias.PanelURL = panelURL.String

	return &alias, nil
}
