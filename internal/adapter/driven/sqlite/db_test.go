package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_FileBacked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Ping(ctx))

	var mode string
	require.NoError(t, db.Reader.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	assert.Equal(t, writerConns, db.Writer.Stats().MaxOpenConnections)
	assert.Equal(t, readerConns, db.Reader.Stats().MaxOpenConnections)
}

func TestDB_PingAfterClose(t *testing.T) {
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, db.Ping(context.Background()))
}
