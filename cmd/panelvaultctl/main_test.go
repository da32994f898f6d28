package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelvault/internal/adapter/driven/aesgcm"
	"github.com/ericfisherdev/panelvault/internal/adapter/driven/redislock"
	sqliteadapter "github.com/ericfisherdev/panelvault/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/panelvault/internal/application"
	"github.com/ericfisherdev/panelvault/internal/config"
	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

const testServerUUID = "0f3c9a1e-8d42-4b6f-9c11-2a7e5d4b3c21"

func openTestDB(t *testing.T) (*sqliteadapter.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")
	db, err := openDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestGenerateDataKey(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, generateDataKey(bytes.NewReader(bytes.Repeat([]byte{7}, 64)), &out))

	key, err := base64.StdEncoding.Strict().DecodeString(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{7}, config.EncryptionKeySize), key)
}

func TestGenerateDataKey_ShortRead(t *testing.T) {
	err := generateDataKey(bytes.NewReader([]byte{1, 2, 3}), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDataKeyGenerateCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"data-key", "generate"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Len(t, key, config.EncryptionKeySize)

	// The output must be accepted by the server's key loader.
	_, err = aesgcm.New(key)
	assert.NoError(t, err)
}

func TestAliasSetAndList(t *testing.T) {
	db, _ := openTestDB(t)
	dir := application.NewAliasDirectory(sqliteadapter.NewAliasRepo(db), nil)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, setAlias(ctx, dir, &out, "survival", testServerUUID, "https://Panel.Example.com/"))
	assert.Equal(t, "survival -> "+testServerUUID+" on https://panel.example.com\n", out.String())

	out.Reset()
	require.NoError(t, setAlias(ctx, dir, &out, "creative", testServerUUID, ""))
	assert.Equal(t, "creative -> "+testServerUUID+"\n", out.String())

	out.Reset()
	require.NoError(t, listAliases(ctx, dir, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ALIAS"))
	assert.True(t, strings.HasPrefix(lines[1], "creative"))
	assert.Contains(t, lines[1], " -")
	assert.True(t, strings.HasPrefix(lines[2], "survival"))
	assert.Contains(t, lines[2], "https://panel.example.com")
}

func TestAliasSet_RejectsBadUUID(t *testing.T) {
	db, _ := openTestDB(t)
	dir := application.NewAliasDirectory(sqliteadapter.NewAliasRepo(db), nil)

	err := setAlias(context.Background(), dir, &bytes.Buffer{}, "survival", "not-a-uuid", "")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPurgeOnce(t *testing.T) {
	db, _ := openTestDB(t)
	cipher, err := aesgcm.New(bytes.Repeat([]byte{0x42}, config.EncryptionKeySize))
	require.NoError(t, err)

	ctx := context.Background()
	old := time.Now().Add(-30 * 24 * time.Hour)
	oldVault := application.NewVault(sqliteadapter.NewCredentialRepo(db), cipher, application.VaultConfig{
		Now: func() time.Time { return old },
	}, nil, nil)
	_, err = oldVault.Link(ctx, "user-1", "https://panel.example.com", "ptlc_stale", "1")
	require.NoError(t, err)

	vault := application.NewVault(sqliteadapter.NewCredentialRepo(db), cipher, application.VaultConfig{}, nil, nil)
	_, err = vault.Link(ctx, "user-1", "https://panel.example.com", "ptlc_fresh", "2")
	require.NoError(t, err)

	var out bytes.Buffer
	svc := application.NewPurgeService(vault, redislock.NewLocal(), 7, 0, nil, nil)
	require.NoError(t, purgeOnce(ctx, svc, &out))
	assert.Equal(t, "purged 1 credentials\n", out.String())

	creds, err := vault.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "2", creds[0].Label)
}

func TestPurgeOnce_LockHeld(t *testing.T) {
	lock := redislock.NewLocal()
	release, ok, err := lock.TryAcquire(context.Background(), "credential-purge", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = release(context.Background()) })

	svc := application.NewPurgeService(purgerFunc(func(context.Context, int) (int64, error) {
		return 0, errors.New("must not run")
	}), lock, 7, 0, nil, nil)

	assert.Error(t, purgeOnce(context.Background(), svc, &bytes.Buffer{}))
}

func TestRunPurge_FromEnvironment(t *testing.T) {
	_, path := openTestDB(t)
	t.Setenv("PANELVAULT_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, config.EncryptionKeySize)))
	t.Setenv("PANELVAULT_DB_PATH", path)
	t.Setenv("PANELVAULT_REDIS_ADDR", "")

	var out bytes.Buffer
	require.NoError(t, runPurge(context.Background(), &out, false))
	assert.Equal(t, "purged 0 credentials\n", out.String())
}

func TestRunPurge_MissingKey(t *testing.T) {
	t.Setenv("PANELVAULT_ENCRYPTION_KEY", "")
	t.Setenv("PANELVAULT_DB_PATH", filepath.Join(t.TempDir(), "vault.db"))

	assert.Error(t, runPurge(context.Background(), &bytes.Buffer{}, false))
}

type purgerFunc func(ctx context.Context, olderThanDays int) (int64, error)

func (f purgerFunc) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	return f(ctx, olderThanDays)
}

func TestDBMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	t.Setenv("PANELVAULT_DB_PATH", path)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"db", "migrate"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "database "+path+" is at schema version 2\n", out.String())
}
