package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*Lock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client), mr
}

func TestLock_Exclusive(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	release, ok, err := lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(keyPrefix+"purge"))

	_, ok, err = lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	// Different names do not contend.
	otherRelease, ok, err := lock.TryAcquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, otherRelease(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(keyPrefix+"purge"))

	release, ok, err = lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "acquire succeeds after release")
	require.NoError(t, release(ctx))
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	_, ok, err := lock.TryAcquire(ctx, "purge", 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Second)

	_, ok, err = lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_ReleaseDoesNotStealNewHolder(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	staleRelease, ok, err := lock.TryAcquire(ctx, "purge", 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Second)

	_, ok, err = lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = staleRelease(ctx)
	assert.ErrorIs(t, err, ErrLockLost)
	assert.True(t, mr.Exists(keyPrefix+"purge"), "new holder keeps the lock")
}

func TestLock_RedisDown(t *testing.T) {
	lock, mr := newTestLock(t)
	mr.Close()

	_, ok, err := lock.TryAcquire(context.Background(), "purge", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	lock, client, err := Dial(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.NotNil(t, lock)

	mr.Close()
	_, _, err = Dial(context.Background(), mr.Addr())
	assert.Error(t, err)
}

func TestLocalLock(t *testing.T) {
	lock := NewLocal()
	ctx := context.Background()

	release, ok, err := lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "double release is harmless")

	_, ok, err = lock.TryAcquire(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
