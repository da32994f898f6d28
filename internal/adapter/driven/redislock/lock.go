// Package redislock provides SweepLock implementations: a Redis-backed lock
// shared by every replica and an in-process lock for single-instance deployments.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.SweepLock = (*Lock)(nil)
	_ driven.SweepLock = (*LocalLock)(nil)
)

const keyPrefix = "panelvault:lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockLost is returned by release when the lock expired before release.
var ErrLockLost = errors.New("lock expired before release")

// Lock is a SET NX PX lock on a single Redis key per lock name.
type Lock struct {
	client redis.UniversalClient
}

// New creates a Lock on an existing client.
func New(client redis.UniversalClient) *Lock {
	return &Lock{client: client}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr string) (*Lock, redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client), client, nil
}

// TryAcquire takes the lock for ttl without blocking.
func (l *Lock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		if n == 0 {
			return fmt.Errorf("release lock %s: %w", name, ErrLockLost)
		}
		return nil
	}

	return release, true, nil
}

// LocalLock is an in-process SweepLock. The ttl is ignored; the lock is held
// until released.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocal creates an empty LocalLock.
func NewLocal() *LocalLock {
	return &LocalLock{held: make(map[string]bool)}
}

// TryAcquire takes the named lock if no other caller in this process holds it.
func (l *LocalLock) TryAcquire(_ context.Context, name string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true

	var once sync.Once
	release := func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}

	return release, true, nil
}
