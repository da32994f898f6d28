package driven

import (
	"context"
	"time"
)

// SweepLock serializes periodic maintenance sweeps across processes.
type SweepLock interface {
	// TryAcquire attempts to take the named lock for at most ttl. ok is false
	// when another holder owns it. release must be called when ok is true.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
