package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

const (
	// DefaultPurgeInterval is how often the purge loop runs when unset.
	DefaultPurgeInterval = 24 * time.Hour

	purgeLockName = "credential-purge"
	// purgeLockTTL bounds how long a crashed holder can block other replicas.
	purgeLockTTL = 10 * time.Minute
)

// Purger is the vault capability the purge loop needs.
type Purger interface {
	Purge(ctx context.Context, olderThanDays int) (int64, error)
}

// PurgeService periodically removes revoked and inactive credentials. Runs
// are serialized across replicas with a SweepLock.
type PurgeService struct {
	purger      Purger
	lock        driven.SweepLock
	horizonDays int
	interval    time.Duration
	logger      *slog.Logger
	metrics     *Metrics
}

// NewPurgeService creates a PurgeService. A non-positive interval falls back
// to DefaultPurgeInterval.
func NewPurgeService(purger Purger, lock driven.SweepLock, horizonDays int, interval time.Duration, logger *slog.Logger, metrics *Metrics) *PurgeService {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeService{
		purger:      purger,
		lock:        lock,
		horizonDays: horizonDays,
		interval:    interval,
		logger:      logger,
		metrics:     metrics.orNop(),
	}
}

// Start runs a sweep immediately and then on every interval tick. It blocks
// until ctx is canceled.
func (s *PurgeService) Start(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("purge service stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep if the lock is free. It returns the number
// of credentials removed and whether the sweep completed. Failures are logged.
func (s *PurgeService) RunOnce(ctx context.Context) (int64, bool) {
	release, ok, err := s.lock.TryAcquire(ctx, purgeLockName, purgeLockTTL)
	if err != nil {
		s.metrics.PurgeRuns.WithLabelValues("error").Inc()
		s.logger.Error("purge lock unavailable", "error", err)
		return 0, false
	}
	if !ok {
		s.metrics.PurgeRuns.WithLabelValues("skipped").Inc()
		s.logger.Debug("purge already running elsewhere, skipping")
		return 0, false
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("purge lock release failed", "error", err)
		}
	}()

	start := time.Now()
	removed, err := s.purger.Purge(ctx, s.horizonDays)
	if err != nil {
		s.metrics.PurgeRuns.WithLabelValues("error").Inc()
		s.logger.Error("credential purge failed", "error", err)
		return 0, false
	}

	s.metrics.PurgeRuns.WithLabelValues("ok").Inc()
	s.metrics.PurgedRows.Add(float64(removed))
	s.logger.Info("credential purge complete",
		"removed", removed,
		"horizon_days", s.horizonDays,
		"duration", time.Since(start),
	)

	return removed, true
}
