package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/cache"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/events"
)

// RetentionWindow is how long a notification is kept.
const RetentionWindow = 15 * 24 * time.Hour

const sweepLockKey = "locks:notification-sweep"

// Cutoff returns the instant before which notifications are swept.
func Cutoff(now time.Time) time.Time {
	return now.Add(-RetentionWindow)
}

// Sweep deletes every notification created strictly before Cutoff(now) and
// returns how many were removed. Running it again is a no-op.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	cutoff := Cutoff(s.now().UTC())
	n, err := s.store.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("notification sweep failed", "error", err, "cutoff", cutoff)
		return 0, err
	}

	s.logger.Info("notification sweep finished", "deleted", n, "cutoff", cutoff)
	if n > 0 {
		if err := s.events.Publish(ctx, events.SubjectNotificationsSwept, map[string]any{
			"deleted": n,
			"cutoff":  cutoff,
		}); err != nil {
			s.logger.Warn("failed to publish sweep event", "error", err)
		}
	}
	return n, nil
}

// Locker takes a short-lived distributed lock. *cache.Cache implements it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Sweeper runs Sweep periodically.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	locker   Locker
	logger   *slog.Logger
}

// NewSweeper creates a sweeper. locker may be nil for a single replica.
func NewSweeper(svc *Service, interval time.Duration, locker Locker, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{svc: svc, interval: interval, locker: locker, logger: logger}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (w *Sweeper) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("scheduled notification sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce sweeps if no other replica holds the lock. It reports whether a
// sweep ran.
func (w *Sweeper) RunOnce(ctx context.Context) (int64, bool, error) {
	if w.locker != nil {
		release, err := w.locker.TryLock(ctx, sweepLockKey, w.lockTTL())
		if errors.Is(err, cache.ErrLockHeld) {
			w.logger.Debug("notification sweep skipped, lock held")
			return 0, false, nil
		}
		if err != nil {
			// Sweep is idempotent, so replicas may overlap without the lock.
			w.logger.Warn("sweep lock unavailable, sweeping anyway", "error", err)
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					w.logger.Warn("failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	n, err := w.svc.Sweep(ctx)
	return n, err == nil, err
}

func (w *Sweeper) lockTTL() time.Duration {
	if w.interval > 0 && w.interval < 10*time.Minute {
		return w.interval
	}
	return 10 * time.Minute
}
