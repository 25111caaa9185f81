package services

import (
	"context"
	"log/slog"
	"time"

	"townhall/internal/domain"
	"townhall/internal/metrics"
)

// Janitor deletes pending RSVP sessions that were abandoned. Their Rsvps go
// with them, which returns the seats to the pool.
type Janitor struct {
	sessions domain.RsvpSessionRepository
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewJanitor creates a Janitor that runs every interval and removes sessions
// idle for longer than ttl.
func NewJanitor(sessions domain.RsvpSessionRepository, ttl, interval time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{sessions: sessions, ttl: ttl, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.ErrorContext(ctx, "sweep pending sessions", "err", err)
			}
		}
	}
}

// Sweep runs one pass and reports the number of sessions removed.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.sessions.DeletePendingBefore(ctx, j.now().Add(-j.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.PendingSessionsExpired.Add(float64(n))
		j.logger.InfoContext(ctx, "expired pending sessions", "count", n)
	}
	return n, nil
}
