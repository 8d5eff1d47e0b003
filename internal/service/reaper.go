package service

import (
	"context"
	"log/slog"
	"time"
)

// PresenceReaper periodically deletes collaboration sessions that have been
// idle for longer than its retention. Reads already ignore stale rows; the
// reaper only keeps the table from growing without bound.
type PresenceReaper struct {
	presence  *CollaborationService
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

func NewPresenceReaper(presence *CollaborationService, interval, retention time.Duration, logger *slog.Logger) *PresenceReaper {
	return &PresenceReaper{
		presence:  presence,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, reaping once per interval. A failed
// pass is logged and retried on the next tick.
func (r *PresenceReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("presence reaper started",
		slog.Duration("interval", r.interval),
		slog.Duration("retention", r.retention),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("presence reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.presence.Reap(ctx, r.retention); err != nil && ctx.Err() == nil {
				r.logger.Error("presence reap failed", slog.String("error", err.Error()))
			}
		}
	}
}
