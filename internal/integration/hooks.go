// Package integration fans out committed ledger changes to the caching and
// background-job layers.
package integration

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// CacheBumper invalidates the dashboard cache version.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// WarmupEnqueuer schedules a dashboard cache warmup.
type WarmupEnqueuer interface {
	EnqueueDashboardWarmup(ctx context.Context) (*asynq.TaskInfo, error)
}

// Hooks receives ledger-change signals from the document and finance
// services after their transactions commit. Failures here are logged, never
// propagated: the mutation already committed and the cache will converge on
// its TTL anyway.
type Hooks struct {
	cache  CacheBumper
	queue  WarmupEnqueuer
	logger *slog.Logger
}

// NewHooks constructs integration hooks. Both collaborators are optional.
func NewHooks(cache CacheBumper, queue WarmupEnqueuer, logger *slog.Logger) *Hooks {
	return &Hooks{cache: cache, queue: queue, logger: logger}
}

// LedgerChanged bumps the dashboard cache version and queues a warmup.
func (h *Hooks) LedgerChanged(ctx context.Context) {
	if h == nil {
		return
	}
	if h.cache != nil {
		if err := h.cache.Bump(ctx); err != nil && h.logger != nil {
			h.logger.Warn("cache bump", slog.Any("error", err))
		}
	}
	if h.queue != nil {
		if _, err := h.queue.EnqueueDashboardWarmup(ctx); err != nil && h.logger != nil {
			h.logger.Warn("enqueue warmup", slog.Any("error", err))
		}
	}
}
