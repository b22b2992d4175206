// Package jobs runs the background work queue: the nightly balance snapshot
// and dashboard cache warmups after ledger changes.
package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeBalanceSnapshot anchors the daily balance row even on days
	// without mutations.
	TaskTypeBalanceSnapshot = "finance:balance_snapshot"
	// TaskTypeDashboardWarmup repopulates the dashboard cache after a bump.
	TaskTypeDashboardWarmup = "analytics:dashboard_warmup"
)

// Snapshotter writes today's balance snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) error
}

// Warmer preloads the dashboard cache.
type Warmer interface {
	Warm(ctx context.Context) error
}

// NewBalanceSnapshotTask constructs the snapshot task. It carries no payload.
func NewBalanceSnapshotTask() *asynq.Task {
	return asynq.NewTask(TaskTypeBalanceSnapshot, nil)
}

// NewDashboardWarmupTask constructs the warmup task.
func NewDashboardWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeDashboardWarmup, nil)
}

// HandleBalanceSnapshot adapts the finance service to an asynq handler.
func HandleBalanceSnapshot(snap Snapshotter, metrics *Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskTypeBalanceSnapshot)
		err := snap.Snapshot(ctx)
		tracker.Done(err)
		return err
	}
}

// HandleDashboardWarmup adapts the analytics service to an asynq handler.
func HandleDashboardWarmup(warmer Warmer, metrics *Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskTypeDashboardWarmup)
		err := warmer.Warm(ctx)
		tracker.Done(err)
		return err
	}
}
