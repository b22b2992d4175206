package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	for i := 0; i < 3; i++ {
		metrics.Track(TaskTypeDashboardWarmup).Done(nil)
	}
	metrics.Track(TaskTypeDashboardWarmup).Done(errors.New("redis down"))

	families, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, 3.0, metricValue(t, families, "atelier_job_runs_total", map[string]string{"task": TaskTypeDashboardWarmup, "success": "true"}))
	require.Equal(t, 1.0, metricValue(t, families, "atelier_job_runs_total", map[string]string{"task": TaskTypeDashboardWarmup, "success": "false"}))
	require.Equal(t, 1.0, metricValue(t, families, "atelier_job_failures_total", map[string]string{"task": TaskTypeDashboardWarmup}))
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *Tracker
	tracker.Done(errors.New("ignored"))
}

type stubSnapshotter struct {
	calls int
	err   error
}

func (s *stubSnapshotter) Snapshot(context.Context) error {
	s.calls++
	return s.err
}

func TestHandleBalanceSnapshotPropagatesError(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	snap := &stubSnapshotter{err: errors.New("db gone")}

	handler := HandleBalanceSnapshot(snap, metrics)
	err := handler(context.Background(), asynq.NewTask(TaskTypeBalanceSnapshot, nil))
	require.Error(t, err)
	require.Equal(t, 1, snap.calls)

	families, gerr := reg.Gather()
	require.NoError(t, gerr)
	require.Equal(t, 1.0, metricValue(t, families, "atelier_job_failures_total", map[string]string{"task": TaskTypeBalanceSnapshot}))
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if !labelsMatch(metric, labels) {
				continue
			}
			if counter := metric.GetCounter(); counter != nil {
				return counter.GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	seen := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if seen[k] != v {
			return false
		}
	}
	return true
}
