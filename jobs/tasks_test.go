package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/reports"
)

type stubRunner struct {
	refreshed int
	ran       int
	err       error
}

func (s *stubRunner) RefreshMetrics(ctx context.Context) (reports.Metrics, error) {
	s.refreshed++
	return reports.Metrics{}, s.err
}

func (s *stubRunner) RunDueSchedules(ctx context.Context) (int, error) {
	s.ran++
	return 2, s.err
}

type stubBatches struct {
	window time.Duration
	items  []ledger.Item
}

func (s *stubBatches) ExpiringBatches(ctx context.Context, within time.Duration) ([]ledger.Item, error) {
	s.window = within
	return s.items, nil
}

func newTasks(runner *stubRunner, batches *stubBatches) *Tasks {
	return &Tasks{
		Reports: runner,
		Batches: batches,
		Logger:  slog.New(slog.DiscardHandler),
	}
}

func TestHandleMetricsRefresh(t *testing.T) {
	runner := &stubRunner{}
	tasks := newTasks(runner, nil)

	require.NoError(t, tasks.HandleMetricsRefresh(context.Background(), NewMetricsRefreshTask()))
	require.Equal(t, 1, runner.refreshed)

	runner.err = errors.New("boom")
	require.Error(t, tasks.HandleMetricsRefresh(context.Background(), NewMetricsRefreshTask()))
}

func TestHandleScheduleRun(t *testing.T) {
	runner := &stubRunner{}
	tasks := newTasks(runner, nil)

	require.NoError(t, tasks.HandleScheduleRun(context.Background(), NewScheduleRunTask()))
	require.Equal(t, 1, runner.ran)
}

func TestHandleExpiryScanWindow(t *testing.T) {
	batches := &stubBatches{}
	tasks := newTasks(nil, batches)

	task, err := NewExpiryScanTask(7)
	require.NoError(t, err)
	require.NoError(t, tasks.HandleExpiryScan(context.Background(), task))
	require.Equal(t, 7*24*time.Hour, batches.window)

	// Malformed payloads are dropped, not retried.
	bad := asynq.NewTask(TaskExpiryScan, []byte("{"))
	require.ErrorIs(t, tasks.HandleExpiryScan(context.Background(), bad), asynq.SkipRetry)
}
