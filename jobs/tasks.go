package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/reports"
)

const (
	// QueueDefault is the queue all background jobs run on.
	QueueDefault = "default"
	// TaskMetricsRefresh recomputes the dashboard snapshot.
	TaskMetricsRefresh = "dashboard:refresh"
	// TaskScheduleRun generates reports for due schedules.
	TaskScheduleRun = "reports:run-schedules"
	// TaskExpiryScan flags stocked batches close to their expiry date.
	TaskExpiryScan = "inventory:expiry-scan"
)

// ReportRunner is the slice of the reports service the worker needs.
type ReportRunner interface {
	RefreshMetrics(ctx context.Context) (reports.Metrics, error)
	RunDueSchedules(ctx context.Context) (int, error)
}

// BatchLister exposes close-to-expiry inventory batches.
type BatchLister interface {
	ExpiringBatches(ctx context.Context, within time.Duration) ([]ledger.Item, error)
}

// ExpiryScanPayload narrows the expiry scan window.
type ExpiryScanPayload struct {
	WithinDays int `json:"within_days"`
}

// NewMetricsRefreshTask constructs the dashboard refresh task.
func NewMetricsRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskMetricsRefresh, nil, asynq.Queue(QueueDefault))
}

// NewScheduleRunTask constructs the schedule runner task.
func NewScheduleRunTask() *asynq.Task {
	return asynq.NewTask(TaskScheduleRun, nil, asynq.Queue(QueueDefault))
}

// NewExpiryScanTask constructs an expiry scan with the given window.
func NewExpiryScanTask(withinDays int) (*asynq.Task, error) {
	body, err := json.Marshal(ExpiryScanPayload{WithinDays: withinDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiryScan, body, asynq.Queue(QueueDefault)), nil
}

// Tasks binds task handlers to the services they drive.
type Tasks struct {
	Reports ReportRunner
	Batches BatchLister
	Logger  *slog.Logger
	Metrics *JobMetrics
}

// HandleMetricsRefresh recomputes the dashboard snapshot.
func (t *Tasks) HandleMetricsRefresh(ctx context.Context, _ *asynq.Task) error {
	tracker := t.Metrics.Track(TaskMetricsRefresh)
	_, err := t.Reports.RefreshMetrics(ctx)
	if err != nil {
		t.Logger.Error("dashboard refresh", slog.Any("error", err))
	}
	return tracker.End(err)
}

// HandleScheduleRun generates reports for every due schedule.
func (t *Tasks) HandleScheduleRun(ctx context.Context, _ *asynq.Task) error {
	tracker := t.Metrics.Track(TaskScheduleRun)
	ran, err := t.Reports.RunDueSchedules(ctx)
	if err != nil {
		t.Logger.Error("schedule run", slog.Any("error", err))
	} else if ran > 0 {
		t.Logger.Info("scheduled reports generated", slog.Int("count", ran))
	}
	return tracker.End(err)
}

// HandleExpiryScan logs stocked batches expiring inside the window so the
// back office can pull or discount them.
func (t *Tasks) HandleExpiryScan(ctx context.Context, task *asynq.Task) error {
	tracker := t.Metrics.Track(TaskExpiryScan)
	payload := ExpiryScanPayload{WithinDays: 30}
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.WithinDays <= 0 {
		payload.WithinDays = 30
	}
	items, err := t.Batches.ExpiringBatches(ctx, time.Duration(payload.WithinDays)*24*time.Hour)
	if err != nil {
		t.Logger.Error("expiry scan", slog.Any("error", err))
		return tracker.End(err)
	}
	for _, item := range items {
		expiry := ""
		if item.ExpiryDate != nil {
			expiry = item.ExpiryDate.Format("2006-01-02")
		}
		t.Logger.Warn("batch nearing expiry",
			slog.Int64("product_id", item.ProductID),
			slog.String("batch", item.BatchNumber),
			slog.Int64("quantity", item.Quantity),
			slog.String("expiry_date", expiry),
		)
	}
	return tracker.End(nil)
}
