package reports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	InsertReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id int64) (Report, error)
	ListReports(ctx context.Context, reportType string, limit int32) ([]Report, error)
	DeleteReport(ctx context.Context, id int64) error

	InsertSchedule(ctx context.Context, schedule *Schedule) error
	GetSchedule(ctx context.Context, id int64) (Schedule, error)
	ListSchedules(ctx context.Context) ([]Schedule, error)
	DueSchedules(ctx context.Context, now time.Time) ([]Schedule, error)
	SetScheduleActive(ctx context.Context, id int64, active bool) error
	SetScheduleNextRun(ctx context.Context, id int64, next time.Time) error
	DeleteSchedule(ctx context.Context, id int64) error

	GetMetrics(ctx context.Context) (Metrics, error)
	SaveMetrics(ctx context.Context, metrics Metrics) error
	OutOfStockCount(ctx context.Context) (int64, error)
	LowStockCount(ctx context.Context) (int64, error)
	CustomerCount(ctx context.Context) (int64, error)
	SalesTotalSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	MonthlySales(ctx context.Context, year int) ([]MonthTotal, error)
}

// AuditPort records who did what.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

const (
	cacheKeyMetrics     = "reports:metrics"
	metricsStaleAfter   = 5 * time.Minute
	cacheKeyYearSummary = "reports:monthly-sales:%d"
)

// Service drives report generation, schedules and the dashboard snapshot.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	audit AuditPort
	now   func() time.Time
}

func NewService(repo RepositoryPort, cache *Cache, audit AuditPort) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// Generate validates and stores one report record.
func (s *Service) Generate(ctx context.Context, report Report) (Report, error) {
	report.ReportType = strings.TrimSpace(report.ReportType)
	if report.ReportType == "" {
		return Report{}, ErrInvalidType
	}
	if report.StartDate.After(report.EndDate) {
		return Report{}, ErrInvalidRange
	}
	report.CreatedAt = s.now()
	if report.GeneratedBy == 0 {
		report.GeneratedBy = shared.ActorFromContext(ctx)
	}
	if err := s.repo.InsertReport(ctx, &report); err != nil {
		return Report{}, err
	}
	s.auditEvent(ctx, "reports:GENERATE", report.ID)
	return report, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Report, error) {
	return s.repo.GetReport(ctx, id)
}

func (s *Service) List(ctx context.Context, reportType string, limit int32) ([]Report, error) {
	return s.repo.ListReports(ctx, strings.TrimSpace(reportType), limit)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteReport(ctx, id); err != nil {
		return err
	}
	s.auditEvent(ctx, "reports:DELETE", id)
	return nil
}

// CreateSchedule registers a standing report. NextRun defaults to one
// interval from now when unset.
func (s *Service) CreateSchedule(ctx context.Context, schedule Schedule) (Schedule, error) {
	schedule.ReportType = strings.TrimSpace(schedule.ReportType)
	if schedule.ReportType == "" {
		return Schedule{}, ErrInvalidType
	}
	if !schedule.Frequency.Valid() {
		return Schedule{}, ErrInvalidFrequency
	}
	now := s.now()
	schedule.CreatedAt = now
	if schedule.NextRun.IsZero() {
		schedule.NextRun = schedule.Frequency.Advance(now)
	}
	if err := s.repo.InsertSchedule(ctx, &schedule); err != nil {
		return Schedule{}, err
	}
	s.auditEvent(ctx, "reports:SCHEDULE", schedule.ID)
	return schedule, nil
}

func (s *Service) GetSchedule(ctx context.Context, id int64) (Schedule, error) {
	return s.repo.GetSchedule(ctx, id)
}

func (s *Service) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return s.repo.ListSchedules(ctx)
}

// ToggleSchedule flips the active flag and returns the new state.
func (s *Service) ToggleSchedule(ctx context.Context, id int64) (Schedule, error) {
	schedule, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if err := s.repo.SetScheduleActive(ctx, id, !schedule.IsActive); err != nil {
		return Schedule{}, err
	}
	schedule.IsActive = !schedule.IsActive
	s.auditEvent(ctx, "reports:SCHEDULE_TOGGLE", id)
	return schedule, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	s.auditEvent(ctx, "reports:SCHEDULE_DELETE", id)
	return nil
}

// RunDueSchedules generates a report for every schedule whose next run has
// passed and advances its next run. It returns the number of reports
// generated; one failing schedule does not stop the others.
func (s *Service) RunDueSchedules(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.DueSchedules(ctx, now)
	if err != nil {
		return 0, err
	}
	ran := 0
	var firstErr error
	for _, schedule := range due {
		report := Report{
			ReportType: schedule.ReportType,
			StartDate:  schedule.NextRun.Add(-intervalFor(schedule.Frequency)),
			EndDate:    schedule.NextRun,
			Parameters: schedule.Parameters,
			CreatedAt:  now,
		}
		if err := s.repo.InsertReport(ctx, &report); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("schedule %d: %w", schedule.ID, err)
			}
			continue
		}
		next := schedule.NextRun
		for !next.After(now) {
			next = schedule.Frequency.Advance(next)
		}
		if err := s.repo.SetScheduleNextRun(ctx, schedule.ID, next); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("schedule %d: %w", schedule.ID, err)
		}
		ran++
	}
	return ran, firstErr
}

// Metrics returns the dashboard snapshot, refreshing it from live counts
// when the stored row has gone stale. The result goes through the
// read-through cache so repeated dashboard hits stay off the database.
func (s *Service) Metrics(ctx context.Context) (Metrics, error) {
	var metrics Metrics
	err := s.cache.FetchJSON(ctx, cacheKeyMetrics, &metrics, func(ctx context.Context) (any, error) {
		stored, err := s.repo.GetMetrics(ctx)
		if err != nil {
			return nil, err
		}
		if s.now().Sub(stored.UpdatedAt) < metricsStaleAfter {
			return stored, nil
		}
		return s.refreshMetrics(ctx)
	})
	return metrics, err
}

// RefreshMetrics recomputes the snapshot unconditionally and drops the
// cached copy. The background worker calls this on a timer.
func (s *Service) RefreshMetrics(ctx context.Context) (Metrics, error) {
	metrics, err := s.refreshMetrics(ctx)
	if err != nil {
		return Metrics{}, err
	}
	s.cache.Invalidate(ctx, cacheKeyMetrics)
	return metrics, nil
}

func (s *Service) refreshMetrics(ctx context.Context) (Metrics, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var metrics Metrics
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.repo.OutOfStockCount(ctx)
		metrics.OutOfStockCount = count
		return err
	})
	g.Go(func() error {
		count, err := s.repo.LowStockCount(ctx)
		metrics.LowStockCount = count
		return err
	})
	g.Go(func() error {
		count, err := s.repo.CustomerCount(ctx)
		metrics.CustomerCount = count
		return err
	})
	g.Go(func() error {
		total, err := s.repo.SalesTotalSince(ctx, dayStart)
		metrics.TodaySales = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.SalesTotalSince(ctx, dayStart.AddDate(0, 0, -6))
		metrics.WeekSales = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.SalesTotalSince(ctx, dayStart.AddDate(0, -1, 0))
		metrics.MonthSales = total
		return err
	})
	if err := g.Wait(); err != nil {
		return Metrics{}, err
	}
	metrics.UpdatedAt = now
	if err := s.repo.SaveMetrics(ctx, metrics); err != nil {
		return Metrics{}, err
	}
	return metrics, nil
}

// MonthlySales summarises completed sales per month for one year.
func (s *Service) MonthlySales(ctx context.Context, year int) (YearSummary, error) {
	if year < 2000 || year > s.now().Year()+1 {
		return YearSummary{}, ErrInvalidYear
	}
	var summary YearSummary
	key := fmt.Sprintf(cacheKeyYearSummary, year)
	err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		months, err := s.repo.MonthlySales(ctx, year)
		if err != nil {
			return nil, err
		}
		result := YearSummary{Year: year, Months: fillMonths(months)}
		for _, month := range result.Months {
			result.Total = result.Total.Add(month.Total)
		}
		return result, nil
	})
	return summary, err
}

// fillMonths pads the sparse query result out to all twelve months.
func fillMonths(months []MonthTotal) []MonthTotal {
	filled := make([]MonthTotal, 12)
	for i := range filled {
		filled[i] = MonthTotal{Month: time.Month(i + 1), Total: decimal.Zero}
	}
	for _, month := range months {
		if month.Month >= time.January && month.Month <= time.December {
			filled[month.Month-1] = month
		}
	}
	return filled
}

func intervalFor(f Frequency) time.Duration {
	switch f {
	case FreqDaily:
		return 24 * time.Hour
	case FreqWeekly:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

func (s *Service) auditEvent(ctx context.Context, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "reports",
		EntityID: strconv.FormatInt(id, 10),
		At:       s.now(),
	})
}
