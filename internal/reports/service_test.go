package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	reports   map[int64]*Report
	schedules map[int64]*Schedule
	metrics   *Metrics
	nextID    int64

	outOfStock int64
	lowStock   int64
	customers  int64
	salesTotal decimal.Decimal
	months     []MonthTotal

	refreshCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		reports:   make(map[int64]*Report),
		schedules: make(map[int64]*Schedule),
	}
}

func (r *memoryRepo) InsertReport(ctx context.Context, report *Report) error {
	r.nextID++
	report.ID = r.nextID
	clone := *report
	r.reports[report.ID] = &clone
	return nil
}

func (r *memoryRepo) GetReport(ctx context.Context, id int64) (Report, error) {
	if report, ok := r.reports[id]; ok {
		return *report, nil
	}
	return Report{}, ErrReportNotFound
}

func (r *memoryRepo) ListReports(ctx context.Context, reportType string, limit int32) ([]Report, error) {
	result := []Report{}
	for _, report := range r.reports {
		if reportType == "" || report.ReportType == reportType {
			result = append(result, *report)
		}
	}
	return result, nil
}

func (r *memoryRepo) DeleteReport(ctx context.Context, id int64) error {
	if _, ok := r.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(r.reports, id)
	return nil
}

func (r *memoryRepo) InsertSchedule(ctx context.Context, schedule *Schedule) error {
	r.nextID++
	schedule.ID = r.nextID
	clone := *schedule
	r.schedules[schedule.ID] = &clone
	return nil
}

func (r *memoryRepo) GetSchedule(ctx context.Context, id int64) (Schedule, error) {
	if schedule, ok := r.schedules[id]; ok {
		return *schedule, nil
	}
	return Schedule{}, ErrScheduleNotFound
}

func (r *memoryRepo) ListSchedules(ctx context.Context) ([]Schedule, error) {
	result := []Schedule{}
	for _, schedule := range r.schedules {
		result = append(result, *schedule)
	}
	return result, nil
}

func (r *memoryRepo) DueSchedules(ctx context.Context, now time.Time) ([]Schedule, error) {
	result := []Schedule{}
	for _, schedule := range r.schedules {
		if schedule.IsActive && !schedule.NextRun.After(now) {
			result = append(result, *schedule)
		}
	}
	return result, nil
}

func (r *memoryRepo) SetScheduleActive(ctx context.Context, id int64, active bool) error {
	schedule, ok := r.schedules[id]
	if !ok {
		return ErrScheduleNotFound
	}
	schedule.IsActive = active
	return nil
}

func (r *memoryRepo) SetScheduleNextRun(ctx context.Context, id int64, next time.Time) error {
	schedule, ok := r.schedules[id]
	if !ok {
		return ErrScheduleNotFound
	}
	schedule.NextRun = next
	return nil
}

func (r *memoryRepo) DeleteSchedule(ctx context.Context, id int64) error {
	if _, ok := r.schedules[id]; !ok {
		return ErrScheduleNotFound
	}
	delete(r.schedules, id)
	return nil
}

func (r *memoryRepo) GetMetrics(ctx context.Context) (Metrics, error) {
	if r.metrics == nil {
		r.metrics = &Metrics{
			TodaySales: decimal.Zero,
			WeekSales:  decimal.Zero,
			MonthSales: decimal.Zero,
			UpdatedAt:  time.Now().UTC(),
		}
	}
	return *r.metrics, nil
}

func (r *memoryRepo) SaveMetrics(ctx context.Context, metrics Metrics) error {
	clone := metrics
	r.metrics = &clone
	return nil
}

func (r *memoryRepo) OutOfStockCount(ctx context.Context) (int64, error) {
	r.refreshCalls++
	return r.outOfStock, nil
}

func (r *memoryRepo) LowStockCount(ctx context.Context) (int64, error) {
	return r.lowStock, nil
}

func (r *memoryRepo) CustomerCount(ctx context.Context) (int64, error) {
	return r.customers, nil
}

func (r *memoryRepo) SalesTotalSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	return r.salesTotal, nil
}

func (r *memoryRepo) MonthlySales(ctx context.Context, year int) ([]MonthTotal, error) {
	return r.months, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute, nil)
}

func TestGenerateValidatesTypeAndRange(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := service.Generate(ctx, Report{ReportType: "  "})
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = service.Generate(ctx, Report{
		ReportType: "sales_summary",
		StartDate:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrInvalidRange)

	report, err := service.Generate(ctx, Report{
		ReportType: "sales_summary",
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotZero(t, report.ID)
}

func TestMetricsRefreshesWhenStale(t *testing.T) {
	repo := newMemoryRepo()
	repo.outOfStock = 3
	repo.lowStock = 7
	repo.customers = 42
	repo.salesTotal = decimal.RequireFromString("1250.50")
	repo.metrics = &Metrics{UpdatedAt: time.Now().UTC().Add(-time.Hour)}

	service := NewService(repo, newTestCache(t), nil)
	metrics, err := service.Metrics(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), metrics.OutOfStockCount)
	require.Equal(t, int64(7), metrics.LowStockCount)
	require.Equal(t, int64(42), metrics.CustomerCount)
	require.True(t, metrics.TodaySales.Equal(decimal.RequireFromString("1250.50")))
	require.Equal(t, 1, repo.refreshCalls)
	require.Equal(t, int64(3), repo.metrics.OutOfStockCount)
}

func TestMetricsServedFromCache(t *testing.T) {
	repo := newMemoryRepo()
	repo.outOfStock = 5
	repo.metrics = &Metrics{UpdatedAt: time.Now().UTC().Add(-time.Hour)}

	service := NewService(repo, newTestCache(t), nil)
	ctx := context.Background()

	first, err := service.Metrics(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), first.OutOfStockCount)

	// Underlying counts change but the cached snapshot wins.
	repo.outOfStock = 99
	second, err := service.Metrics(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), second.OutOfStockCount)
	require.Equal(t, 1, repo.refreshCalls)
}

func TestRefreshMetricsInvalidatesCache(t *testing.T) {
	repo := newMemoryRepo()
	repo.outOfStock = 5
	repo.metrics = &Metrics{UpdatedAt: time.Now().UTC().Add(-time.Hour)}

	service := NewService(repo, newTestCache(t), nil)
	ctx := context.Background()

	_, err := service.Metrics(ctx)
	require.NoError(t, err)

	repo.outOfStock = 11
	refreshed, err := service.RefreshMetrics(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(11), refreshed.OutOfStockCount)

	after, err := service.Metrics(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(11), after.OutOfStockCount)
}

func TestMonthlySalesFillsAllMonths(t *testing.T) {
	repo := newMemoryRepo()
	repo.months = []MonthTotal{
		{Month: time.March, Count: 4, Total: decimal.RequireFromString("400")},
		{Month: time.July, Count: 1, Total: decimal.RequireFromString("50")},
	}

	service := NewService(repo, nil, nil)
	summary, err := service.MonthlySales(context.Background(), 2025)
	require.NoError(t, err)
	require.Equal(t, 2025, summary.Year)
	require.Len(t, summary.Months, 12)
	require.Equal(t, int64(4), summary.Months[2].Count)
	require.True(t, summary.Months[0].Total.IsZero())
	require.True(t, summary.Total.Equal(decimal.RequireFromString("450")))

	_, err = service.MonthlySales(context.Background(), 1900)
	require.ErrorIs(t, err, ErrInvalidYear)
}

func TestCreateScheduleDefaultsNextRun(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	_, err := service.CreateSchedule(context.Background(), Schedule{ReportType: "sales_summary", Frequency: "HOURLY"})
	require.ErrorIs(t, err, ErrInvalidFrequency)

	schedule, err := service.CreateSchedule(context.Background(), Schedule{ReportType: "sales_summary", Frequency: FreqWeekly, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, 7), schedule.NextRun)
}

func TestRunDueSchedulesGeneratesAndAdvances(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	due, err := service.CreateSchedule(context.Background(), Schedule{
		ReportType: "sales_summary",
		Frequency:  FreqDaily,
		NextRun:    now.Add(-time.Hour),
		IsActive:   true,
	})
	require.NoError(t, err)

	_, err = service.CreateSchedule(context.Background(), Schedule{
		ReportType: "expense_summary",
		Frequency:  FreqDaily,
		NextRun:    now.Add(time.Hour),
		IsActive:   true,
	})
	require.NoError(t, err)

	ran, err := service.RunDueSchedules(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, ran)
	require.Len(t, repo.reports, 1)

	advanced, err := repo.GetSchedule(context.Background(), due.ID)
	require.NoError(t, err)
	require.True(t, advanced.NextRun.After(now))

	// Nothing due on the second pass.
	ran, err = service.RunDueSchedules(context.Background())
	require.NoError(t, err)
	require.Zero(t, ran)
}

func TestToggleSchedule(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	schedule, err := service.CreateSchedule(context.Background(), Schedule{
		ReportType: "sales_summary",
		Frequency:  FreqMonthly,
		IsActive:   true,
	})
	require.NoError(t, err)

	toggled, err := service.ToggleSchedule(context.Background(), schedule.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	_, err = service.ToggleSchedule(context.Background(), 9999)
	require.ErrorIs(t, err, ErrScheduleNotFound)
}
