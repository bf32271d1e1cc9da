package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists report records, schedules and the metrics row, and
// answers the live counts the dashboard refresh fans out over.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertReport(ctx context.Context, report *Report) error {
	parameters, err := marshalJSONB(report.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	results, err := marshalJSONB(report.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reports (report_type, start_date, end_date, parameters, results, generated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), $7)
		RETURNING id`,
		report.ReportType, report.StartDate, report.EndDate, parameters, results, report.GeneratedBy, report.CreatedAt,
	)
	return row.Scan(&report.ID)
}

func (r *Repository) GetReport(ctx context.Context, id int64) (Report, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, report_type, start_date, end_date, parameters, results, COALESCE(generated_by, 0), created_at
		FROM reports WHERE id = $1`, id)
	return scanReport(row)
}

func (r *Repository) ListReports(ctx context.Context, reportType string, limit int32) ([]Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, report_type, start_date, end_date, parameters, results, COALESCE(generated_by, 0), created_at
		FROM reports
		WHERE ($1 = '' OR report_type = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, reportType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *Repository) DeleteReport(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *Repository) InsertSchedule(ctx context.Context, schedule *Schedule) error {
	parameters, err := marshalJSONB(schedule.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO report_schedules (report_type, frequency, next_run, parameters, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		schedule.ReportType, schedule.Frequency, schedule.NextRun, parameters, schedule.IsActive, schedule.CreatedAt,
	)
	return row.Scan(&schedule.ID)
}

func (r *Repository) GetSchedule(ctx context.Context, id int64) (Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, report_type, frequency, next_run, parameters, is_active, created_at
		FROM report_schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *Repository) ListSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, report_type, frequency, next_run, parameters, is_active, created_at
		FROM report_schedules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// DueSchedules returns active schedules whose next run is at or before now.
func (r *Repository) DueSchedules(ctx context.Context, now time.Time) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, report_type, frequency, next_run, parameters, is_active, created_at
		FROM report_schedules
		WHERE is_active AND next_run <= $1
		ORDER BY next_run`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func (r *Repository) SetScheduleActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE report_schedules SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *Repository) SetScheduleNextRun(ctx context.Context, id int64, next time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE report_schedules SET next_run = $2 WHERE id = $1`, id, next)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *Repository) DeleteSchedule(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM report_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// GetMetrics reads the singleton row, creating an empty one on first read.
func (r *Repository) GetMetrics(ctx context.Context) (Metrics, error) {
	var metrics Metrics
	row := r.pool.QueryRow(ctx, `
		INSERT INTO dashboard_metrics (id, out_of_stock_count, low_stock_count, customer_count,
			today_sales, week_sales, month_sales, updated_at)
		VALUES (1, 0, 0, 0, 0, 0, 0, now())
		ON CONFLICT (id) DO UPDATE SET id = dashboard_metrics.id
		RETURNING out_of_stock_count, low_stock_count, customer_count,
			today_sales, week_sales, month_sales, updated_at`)
	err := row.Scan(
		&metrics.OutOfStockCount, &metrics.LowStockCount, &metrics.CustomerCount,
		&metrics.TodaySales, &metrics.WeekSales, &metrics.MonthSales, &metrics.UpdatedAt,
	)
	return metrics, err
}

func (r *Repository) SaveMetrics(ctx context.Context, metrics Metrics) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dashboard_metrics (id, out_of_stock_count, low_stock_count, customer_count,
			today_sales, week_sales, month_sales, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			out_of_stock_count = EXCLUDED.out_of_stock_count,
			low_stock_count = EXCLUDED.low_stock_count,
			customer_count = EXCLUDED.customer_count,
			today_sales = EXCLUDED.today_sales,
			week_sales = EXCLUDED.week_sales,
			month_sales = EXCLUDED.month_sales,
			updated_at = EXCLUDED.updated_at`,
		metrics.OutOfStockCount, metrics.LowStockCount, metrics.CustomerCount,
		metrics.TodaySales, metrics.WeekSales, metrics.MonthSales, metrics.UpdatedAt,
	)
	return err
}

// OutOfStockCount counts active products whose summed quantity is zero.
func (r *Repository) OutOfStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM products p
		WHERE p.is_active
		  AND COALESCE((SELECT SUM(i.quantity) FROM inventory_items i WHERE i.product_id = p.id), 0) = 0`,
	).Scan(&count)
	return count, err
}

// LowStockCount counts active products at or below their reorder point but
// not out of stock.
func (r *Repository) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT p.id, COALESCE(SUM(i.quantity), 0) AS available
			FROM products p
			LEFT JOIN inventory_items i ON i.product_id = p.id
			WHERE p.is_active
			GROUP BY p.id, p.reorder_point
			HAVING COALESCE(SUM(i.quantity), 0) > 0
			   AND COALESCE(SUM(i.quantity), 0) <= p.reorder_point
		) low`,
	).Scan(&count)
	return count, err
}

func (r *Repository) CustomerCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count)
	return count, err
}

// SalesTotalSince sums completed sales created at or after the given time.
func (r *Repository) SalesTotalSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM sales_transactions
		WHERE status = 'COMPLETED' AND created_at >= $1`, since,
	).Scan(&total)
	return total, err
}

// MonthlySales returns per-month completed sales for one calendar year.
func (r *Repository) MonthlySales(ctx context.Context, year int) ([]MonthTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(MONTH FROM created_at)::int AS month,
		       COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales_transactions
		WHERE status = 'COMPLETED' AND EXTRACT(YEAR FROM created_at) = $1
		GROUP BY 1 ORDER BY 1`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]MonthTotal, 0, 12)
	for rows.Next() {
		var (
			month int
			row   MonthTotal
		)
		if err := rows.Scan(&month, &row.Count, &row.Total); err != nil {
			return nil, err
		}
		row.Month = time.Month(month)
		totals = append(totals, row)
	}
	return totals, rows.Err()
}

func scanReport(row pgx.Row) (Report, error) {
	var (
		report     Report
		parameters []byte
		results    []byte
	)
	err := row.Scan(
		&report.ID, &report.ReportType, &report.StartDate, &report.EndDate,
		&parameters, &results, &report.GeneratedBy, &report.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrReportNotFound
	}
	if err != nil {
		return Report{}, err
	}
	if err := unmarshalJSONB(parameters, &report.Parameters); err != nil {
		return Report{}, err
	}
	if err := unmarshalJSONB(results, &report.Results); err != nil {
		return Report{}, err
	}
	return report, nil
}

func scanSchedule(row pgx.Row) (Schedule, error) {
	var (
		schedule   Schedule
		parameters []byte
	)
	err := row.Scan(
		&schedule.ID, &schedule.ReportType, &schedule.Frequency, &schedule.NextRun,
		&parameters, &schedule.IsActive, &schedule.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, ErrScheduleNotFound
	}
	if err != nil {
		return Schedule{}, err
	}
	if err := unmarshalJSONB(parameters, &schedule.Parameters); err != nil {
		return Schedule{}, err
	}
	return schedule, nil
}

func marshalJSONB(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

func unmarshalJSONB(raw []byte, dest *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
