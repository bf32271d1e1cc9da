package reports

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Report is one generated report record. Parameters and Results are stored
// as JSON so report types can evolve without migrations.
type Report struct {
	ID          int64          `json:"id"`
	ReportType  string         `json:"report_type"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Results     map[string]any `json:"results,omitempty"`
	GeneratedBy int64          `json:"generated_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Frequency is how often a scheduled report runs.
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
)

// Valid reports whether the frequency is known.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// Advance returns the run time after the given one.
func (f Frequency) Advance(from time.Time) time.Time {
	switch f {
	case FreqDaily:
		return from.AddDate(0, 0, 1)
	case FreqWeekly:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Schedule is a standing order to generate a report.
type Schedule struct {
	ID         int64          `json:"id"`
	ReportType string         `json:"report_type"`
	Frequency  Frequency      `json:"frequency"`
	NextRun    time.Time      `json:"next_run"`
	Parameters map[string]any `json:"parameters,omitempty"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Metrics is the dashboard snapshot. Exactly one row exists; it is created
// lazily on first read and refreshed from live counts.
type Metrics struct {
	OutOfStockCount int64           `json:"out_of_stock_count"`
	LowStockCount   int64           `json:"low_stock_count"`
	CustomerCount   int64           `json:"customer_count"`
	TodaySales      decimal.Decimal `json:"today_sales"`
	WeekSales       decimal.Decimal `json:"week_sales"`
	MonthSales      decimal.Decimal `json:"month_sales"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MonthTotal is one month of the yearly sales summary.
type MonthTotal struct {
	Month time.Month      `json:"month"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// YearSummary is twelve months of completed sales.
type YearSummary struct {
	Year   int             `json:"year"`
	Months []MonthTotal    `json:"months"`
	Total  decimal.Decimal `json:"total"`
}

var (
	ErrReportNotFound   = errors.New("reports: report not found")
	ErrScheduleNotFound = errors.New("reports: schedule not found")
	ErrInvalidType      = errors.New("reports: report type required")
	ErrInvalidRange     = errors.New("reports: start date must not be after end date")
	ErrInvalidFrequency = errors.New("reports: frequency must be DAILY, WEEKLY or MONTHLY")
	ErrInvalidYear      = errors.New("reports: year out of range")
)
