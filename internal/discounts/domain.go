package discounts

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Scope says what the percentage applies to.
type Scope string

const (
	// ScopeProduct discounts matching line items.
	ScopeProduct Scope = "PRODUCT"
	// ScopeTotal discounts the transaction total.
	ScopeTotal Scope = "TOTAL"
)

// Valid reports whether the scope is known.
func (s Scope) Valid() bool {
	return s == ScopeProduct || s == ScopeTotal
}

// Discount is a time-windowed promotion. A discount is active when
// from_date <= today <= to_date.
type Discount struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Scope        Scope           `json:"scope"`
	Percent      decimal.Decimal `json:"percent"`
	FromDate     time.Time       `json:"from_date"`
	ToDate       time.Time       `json:"to_date"`
	MinQuantity  int64           `json:"min_quantity,omitempty"`
	MinTotal     decimal.Decimal `json:"min_total"`
	ProductIDs   []int64         `json:"product_ids,omitempty"`
	IsActiveFlag bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ActiveOn reports whether the discount window covers the given day and the
// discount has not been switched off.
func (d Discount) ActiveOn(day time.Time) bool {
	day = day.Truncate(24 * time.Hour)
	return d.IsActiveFlag && !day.Before(d.FromDate.Truncate(24*time.Hour)) && !day.After(d.ToDate.Truncate(24*time.Hour))
}

var (
	ErrDiscountNotFound = errors.New("discounts: discount not found")
	ErrInvalidWindow    = errors.New("discounts: from_date must not be after to_date")
	ErrInvalidPercent   = errors.New("discounts: percent must be between 0 and 100")
	ErrInvalidScope     = errors.New("discounts: scope must be PRODUCT or TOTAL")
	ErrInvalidName      = errors.New("discounts: name required")
	ErrProductsRequired = errors.New("discounts: product scope requires a product set")
)
