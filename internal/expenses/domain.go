package expenses

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups expenses for reporting.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Expense is one outgoing cost entry.
type Expense struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	IncurredOn  time.Time       `json:"incurred_on"`
	CreatedBy   int64           `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Filter narrows the expense listing.
type Filter struct {
	CategoryID int64
	From       *time.Time
	To         *time.Time
	Limit      int
}

var (
	ErrExpenseNotFound  = errors.New("expenses: expense not found")
	ErrCategoryNotFound = errors.New("expenses: category not found")
	ErrCategoryExists   = errors.New("expenses: category name already in use")
	ErrInvalidAmount    = errors.New("expenses: amount must be positive")
	ErrInvalidCategory  = errors.New("expenses: category required")
	ErrInvalidName      = errors.New("expenses: name required")
)
