package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer represents a registered shopper.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty" validate:"omitempty,email"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalSales is the completed-transaction sum for one customer.
type TotalSales struct {
	CustomerID       int64           `json:"customer_id"`
	TransactionCount int64           `json:"transaction_count"`
	Total            decimal.Decimal `json:"total"`
}
