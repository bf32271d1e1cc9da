package sales

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a transaction is settled.
type PaymentMethod string

const (
	PayCash   PaymentMethod = "CASH"
	PayCard   PaymentMethod = "CARD"
	PayMobile PaymentMethod = "MOBILE"
	PayCredit PaymentMethod = "CREDIT"
)

// Valid reports whether the payment method is known.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayCard, PayMobile, PayCredit:
		return true
	}
	return false
}

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Transaction is one till transaction. Completion is what makes it count:
// it depletes stock, spends store credit for CREDIT sales and issues the
// receipt.
type Transaction struct {
	ID                int64             `json:"id"`
	TransactionNumber string            `json:"transaction_number"`
	CustomerID        int64             `json:"customer_id,omitempty"`
	LocationID        int64             `json:"location_id"`
	Status            Status            `json:"status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	DiscountAmount    decimal.Decimal   `json:"discount_amount"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	Items             []TransactionItem `json:"items,omitempty"`
	CreatedBy         int64             `json:"created_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// TransactionItem is one line of a transaction.
type TransactionItem struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	ProductID     int64           `json:"product_id"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// TransactionInput creates a pending transaction.
type TransactionInput struct {
	CustomerID     int64           `json:"customer_id"`
	LocationID     int64           `json:"location_id"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Items          []ItemInput     `json:"items"`
}

// ItemInput is one requested line.
type ItemInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Return records merchandise coming back after a sale.
type Return struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	ProductID     int64           `json:"product_id"`
	Quantity      int64           `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
	CreatedBy     int64           `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionFilter filters the transaction listing.
type TransactionFilter struct {
	Status     Status
	CustomerID int64
	Limit      int
}

var (
	ErrTransactionNotFound = errors.New("sales: transaction not found")
	ErrNoItems             = errors.New("sales: transaction requires at least one item")
	ErrInvalidItem         = errors.New("sales: item requires product and positive quantity")
	ErrInvalidPayment      = errors.New("sales: unknown payment method")
	ErrNotPending          = errors.New("sales: only pending transactions can change state")
	ErrCreditCustomer      = errors.New("sales: credit payment requires a customer")
	ErrCreditDeclined      = errors.New("sales: insufficient credit")
	ErrReturnNotFound      = errors.New("sales: return not found")
	ErrReturnNotCompleted  = errors.New("sales: returns require a completed transaction")
)
