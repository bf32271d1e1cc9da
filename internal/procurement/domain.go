package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a purchase.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Purchase is an order placed with a supplier. Completing it is what puts
// the goods on the shelf: every line is posted to the stock ledger as an
// inbound movement.
type Purchase struct {
	ID             int64           `json:"id"`
	PurchaseNumber string          `json:"purchase_number"`
	SupplierID     int64           `json:"supplier_id"`
	LocationID     int64           `json:"location_id"`
	Status         Status          `json:"status"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Items          []PurchaseItem  `json:"items,omitempty"`
	CreatedBy      int64           `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// PurchaseItem is one ordered line.
type PurchaseItem struct {
	ID          int64           `json:"id"`
	PurchaseID  int64           `json:"purchase_id"`
	ProductID   int64           `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	LineTotal   decimal.Decimal `json:"line_total"`
	BatchNumber string          `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// PurchaseInput creates a pending purchase.
type PurchaseInput struct {
	SupplierID int64       `json:"supplier_id"`
	LocationID int64       `json:"location_id"`
	Items      []ItemInput `json:"items"`
}

// ItemInput is one requested purchase line.
type ItemInput struct {
	ProductID   int64           `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	BatchNumber string          `json:"batch_number"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
}

// Return records goods sent back to the supplier.
type Return struct {
	ID         int64           `json:"id"`
	PurchaseID int64           `json:"purchase_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	CreatedBy  int64           `json:"created_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PurchaseFilter filters the purchase listing.
type PurchaseFilter struct {
	Status     Status
	SupplierID int64
	Limit      int
}

var (
	ErrPurchaseNotFound   = errors.New("procurement: purchase not found")
	ErrNoItems            = errors.New("procurement: purchase requires at least one item")
	ErrInvalidItem        = errors.New("procurement: item requires product and positive quantity")
	ErrInvalidSupplier    = errors.New("procurement: supplier required")
	ErrNotPending         = errors.New("procurement: only pending purchases can change state")
	ErrReturnNotFound     = errors.New("procurement: return not found")
	ErrReturnNotCompleted = errors.New("procurement: returns require a completed purchase")
)
