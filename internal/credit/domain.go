package credit

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the store-credit balance held by exactly one customer.
type Account struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customer_id"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	LastPaymentDate *time.Time      `json:"last_payment_date,omitempty"`
}

// Payment is an immutable record of a payment event against an account.
// Recording a payment never touches the balance.
type Payment struct {
	ID         int64           `json:"id"`
	AccountID  int64           `json:"account_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference_number"`
	ReceivedBy int64           `json:"received_by"`
	PaidAt     time.Time       `json:"payment_date"`
}

// UseCreditResult is the two-outcome result of spending credit. Insufficient
// balance is a declined outcome, not an error; callers branch on Approved.
type UseCreditResult struct {
	Approved bool            `json:"approved"`
	Balance  decimal.Decimal `json:"balance"`
	Reason   string          `json:"reason,omitempty"`
}

// PaymentInput describes a payment to record.
type PaymentInput struct {
	AccountID  int64
	Amount     decimal.Decimal
	Reference  string
	ReceivedBy int64
}

// ErrInvalidAmount indicates a missing or non-positive amount.
var ErrInvalidAmount = errors.New("credit: amount must be positive")

// ErrAccountNotFound indicates a missing credit account.
var ErrAccountNotFound = errors.New("credit: account not found")

// ErrAccountExists indicates the customer already holds a credit account.
var ErrAccountExists = errors.New("credit: customer already has an account")

// ErrLimitExceeded indicates an add that would push the balance past the
// configured limit; only raised when limit enforcement is enabled.
var ErrLimitExceeded = errors.New("credit: amount exceeds credit limit")
