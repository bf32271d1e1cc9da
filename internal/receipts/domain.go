package receipts

import (
	"errors"
	"time"
)

// Receipt tracks the print/void lifecycle of one transaction's receipt.
// Voiding is terminal; a voided receipt can never be printed again.
type Receipt struct {
	ID            int64      `json:"id"`
	ReceiptNumber string     `json:"receipt_number"`
	TransactionID int64      `json:"transaction_id"`
	PrintedCount  int        `json:"printed_count"`
	LastPrinted   *time.Time `json:"last_printed,omitempty"`
	Voided        bool       `json:"void_status"`
	VoidReason    string     `json:"void_reason,omitempty"`
}

// ListFilter filters the receipt listing.
type ListFilter struct {
	Voided *bool
	Limit  int
}

// ErrReceiptVoided indicates a print attempt on a voided receipt.
var ErrReceiptVoided = errors.New("receipts: cannot print voided receipt")

// ErrReasonRequired indicates a void attempt without a reason.
var ErrReasonRequired = errors.New("receipts: void reason is required")

// ErrReceiptNotFound indicates a missing receipt.
var ErrReceiptNotFound = errors.New("receipts: receipt not found")

// ErrReceiptExists indicates the transaction already has a receipt.
var ErrReceiptExists = errors.New("receipts: transaction already has a receipt")
