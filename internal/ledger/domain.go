package ledger

import (
	"errors"
	"time"
)

// MovementType enumerates supported inventory movements.
type MovementType string

const (
	// MovementTypeIn represents an inbound movement (stock-in).
	MovementTypeIn MovementType = "IN"
	// MovementTypeOut represents an outbound movement.
	MovementTypeOut MovementType = "OUT"
	// MovementTypeTransfer moves stock between storage locations.
	MovementTypeTransfer MovementType = "TRANSFER"
	// MovementTypeAdjust indicates manual adjustments and count corrections.
	MovementTypeAdjust MovementType = "ADJUST"
	// MovementTypeReturn represents returned goods going back to stock.
	MovementTypeReturn MovementType = "RETURN"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeTransfer, MovementTypeAdjust, MovementTypeReturn:
		return true
	}
	return false
}

// Movement is an immutable audit record of a quantity change.
// The quantity is a signed delta for ADJUST and positive for all other types.
type Movement struct {
	ID             int64        `json:"id"`
	ProductID      int64        `json:"product_id"`
	Type           MovementType `json:"movement_type"`
	Quantity       int64        `json:"quantity"`
	Reference      string       `json:"reference_number"`
	FromLocationID int64        `json:"from_location_id"`
	ToLocationID   int64        `json:"to_location_id,omitempty"`
	PerformedBy    int64        `json:"performed_by"`
	OccurredAt     time.Time    `json:"timestamp"`
}

// Item is a (product, batch, location) stock record. A batch transferred
// between locations keeps its number, with one row per location.
// Quantity never goes below zero; depleted items stay at zero.
type Item struct {
	ID          int64      `json:"id"`
	ProductID   int64      `json:"product_id"`
	BatchNumber string     `json:"batch_number"`
	Quantity    int64      `json:"quantity"`
	LocationID  int64      `json:"location_id"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	LastCounted *time.Time `json:"last_counted,omitempty"`
}

// LocationStock summarises on-hand quantity for one product at one location.
type LocationStock struct {
	LocationID int64 `json:"location_id"`
	Quantity   int64 `json:"quantity"`
}

// MovementInput describes a movement to post.
type MovementInput struct {
	ProductID      int64
	Type           MovementType
	Quantity       int64
	Reference      string
	FromLocationID int64
	ToLocationID   int64
	BatchNumber    string
	ExpiryDate     *time.Time
	ActorID        int64
}

// MovementFilter filters the movement listing.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	Limit     int
}

// ItemFilter filters the inventory item listing. ExpiringBefore narrows the
// listing to stocked batches whose expiry date falls on or before it.
type ItemFilter struct {
	ProductID      int64
	LocationID     int64
	ExpiringBefore *time.Time
	Limit          int
}

// ErrInsufficientStock triggered when an OUT or TRANSFER would drive an item below zero.
var ErrInsufficientStock = errors.New("ledger: insufficient stock")

// ErrInvalidQuantity indicates a rejected quantity.
var ErrInvalidQuantity = errors.New("ledger: quantity must be positive")

// ErrInvalidLocation indicates a missing or unusable location.
var ErrInvalidLocation = errors.New("ledger: invalid location")

// ErrNegativeCount indicates a physical count below zero.
var ErrNegativeCount = errors.New("ledger: count must not be negative")

// ErrItemNotFound indicates a missing inventory item.
var ErrItemNotFound = errors.New("ledger: inventory item not found")
