package locations

import "time"

// LocationType distinguishes selling floors from back-room storage.
type LocationType string

const (
	TypeStore     LocationType = "STORE"
	TypeWarehouse LocationType = "WAREHOUSE"
)

// Valid reports whether the location type is known.
func (t LocationType) Valid() bool {
	return t == TypeStore || t == TypeWarehouse
}

// Location is a physical place stock can sit.
type Location struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Type      LocationType `json:"type"`
	Address   string       `json:"address,omitempty"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
