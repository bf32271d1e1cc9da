package suppliers

import "time"

// Supplier represents a vendor products are purchased from.
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name" validate:"required"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty" validate:"omitempty,e164|numeric"`
	Email         string    `json:"email,omitempty" validate:"omitempty,email"`
	Address       string    `json:"address,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
