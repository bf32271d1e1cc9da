package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable item in the catalog.
type Product struct {
	ID           int64           `json:"id"`
	Barcode      string          `json:"barcode"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	CategoryID   int64           `json:"category_id"`
	BrandID      int64           `json:"brand_id"`
	UnitID       int64           `json:"unit_id"`
	SupplierID   int64           `json:"supplier_id"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	ReorderPoint int64           `json:"reorder_point"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StockedProduct is a product together with its derived on-hand quantity.
type StockedProduct struct {
	Product
	AvailableQuantity int64 `json:"available_quantity"`
}
