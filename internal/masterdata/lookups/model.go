package lookups

// Kind names one of the small reference tables behind the catalog.
type Kind string

const (
	KindBrand    Kind = "brand"
	KindCategory Kind = "category"
	KindUnit     Kind = "unit"
)

// Valid reports whether the kind is one of the known lookup kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBrand, KindCategory, KindUnit:
		return true
	}
	return false
}

func (k Kind) table() string {
	switch k {
	case KindBrand:
		return "brands"
	case KindCategory:
		return "categories"
	default:
		return "units"
	}
}

// Entry is one row of a lookup table.
type Entry struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
