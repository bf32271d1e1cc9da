package products

import (
	"fmt"
	"strings"

	"github.com/meridian-pos/meridian-pos/internal/masterdata/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Barcode) == "" {
		return fmt.Errorf("%w: barcode", shared.ErrRequiredField)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if p.Price.IsNegative() || p.Cost.IsNegative() {
		return fmt.Errorf("%w: price and cost must not be negative", shared.ErrValidation)
	}
	if p.TaxRate.IsNegative() {
		return fmt.Errorf("%w: tax rate must not be negative", shared.ErrValidation)
	}
	if p.ReorderPoint < 0 {
		return fmt.Errorf("%w: reorder point must not be negative", shared.ErrValidation)
	}
	return nil
}
