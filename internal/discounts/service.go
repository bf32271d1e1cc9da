package discounts

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	List(ctx context.Context, limit int) ([]Discount, error)
	ListActive(ctx context.Context, day time.Time) ([]Discount, error)
	Get(ctx context.Context, id int64) (Discount, error)
	Create(ctx context.Context, discount Discount) (Discount, error)
	Update(ctx context.Context, id int64, discount Discount) error
	Delete(ctx context.Context, id int64) error
}

// Service manages promotions.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, limit int) ([]Discount, error) {
	return s.repo.List(ctx, limit)
}

// ListActive returns promotions whose window covers today.
func (s *Service) ListActive(ctx context.Context) ([]Discount, error) {
	return s.repo.ListActive(ctx, time.Now().UTC())
}

func (s *Service) Get(ctx context.Context, id int64) (Discount, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, discount Discount) (Discount, error) {
	if err := validate(discount); err != nil {
		return Discount{}, err
	}
	discount.CreatedAt = time.Now().UTC()
	return s.repo.Create(ctx, discount)
}

func (s *Service) Update(ctx context.Context, id int64, discount Discount) error {
	if err := validate(discount); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, discount)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validate(discount Discount) error {
	if strings.TrimSpace(discount.Name) == "" {
		return ErrInvalidName
	}
	if !discount.Scope.Valid() {
		return ErrInvalidScope
	}
	if discount.Percent.LessThanOrEqual(decimal.Zero) || discount.Percent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidPercent
	}
	if discount.FromDate.After(discount.ToDate) {
		return ErrInvalidWindow
	}
	if discount.Scope == ScopeProduct && len(discount.ProductIDs) == 0 {
		return ErrProductsRequired
	}
	return nil
}
