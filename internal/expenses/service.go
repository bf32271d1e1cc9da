package expenses

import (
	"context"
	"strings"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	CreateCategory(ctx context.Context, category Category) (Category, error)
	UpdateCategory(ctx context.Context, id int64, category Category) error
	DeleteCategory(ctx context.Context, id int64) error

	List(ctx context.Context, filter Filter) ([]Expense, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, expense Expense) (Expense, error)
	Update(ctx context.Context, id int64, expense Expense) error
	Delete(ctx context.Context, id int64) error
}

// Service manages expense entries and their categories.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, category Category) (Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return Category{}, ErrInvalidName
	}
	return s.repo.CreateCategory(ctx, category)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, category Category) error {
	if strings.TrimSpace(category.Name) == "" {
		return ErrInvalidName
	}
	return s.repo.UpdateCategory(ctx, id, category)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Expense, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, expense Expense) (Expense, error) {
	if err := validate(expense); err != nil {
		return Expense{}, err
	}
	if _, err := s.repo.GetCategory(ctx, expense.CategoryID); err != nil {
		return Expense{}, err
	}
	if expense.IncurredOn.IsZero() {
		expense.IncurredOn = time.Now().UTC()
	}
	expense.CreatedBy = shared.ActorFromContext(ctx)
	expense.CreatedAt = time.Now().UTC()
	return s.repo.Create(ctx, expense)
}

func (s *Service) Update(ctx context.Context, id int64, expense Expense) error {
	if err := validate(expense); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, expense)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validate(expense Expense) error {
	if expense.CategoryID == 0 {
		return ErrInvalidCategory
	}
	if !expense.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(expense.Description) == "" {
		return ErrInvalidName
	}
	return nil
}
