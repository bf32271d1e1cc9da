package lookups

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-pos/meridian-pos/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, kind Kind, filters shared.ListFilters) ([]Entry, int, error) {
	if !kind.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown lookup kind %q", shared.ErrValidation, kind)
	}
	return s.repo.List(ctx, kind, filters)
}

func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown lookup kind %q", shared.ErrValidation, kind)
	}
	if id <= 0 {
		return Entry{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, kind, id)
}

func (s *Service) Create(ctx context.Context, kind Kind, entry Entry) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown lookup kind %q", shared.ErrValidation, kind)
	}
	if strings.TrimSpace(entry.Name) == "" {
		return Entry{}, fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	return s.repo.Create(ctx, kind, entry)
}

func (s *Service) Update(ctx context.Context, kind Kind, id int64, entry Entry) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown lookup kind %q", shared.ErrValidation, kind)
	}
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	return s.repo.Update(ctx, kind, id, entry)
}

func (s *Service) Delete(ctx context.Context, kind Kind, id int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown lookup kind %q", shared.ErrValidation, kind)
	}
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, kind, id)
}
