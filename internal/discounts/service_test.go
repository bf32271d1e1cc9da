package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	discounts map[int64]*Discount
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{discounts: make(map[int64]*Discount)}
}

func (r *memoryRepo) List(ctx context.Context, limit int) ([]Discount, error) {
	result := []Discount{}
	for _, d := range r.discounts {
		result = append(result, *d)
	}
	return result, nil
}

func (r *memoryRepo) ListActive(ctx context.Context, day time.Time) ([]Discount, error) {
	result := []Discount{}
	for _, d := range r.discounts {
		if d.ActiveOn(day) {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Discount, error) {
	if d, ok := r.discounts[id]; ok {
		return *d, nil
	}
	return Discount{}, ErrDiscountNotFound
}

func (r *memoryRepo) Create(ctx context.Context, discount Discount) (Discount, error) {
	r.nextID++
	discount.ID = r.nextID
	r.discounts[discount.ID] = &discount
	return discount, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, discount Discount) error {
	if _, ok := r.discounts[id]; !ok {
		return ErrDiscountNotFound
	}
	discount.ID = id
	r.discounts[id] = &discount
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.discounts[id]; !ok {
		return ErrDiscountNotFound
	}
	delete(r.discounts, id)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validDiscount() Discount {
	return Discount{
		Name:         "Summer promo",
		Scope:        ScopeTotal,
		Percent:      decimal.NewFromInt(10),
		FromDate:     day(2026, 6, 1),
		ToDate:       day(2026, 8, 31),
		IsActiveFlag: true,
	}
}

func TestCreateDiscountValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	d := validDiscount()
	d.Name = " "
	_, err := svc.Create(ctx, d)
	require.ErrorIs(t, err, ErrInvalidName)

	d = validDiscount()
	d.Scope = "HALF"
	_, err = svc.Create(ctx, d)
	require.ErrorIs(t, err, ErrInvalidScope)

	d = validDiscount()
	d.Percent = decimal.NewFromInt(150)
	_, err = svc.Create(ctx, d)
	require.ErrorIs(t, err, ErrInvalidPercent)

	d = validDiscount()
	d.FromDate, d.ToDate = d.ToDate, d.FromDate
	_, err = svc.Create(ctx, d)
	require.ErrorIs(t, err, ErrInvalidWindow)

	d = validDiscount()
	d.Scope = ScopeProduct
	_, err = svc.Create(ctx, d)
	require.ErrorIs(t, err, ErrProductsRequired)

	d = validDiscount()
	d.Scope = ScopeProduct
	d.ProductIDs = []int64{1, 2}
	created, err := svc.Create(ctx, d)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestActiveWindowIsInclusive(t *testing.T) {
	d := validDiscount()

	require.True(t, d.ActiveOn(day(2026, 6, 1)))
	require.True(t, d.ActiveOn(day(2026, 7, 15)))
	require.True(t, d.ActiveOn(day(2026, 8, 31)))
	require.False(t, d.ActiveOn(day(2026, 5, 31)))
	require.False(t, d.ActiveOn(day(2026, 9, 1)))

	d.IsActiveFlag = false
	require.False(t, d.ActiveOn(day(2026, 7, 15)))
}

func TestListActiveFiltersByWindow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	current := validDiscount()
	_, err := svc.Create(ctx, current)
	require.NoError(t, err)

	expired := validDiscount()
	expired.Name = "Spring promo"
	expired.FromDate = day(2026, 3, 1)
	expired.ToDate = day(2026, 4, 30)
	_, err = svc.Create(ctx, expired)
	require.NoError(t, err)

	active, err := repo.ListActive(ctx, day(2026, 7, 1))
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Summer promo", active[0].Name)
}
