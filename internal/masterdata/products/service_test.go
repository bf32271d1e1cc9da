package products

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/masterdata/shared"
)

type memoryRepo struct {
	products map[int64]*Product
	stock    map[int64]int64
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]*Product), stock: make(map[int64]int64)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	result := []Product{}
	for _, p := range r.products {
		if filters.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.Search)) {
			continue
		}
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	if p, ok := r.products[id]; ok {
		return *p, nil
	}
	return Product{}, shared.ErrNotFound
}

func (r *memoryRepo) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	for _, p := range r.products {
		if p.Barcode == barcode {
			return *p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	for _, p := range r.products {
		if p.Barcode == product.Barcode || (product.SKU != "" && p.SKU == product.SKU) {
			return Product{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = &product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, product Product) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	r.products[id] = &product
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepo) LowStock(ctx context.Context, limit int) ([]StockedProduct, error) {
	result := []StockedProduct{}
	for _, p := range r.products {
		qty := r.stock[p.ID]
		if p.IsActive && qty <= p.ReorderPoint {
			result = append(result, StockedProduct{Product: *p, AvailableQuantity: qty})
		}
	}
	return result, nil
}

func sample(barcode, name string) Product {
	return Product{
		Barcode:      barcode,
		Name:         name,
		Price:        decimal.RequireFromString("9.99"),
		Cost:         decimal.RequireFromString("5.00"),
		ReorderPoint: 5,
		IsActive:     true,
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "no barcode"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(ctx, Product{Barcode: "123"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	p := sample("123", "widget")
	p.Price = decimal.RequireFromString("-1")
	_, err = svc.Create(ctx, p)
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(ctx, sample("123", "widget"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestCreateProductDuplicateBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, sample("123", "first"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, sample("123", "second"))
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestLowStockUsesDerivedQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	low, err := svc.Create(ctx, sample("1", "low"))
	require.NoError(t, err)
	ok, err := svc.Create(ctx, sample("2", "stocked"))
	require.NoError(t, err)

	repo.stock[low.ID] = 3
	repo.stock[ok.ID] = 50

	result, err := svc.LowStock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, low.ID, result[0].ID)
	require.EqualValues(t, 3, result[0].AvailableQuantity)
}
