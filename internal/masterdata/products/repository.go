package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
	LowStock(ctx context.Context, limit int) ([]StockedProduct, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, barcode, sku, name, description, category_id, brand_id, unit_id, supplier_id, price, cost, tax_rate, reorder_point, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		where += ` AND (name ILIKE ` + placeholder + ` OR barcode ILIKE ` + placeholder + ` OR sku ILIKE ` + placeholder + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.CategoryID != nil {
		argCount++
		where += ` AND category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.BrandID != nil {
		argCount++
		where += ` AND brand_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.BrandID)
	}
	if filters.SupplierID != nil {
		argCount++
		where += ` AND supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.SupplierID)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode))
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx, `INSERT INTO products (barcode, sku, name, description, category_id, brand_id, unit_id, supplier_id, price, cost, tax_rate, reorder_point, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14) RETURNING id`,
		product.Barcode, product.SKU, product.Name, product.Description, product.CategoryID, product.BrandID, product.UnitID, product.SupplierID, product.Price, product.Cost, product.TaxRate, product.ReorderPoint, product.IsActive, now).Scan(&product.ID)
	if err != nil {
		return Product{}, translateError(err)
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET barcode=$1, sku=$2, name=$3, description=$4, category_id=$5, brand_id=$6, unit_id=$7, supplier_id=$8, price=$9, cost=$10, tax_rate=$11, reorder_point=$12, is_active=$13, updated_at=$14 WHERE id=$15`,
		product.Barcode, product.SKU, product.Name, product.Description, product.CategoryID, product.BrandID, product.UnitID, product.SupplierID, product.Price, product.Cost, product.TaxRate, product.ReorderPoint, product.IsActive, time.Now(), id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LowStock returns active products whose summed on-hand quantity is at or
// below the reorder point. Quantity is derived from inventory items, never
// stored on the product row.
func (r *repository) LowStock(ctx context.Context, limit int) ([]StockedProduct, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.barcode, p.sku, p.name, p.description, p.category_id, p.brand_id, p.unit_id, p.supplier_id, p.price, p.cost, p.tax_rate, p.reorder_point, p.is_active, p.created_at, p.updated_at,
COALESCE(SUM(i.quantity), 0) AS available
FROM products p
LEFT JOIN inventory_items i ON i.product_id = p.id
WHERE p.is_active
GROUP BY p.id
HAVING COALESCE(SUM(i.quantity), 0) <= p.reorder_point
ORDER BY available ASC, p.name
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []StockedProduct{}
	for rows.Next() {
		var sp StockedProduct
		if err := rows.Scan(&sp.ID, &sp.Barcode, &sp.SKU, &sp.Name, &sp.Description, &sp.CategoryID, &sp.BrandID, &sp.UnitID, &sp.SupplierID, &sp.Price, &sp.Cost, &sp.TaxRate, &sp.ReorderPoint, &sp.IsActive, &sp.CreatedAt, &sp.UpdatedAt, &sp.AvailableQuantity); err != nil {
			return nil, err
		}
		result = append(result, sp)
	}
	return result, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Barcode, &p.SKU, &p.Name, &p.Description, &p.CategoryID, &p.BrandID, &p.UnitID, &p.SupplierID, &p.Price, &p.Cost, &p.TaxRate, &p.ReorderPoint, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "barcode":
		return "barcode " + dir
	case "sku":
		return "sku " + dir
	case "price":
		return "price " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
