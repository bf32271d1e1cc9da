package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists discounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const discountColumns = `id, name, scope, percent, from_date, to_date, min_quantity, min_total, product_ids, is_active, created_at`

// List lists discounts, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Discount, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListActive lists discounts whose window covers the given day.
func (r *Repository) ListActive(ctx context.Context, day time.Time) ([]Discount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts
WHERE is_active AND from_date <= $1::date AND to_date >= $1::date
ORDER BY id`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Get fetches one discount.
func (r *Repository) Get(ctx context.Context, id int64) (Discount, error) {
	discount, err := scanDiscount(r.pool.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Discount{}, ErrDiscountNotFound
		}
		return Discount{}, err
	}
	return discount, nil
}

// Create stores one discount. The product set rides along as an array
// column; promotions are read far more than written.
func (r *Repository) Create(ctx context.Context, discount Discount) (Discount, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO discounts (name, scope, percent, from_date, to_date, min_quantity, min_total, product_ids, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		discount.Name, string(discount.Scope), discount.Percent, discount.FromDate, discount.ToDate,
		discount.MinQuantity, discount.MinTotal, discount.ProductIDs, discount.IsActiveFlag, discount.CreatedAt).Scan(&discount.ID)
	if err != nil {
		return Discount{}, err
	}
	return discount, nil
}

// Update replaces one discount.
func (r *Repository) Update(ctx context.Context, id int64, discount Discount) error {
	tag, err := r.pool.Exec(ctx, `UPDATE discounts SET name=$1, scope=$2, percent=$3, from_date=$4, to_date=$5, min_quantity=$6, min_total=$7, product_ids=$8, is_active=$9 WHERE id=$10`,
		discount.Name, string(discount.Scope), discount.Percent, discount.FromDate, discount.ToDate,
		discount.MinQuantity, discount.MinTotal, discount.ProductIDs, discount.IsActiveFlag, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDiscountNotFound
	}
	return nil
}

// Delete removes one discount.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDiscountNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]Discount, error) {
	discounts := []Discount{}
	for rows.Next() {
		discount, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, discount)
	}
	return discounts, rows.Err()
}

func scanDiscount(row pgx.Row) (Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Scope, &d.Percent, &d.FromDate, &d.ToDate, &d.MinQuantity, &d.MinTotal, &d.ProductIDs, &d.IsActiveFlag, &d.CreatedAt)
	if err != nil {
		return Discount{}, err
	}
	return d, nil
}
