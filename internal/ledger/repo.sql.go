package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	ItemsAtLocationForUpdate(ctx context.Context, productID, locationID int64) ([]Item, error)
	ItemForUpdate(ctx context.Context, itemID int64) (Item, error)
	FindItemForUpdate(ctx context.Context, productID int64, batch string, locationID int64) (Item, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	SetItemQuantity(ctx context.Context, itemID, quantity int64) error
	SetItemCount(ctx context.Context, itemID, quantity int64, countedAt time.Time) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// AvailableQuantity sums item quantities for the product across locations.
func (r *Repository) AvailableQuantity(ctx context.Context, productID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM inventory_items WHERE product_id=$1`, productID).Scan(&total)
	return total, err
}

// StockByLocation reports on-hand quantity per location for one product.
func (r *Repository) StockByLocation(ctx context.Context, productID int64) ([]LocationStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT location_id, COALESCE(SUM(quantity), 0)
FROM inventory_items WHERE product_id=$1 GROUP BY location_id ORDER BY location_id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stocks := []LocationStock{}
	for rows.Next() {
		var s LocationStock
		if err := rows.Scan(&s.LocationID, &s.Quantity); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// ListMovements lists movement history, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, movement_type, quantity, reference_number, from_location_id, COALESCE(to_location_id, 0), performed_by, occurred_at
FROM inventory_movements
WHERE ($1 = 0 OR product_id = $1) AND ($2 = '' OR movement_type = $2)
ORDER BY occurred_at DESC, id DESC
LIMIT $3`, filter.ProductID, string(filter.Type), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.Reference, &m.FromLocationID, &m.ToLocationID, &m.PerformedBy, &m.OccurredAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ListItems lists inventory items.
func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, batch_number, quantity, location_id, expiry_date, last_counted
FROM inventory_items
WHERE ($1 = 0 OR product_id = $1) AND ($2 = 0 OR location_id = $2)
  AND ($3::timestamptz IS NULL OR (expiry_date IS NOT NULL AND expiry_date <= $3 AND quantity > 0))
ORDER BY id
LIMIT $4`, filter.ProductID, filter.LocationID, filter.ExpiringBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.BatchNumber, &item.Quantity, &item.LocationID, &item.ExpiryDate, &item.LastCounted); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem fetches one inventory item.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT id, product_id, batch_number, quantity, location_id, expiry_date, last_counted
FROM inventory_items WHERE id=$1`, id).
		Scan(&item.ID, &item.ProductID, &item.BatchNumber, &item.Quantity, &item.LocationID, &item.ExpiryDate, &item.LastCounted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *txRepository) ItemsAtLocationForUpdate(ctx context.Context, productID, locationID int64) ([]Item, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, product_id, batch_number, quantity, location_id, expiry_date, last_counted
FROM inventory_items WHERE product_id=$1 AND location_id=$2 ORDER BY id FOR UPDATE`, productID, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.BatchNumber, &item.Quantity, &item.LocationID, &item.ExpiryDate, &item.LastCounted); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) ItemForUpdate(ctx context.Context, itemID int64) (Item, error) {
	var item Item
	err := r.tx.QueryRow(ctx, `SELECT id, product_id, batch_number, quantity, location_id, expiry_date, last_counted
FROM inventory_items WHERE id=$1 FOR UPDATE`, itemID).
		Scan(&item.ID, &item.ProductID, &item.BatchNumber, &item.Quantity, &item.LocationID, &item.ExpiryDate, &item.LastCounted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *txRepository) FindItemForUpdate(ctx context.Context, productID int64, batch string, locationID int64) (Item, error) {
	var item Item
	err := r.tx.QueryRow(ctx, `SELECT id, product_id, batch_number, quantity, location_id, expiry_date, last_counted
FROM inventory_items WHERE product_id=$1 AND batch_number=$2 AND location_id=$3 FOR UPDATE`, productID, batch, locationID).
		Scan(&item.ID, &item.ProductID, &item.BatchNumber, &item.Quantity, &item.LocationID, &item.ExpiryDate, &item.LastCounted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_items (product_id, batch_number, quantity, location_id, expiry_date)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, item.ProductID, item.BatchNumber, item.Quantity, item.LocationID, item.ExpiryDate).Scan(&id)
	return id, err
}

func (r *txRepository) SetItemQuantity(ctx context.Context, itemID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE inventory_items SET quantity=$2 WHERE id=$1`, itemID, quantity)
	return err
}

func (r *txRepository) SetItemCount(ctx context.Context, itemID, quantity int64, countedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE inventory_items SET quantity=$2, last_counted=$3 WHERE id=$1`, itemID, quantity, countedAt)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (product_id, movement_type, quantity, reference_number, from_location_id, to_location_id, performed_by, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		movement.ProductID, string(movement.Type), movement.Quantity, movement.Reference, movement.FromLocationID, nullInt(movement.ToLocationID), nullInt(movement.PerformedBy), movement.OccurredAt).Scan(&id)
	return id, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
