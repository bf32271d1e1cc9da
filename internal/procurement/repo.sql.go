package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository persists procurement data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertPurchase(ctx context.Context, purchase Purchase) (int64, error)
	InsertItem(ctx context.Context, item PurchaseItem) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("procurement repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const purchaseColumns = `id, purchase_number, supplier_id, location_id, status, total_cost, created_by, created_at, completed_at`

// Get fetches one purchase with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id).
		Scan(&p.ID, &p.PurchaseNumber, &p.SupplierID, &p.LocationID, &p.Status, &p.TotalCost, &p.CreatedBy, &p.CreatedAt, &p.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrPurchaseNotFound
		}
		return Purchase{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_id, product_id, quantity, unit_cost, line_total, COALESCE(batch_number, ''), expiry_date
FROM purchase_items WHERE purchase_id = $1 ORDER BY id`, id)
	if err != nil {
		return Purchase{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.Quantity, &item.UnitCost, &item.LineTotal, &item.BatchNumber, &item.ExpiryDate); err != nil {
			return Purchase{}, err
		}
		p.Items = append(p.Items, item)
	}
	return p, rows.Err()
}

// List lists purchases without their lines, newest first.
func (r *Repository) List(ctx context.Context, filter PurchaseFilter) ([]Purchase, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR supplier_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3`, string(filter.Status), filter.SupplierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.PurchaseNumber, &p.SupplierID, &p.LocationID, &p.Status, &p.TotalCost, &p.CreatedBy, &p.CreatedAt, &p.CompletedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// GetReturn fetches one purchase return.
func (r *Repository) GetReturn(ctx context.Context, id int64) (Return, error) {
	var ret Return
	err := r.pool.QueryRow(ctx, `SELECT id, purchase_id, product_id, quantity, amount, reason, created_by, created_at
FROM purchase_returns WHERE id = $1`, id).
		Scan(&ret.ID, &ret.PurchaseID, &ret.ProductID, &ret.Quantity, &ret.Amount, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Return{}, ErrReturnNotFound
		}
		return Return{}, err
	}
	return ret, nil
}

// ListReturns lists purchase returns, newest first.
func (r *Repository) ListReturns(ctx context.Context, purchaseID int64, limit int) ([]Return, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_id, product_id, quantity, amount, reason, created_by, created_at
FROM purchase_returns
WHERE ($1 = 0 OR purchase_id = $1)
ORDER BY id DESC
LIMIT $2`, purchaseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	returns := []Return{}
	for rows.Next() {
		var ret Return
		if err := rows.Scan(&ret.ID, &ret.PurchaseID, &ret.ProductID, &ret.Quantity, &ret.Amount, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt); err != nil {
			return nil, err
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

// InsertReturn stores one purchase return.
func (r *Repository) InsertReturn(ctx context.Context, ret Return) (Return, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO purchase_returns (purchase_id, product_id, quantity, amount, reason, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		ret.PurchaseID, ret.ProductID, ret.Quantity, ret.Amount, ret.Reason, ret.CreatedBy, ret.CreatedAt).Scan(&ret.ID)
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}

// DeleteReturn removes one purchase return.
func (r *Repository) DeleteReturn(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_returns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReturnNotFound
	}
	return nil
}

func (r *txRepository) InsertPurchase(ctx context.Context, purchase Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (purchase_number, supplier_id, location_id, status, total_cost, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		purchase.PurchaseNumber, purchase.SupplierID, purchase.LocationID, string(purchase.Status), purchase.TotalCost, purchase.CreatedBy, purchase.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItem(ctx context.Context, item PurchaseItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost, line_total, batch_number, expiry_date)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7) RETURNING id`,
		item.PurchaseID, item.ProductID, item.Quantity, item.UnitCost, item.LineTotal, item.BatchNumber, item.ExpiryDate).Scan(&id)
	return id, err
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchases SET status=$2, completed_at=$3 WHERE id=$1`, id, string(status), completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}
