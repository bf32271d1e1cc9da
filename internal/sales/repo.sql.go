package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository persists sales data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertTransaction(ctx context.Context, transaction Transaction) (int64, error)
	InsertItem(ctx context.Context, item TransactionItem) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const transactionColumns = `id, transaction_number, customer_id, location_id, status, payment_method, subtotal, discount_amount, total_amount, created_by, created_at, completed_at`

// Get fetches one transaction with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	var t Transaction
	err := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM sales_transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.TransactionNumber, &t.CustomerID, &t.LocationID, &t.Status, &t.PaymentMethod, &t.Subtotal, &t.DiscountAmount, &t.TotalAmount, &t.CreatedBy, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, product_id, quantity, unit_price, line_total
FROM sales_transaction_items WHERE transaction_id = $1 ORDER BY id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return Transaction{}, err
		}
		t.Items = append(t.Items, item)
	}
	return t, rows.Err()
}

// List lists transactions without their lines, newest first.
func (r *Repository) List(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` FROM sales_transactions
WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR customer_id = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3`, string(filter.Status), filter.CustomerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	transactions := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.TransactionNumber, &t.CustomerID, &t.LocationID, &t.Status, &t.PaymentMethod, &t.Subtotal, &t.DiscountAmount, &t.TotalAmount, &t.CreatedBy, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// GetReturn fetches one sales return.
func (r *Repository) GetReturn(ctx context.Context, id int64) (Return, error) {
	var ret Return
	err := r.pool.QueryRow(ctx, `SELECT id, transaction_id, product_id, quantity, amount, reason, created_by, created_at
FROM sales_returns WHERE id = $1`, id).
		Scan(&ret.ID, &ret.TransactionID, &ret.ProductID, &ret.Quantity, &ret.Amount, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Return{}, ErrReturnNotFound
		}
		return Return{}, err
	}
	return ret, nil
}

// ListReturns lists sales returns, newest first.
func (r *Repository) ListReturns(ctx context.Context, transactionID int64, limit int) ([]Return, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, product_id, quantity, amount, reason, created_by, created_at
FROM sales_returns
WHERE ($1 = 0 OR transaction_id = $1)
ORDER BY id DESC
LIMIT $2`, transactionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	returns := []Return{}
	for rows.Next() {
		var ret Return
		if err := rows.Scan(&ret.ID, &ret.TransactionID, &ret.ProductID, &ret.Quantity, &ret.Amount, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt); err != nil {
			return nil, err
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

// InsertReturn stores one sales return.
func (r *Repository) InsertReturn(ctx context.Context, ret Return) (Return, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO sales_returns (transaction_id, product_id, quantity, amount, reason, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		ret.TransactionID, ret.ProductID, ret.Quantity, ret.Amount, ret.Reason, ret.CreatedBy, ret.CreatedAt).Scan(&ret.ID)
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}

// DeleteReturn removes one sales return.
func (r *Repository) DeleteReturn(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales_returns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReturnNotFound
	}
	return nil
}

func (r *txRepository) InsertTransaction(ctx context.Context, transaction Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_transactions (transaction_number, customer_id, location_id, status, payment_method, subtotal, discount_amount, total_amount, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		transaction.TransactionNumber, transaction.CustomerID, transaction.LocationID, string(transaction.Status), string(transaction.PaymentMethod),
		transaction.Subtotal, transaction.DiscountAmount, transaction.TotalAmount, transaction.CreatedBy, transaction.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertItem(ctx context.Context, item TransactionItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_transaction_items (transaction_id, product_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		item.TransactionID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal).Scan(&id)
	return id, err
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales_transactions SET status=$2, completed_at=$3 WHERE id=$1`, id, string(status), completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
