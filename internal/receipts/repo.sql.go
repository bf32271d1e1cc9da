package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository persists receipts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	Insert(ctx context.Context, receipt Receipt) (int64, error)
	ForUpdate(ctx context.Context, id int64) (Receipt, error)
	SetPrinted(ctx context.Context, id int64, printedCount int, printedAt time.Time) error
	SetVoided(ctx context.Context, id int64, reason string) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("receipts repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get fetches one receipt by id.
func (r *Repository) Get(ctx context.Context, id int64) (Receipt, error) {
	return scanReceipt(r.pool.QueryRow(ctx, `SELECT id, receipt_number, transaction_id, printed_count, last_printed, voided, void_reason
FROM receipts WHERE id=$1`, id))
}

// GetByTransaction fetches the receipt issued for a transaction.
func (r *Repository) GetByTransaction(ctx context.Context, transactionID int64) (Receipt, error) {
	return scanReceipt(r.pool.QueryRow(ctx, `SELECT id, receipt_number, transaction_id, printed_count, last_printed, voided, void_reason
FROM receipts WHERE transaction_id=$1`, transactionID))
}

// List lists receipts, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, receipt_number, transaction_id, printed_count, last_printed, voided, void_reason
FROM receipts
WHERE ($1::boolean IS NULL OR voided = $1)
ORDER BY id DESC
LIMIT $2`, filter.Voided, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	receipts := []Receipt{}
	for rows.Next() {
		var receipt Receipt
		if err := rows.Scan(&receipt.ID, &receipt.ReceiptNumber, &receipt.TransactionID, &receipt.PrintedCount, &receipt.LastPrinted, &receipt.Voided, &receipt.VoidReason); err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

func (r *txRepository) Insert(ctx context.Context, receipt Receipt) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO receipts (receipt_number, transaction_id, printed_count, voided, void_reason)
VALUES ($1,$2,0,FALSE,'') RETURNING id`, receipt.ReceiptNumber, receipt.TransactionID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrReceiptExists
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) ForUpdate(ctx context.Context, id int64) (Receipt, error) {
	return scanReceipt(r.tx.QueryRow(ctx, `SELECT id, receipt_number, transaction_id, printed_count, last_printed, voided, void_reason
FROM receipts WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) SetPrinted(ctx context.Context, id int64, printedCount int, printedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE receipts SET printed_count=$2, last_printed=$3 WHERE id=$1`, id, printedCount, printedAt)
	return err
}

func (r *txRepository) SetVoided(ctx context.Context, id int64, reason string) error {
	_, err := r.tx.Exec(ctx, `UPDATE receipts SET voided=TRUE, void_reason=$2 WHERE id=$1`, id, reason)
	return err
}

func scanReceipt(row pgx.Row) (Receipt, error) {
	var receipt Receipt
	err := row.Scan(&receipt.ID, &receipt.ReceiptNumber, &receipt.TransactionID, &receipt.PrintedCount, &receipt.LastPrinted, &receipt.Voided, &receipt.VoidReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrReceiptNotFound
		}
		return Receipt{}, err
	}
	return receipt, nil
}
