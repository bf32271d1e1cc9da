package credit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository persists credit data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	AccountForUpdate(ctx context.Context, id int64) (Account, error)
	SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	StampLastPayment(ctx context.Context, id int64, at time.Time) error
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("credit repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetAccount fetches one credit account.
func (r *Repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT id, customer_id, credit_limit, current_balance, last_payment_date
FROM customer_credits WHERE id=$1`, id))
}

// GetAccountByCustomer fetches the account owned by a customer.
func (r *Repository) GetAccountByCustomer(ctx context.Context, customerID int64) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT id, customer_id, credit_limit, current_balance, last_payment_date
FROM customer_credits WHERE customer_id=$1`, customerID))
}

// CreateAccount inserts the single credit account for a customer. The
// customer_id uniqueness constraint keeps it one account per customer.
func (r *Repository) CreateAccount(ctx context.Context, customerID int64, limit decimal.Decimal) (Account, error) {
	account := Account{CustomerID: customerID, CreditLimit: limit, CurrentBalance: decimal.Zero}
	err := r.pool.QueryRow(ctx, `INSERT INTO customer_credits (customer_id, credit_limit, current_balance)
VALUES ($1,$2,0) RETURNING id`, customerID, limit).Scan(&account.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrAccountExists
		}
		return Account{}, err
	}
	return account, nil
}

// ListPayments lists payment history for an account, newest first.
func (r *Repository) ListPayments(ctx context.Context, accountID int64, limit int) ([]Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, customer_credit_id, amount, reference_number, received_by, payment_date
FROM credit_payments WHERE customer_credit_id=$1 ORDER BY payment_date DESC, id DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Amount, &p.Reference, &p.ReceivedBy, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *txRepository) AccountForUpdate(ctx context.Context, id int64) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT id, customer_id, credit_limit, current_balance, last_payment_date
FROM customer_credits WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `UPDATE customer_credits SET current_balance=$2 WHERE id=$1`, id, balance)
	return err
}

func (r *txRepository) StampLastPayment(ctx context.Context, id int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE customer_credits SET last_payment_date=$2 WHERE id=$1`, id, at)
	return err
}

func (r *txRepository) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO credit_payments (customer_credit_id, amount, reference_number, received_by, payment_date)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, payment.AccountID, payment.Amount, payment.Reference, nullInt(payment.ReceivedBy), payment.PaidAt).Scan(&id)
	return id, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var account Account
	err := row.Scan(&account.ID, &account.CustomerID, &account.CreditLimit, &account.CurrentBalance, &account.LastPaymentDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
