package credit

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	accounts map[int64]*Account
	payments []Payment
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]*Account)}
}

func (r *memoryRepo) addAccount(balance, limit decimal.Decimal) int64 {
	r.nextID++
	r.accounts[r.nextID] = &Account{ID: r.nextID, CustomerID: r.nextID, CreditLimit: limit, CurrentBalance: balance}
	return r.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]*Account, len(r.accounts))
	for id, account := range r.accounts {
		copied := *account
		snapshot[id] = &copied
	}
	payments := make([]Payment, len(r.payments))
	copy(payments, r.payments)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.accounts = snapshot
		r.payments = payments
		return err
	}
	return nil
}

func (r *memoryRepo) GetAccount(ctx context.Context, id int64) (Account, error) {
	if account, ok := r.accounts[id]; ok {
		return *account, nil
	}
	return Account{}, ErrAccountNotFound
}

func (r *memoryRepo) GetAccountByCustomer(ctx context.Context, customerID int64) (Account, error) {
	for _, account := range r.accounts {
		if account.CustomerID == customerID {
			return *account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (r *memoryRepo) CreateAccount(ctx context.Context, customerID int64, limit decimal.Decimal) (Account, error) {
	for _, account := range r.accounts {
		if account.CustomerID == customerID {
			return Account{}, ErrAccountExists
		}
	}
	r.nextID++
	account := Account{ID: r.nextID, CustomerID: customerID, CreditLimit: limit, CurrentBalance: decimal.Zero}
	r.accounts[account.ID] = &account
	return account, nil
}

func (r *memoryRepo) ListPayments(ctx context.Context, accountID int64, limit int) ([]Payment, error) {
	result := []Payment{}
	for _, p := range r.payments {
		if p.AccountID == accountID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (tx *memoryTx) AccountForUpdate(ctx context.Context, id int64) (Account, error) {
	if account, ok := tx.repo.accounts[id]; ok {
		return *account, nil
	}
	return Account{}, ErrAccountNotFound
}

func (tx *memoryTx) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	account, ok := tx.repo.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.CurrentBalance = balance
	return nil
}

func (tx *memoryTx) StampLastPayment(ctx context.Context, id int64, at time.Time) error {
	account, ok := tx.repo.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.LastPaymentDate = &at
	return nil
}

func (tx *memoryTx) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	payment.ID = int64(len(tx.repo.payments) + 1)
	tx.repo.payments = append(tx.repo.payments, payment)
	return payment.ID, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUseCreditTwoOutcomes(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addAccount(dec("100"), dec("500"))
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	result, err := svc.UseCredit(ctx, id, dec("60"))
	require.NoError(t, err)
	require.True(t, result.Approved)
	require.True(t, result.Balance.Equal(dec("40")))

	// Declined is an outcome, not an error, and leaves the balance alone.
	result, err = svc.UseCredit(ctx, id, dec("60"))
	require.NoError(t, err)
	require.False(t, result.Approved)
	require.True(t, result.Balance.Equal(dec("40")))

	account, err := svc.GetAccount(ctx, id)
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(dec("40")))

	_, err = svc.AddCredit(ctx, id, dec("60"))
	require.NoError(t, err)
	account, err = svc.GetAccount(ctx, id)
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(dec("100")))
}

func TestUseCreditExactBalance(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addAccount(dec("25.50"), dec("100"))
	svc := NewService(repo, nil, ServiceConfig{})

	result, err := svc.UseCredit(context.Background(), id, dec("25.50"))
	require.NoError(t, err)
	require.True(t, result.Approved)
	require.True(t, result.Balance.IsZero())
}

func TestAddCreditValidation(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addAccount(dec("0"), dec("100"))
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.AddCredit(ctx, id, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.AddCredit(ctx, id, dec("-5"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.UseCredit(ctx, id, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAddCreditLimitNotEnforcedByDefault(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addAccount(dec("90"), dec("100"))
	svc := NewService(repo, nil, ServiceConfig{})

	account, err := svc.AddCredit(context.Background(), id, dec("50"))
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(dec("140")))
}

func TestAddCreditLimitEnforcedWhenConfigured(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addAccount(dec("90"), dec("100"))
	svc := NewService(repo, nil, ServiceConfig{EnforceLimit: true})
	ctx := context.Background()

	_, err := svc.AddCredit(ctx, id, dec("50"))
	require.ErrorIs(t, err, ErrLimitExceeded)

	account, err := svc.GetAccount(ctx, id)
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(dec("90")))

	_, err = svc.AddCredit(ctx, id, dec("10"))
	require.NoError(t, err)
}

func TestRecordPaymentDoesNotTouchBalance(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addAccount(dec("40"), dec("100"))
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	payment, err := svc.RecordPayment(ctx, PaymentInput{AccountID: id, Amount: dec("30"), Reference: "PAY-1", ReceivedBy: 7})
	require.NoError(t, err)
	require.Equal(t, "PAY-1", payment.Reference)

	account, err := svc.GetAccount(ctx, id)
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(dec("40")))
	require.NotNil(t, account.LastPaymentDate)

	payments, err := svc.ListPayments(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	_, err = svc.RecordPayment(ctx, PaymentInput{AccountID: id, Amount: dec("30")})
	require.Error(t, err)
}

func TestOpenAccountOnePerCustomer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.OpenAccount(ctx, 9, dec("200"))
	require.NoError(t, err)

	_, err = svc.OpenAccount(ctx, 9, dec("300"))
	require.ErrorIs(t, err, ErrAccountExists)
}
