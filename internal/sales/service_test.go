package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/credit"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/receipts"
)

type memoryRepo struct {
	transactions map[int64]*Transaction
	returns      map[int64]*Return
	nextID       int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{transactions: make(map[int64]*Transaction), returns: make(map[int64]*Return)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Transaction, error) {
	if t, ok := r.transactions[id]; ok {
		return *t, nil
	}
	return Transaction{}, ErrTransactionNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	result := []Transaction{}
	for _, t := range r.transactions {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		result = append(result, *t)
	}
	return result, nil
}

func (r *memoryRepo) GetReturn(ctx context.Context, id int64) (Return, error) {
	if ret, ok := r.returns[id]; ok {
		return *ret, nil
	}
	return Return{}, ErrReturnNotFound
}

func (r *memoryRepo) ListReturns(ctx context.Context, transactionID int64, limit int) ([]Return, error) {
	result := []Return{}
	for _, ret := range r.returns {
		if transactionID != 0 && ret.TransactionID != transactionID {
			continue
		}
		result = append(result, *ret)
	}
	return result, nil
}

func (r *memoryRepo) InsertReturn(ctx context.Context, ret Return) (Return, error) {
	r.nextID++
	ret.ID = r.nextID
	r.returns[ret.ID] = &ret
	return ret, nil
}

func (r *memoryRepo) DeleteReturn(ctx context.Context, id int64) error {
	if _, ok := r.returns[id]; !ok {
		return ErrReturnNotFound
	}
	delete(r.returns, id)
	return nil
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, transaction Transaction) (int64, error) {
	tx.repo.nextID++
	transaction.ID = tx.repo.nextID
	transaction.Items = nil
	tx.repo.transactions[transaction.ID] = &transaction
	return transaction.ID, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, item TransactionItem) (int64, error) {
	t := tx.repo.transactions[item.TransactionID]
	item.ID = int64(len(t.Items) + 1)
	t.Items = append(t.Items, item)
	return item.ID, nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	t, ok := tx.repo.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	t.Status = status
	t.CompletedAt = completedAt
	return nil
}

type stubCredit struct {
	account  credit.Account
	approved bool
	spent    []decimal.Decimal
	refunded []decimal.Decimal
}

func (c *stubCredit) GetAccountByCustomer(ctx context.Context, customerID int64) (credit.Account, error) {
	if c.account.ID == 0 {
		return credit.Account{}, credit.ErrAccountNotFound
	}
	return c.account, nil
}

func (c *stubCredit) UseCredit(ctx context.Context, accountID int64, amount decimal.Decimal) (credit.UseCreditResult, error) {
	c.spent = append(c.spent, amount)
	if !c.approved {
		return credit.UseCreditResult{Approved: false, Balance: c.account.CurrentBalance, Reason: "insufficient credit"}, nil
	}
	return credit.UseCreditResult{Approved: true, Balance: c.account.CurrentBalance.Sub(amount)}, nil
}

func (c *stubCredit) AddCredit(ctx context.Context, accountID int64, amount decimal.Decimal) (credit.Account, error) {
	c.refunded = append(c.refunded, amount)
	account := c.account
	account.CurrentBalance = account.CurrentBalance.Add(amount)
	return account, nil
}

type stubLedger struct {
	movements []ledger.MovementInput
	stocks    map[int64][]ledger.LocationStock
	err       error
}

func (l *stubLedger) RecordMovement(ctx context.Context, input ledger.MovementInput) (ledger.Movement, error) {
	if l.err != nil {
		return ledger.Movement{}, l.err
	}
	l.movements = append(l.movements, input)
	return ledger.Movement{ProductID: input.ProductID, Type: input.Type, Quantity: input.Quantity}, nil
}

// StockByLocation reports unlimited stock at location 1 unless the test
// seeds per-product levels.
func (l *stubLedger) StockByLocation(ctx context.Context, productID int64) ([]ledger.LocationStock, error) {
	if l.stocks == nil {
		return []ledger.LocationStock{{LocationID: 1, Quantity: 1 << 30}}, nil
	}
	return l.stocks[productID], nil
}

type stubReceipts struct {
	issued []int64
}

func (r *stubReceipts) Issue(ctx context.Context, transactionID int64) (receipts.Receipt, error) {
	r.issued = append(r.issued, transactionID)
	return receipts.Receipt{ID: transactionID, TransactionID: transactionID}, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(repo *memoryRepo, creditStub *stubCredit, ledgerStub *stubLedger, receiptStub *stubReceipts) *Service {
	return NewService(repo, creditStub, ledgerStub, receiptStub, nil)
}

func pendingCashSale(t *testing.T, svc *Service) Transaction {
	t.Helper()
	transaction, err := svc.Create(context.Background(), TransactionInput{
		LocationID:    1,
		PaymentMethod: PayCash,
		Items: []ItemInput{
			{ProductID: 10, Quantity: 2, UnitPrice: dec("4.50")},
			{ProductID: 11, Quantity: 1, UnitPrice: dec("12.00")},
		},
	})
	require.NoError(t, err)
	return transaction
}

func TestCreateComputesTotals(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &stubCredit{}, &stubLedger{}, &stubReceipts{})
	transaction := pendingCashSale(t, svc)

	require.Equal(t, StatusPending, transaction.Status)
	require.True(t, transaction.Subtotal.Equal(dec("21")))
	require.True(t, transaction.TotalAmount.Equal(dec("21")))
	require.Len(t, transaction.Items, 2)
	require.NotEmpty(t, transaction.TransactionNumber)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &stubCredit{}, &stubLedger{}, &stubReceipts{})
	ctx := context.Background()

	_, err := svc.Create(ctx, TransactionInput{PaymentMethod: PayCash})
	require.ErrorIs(t, err, ErrNoItems)

	_, err = svc.Create(ctx, TransactionInput{PaymentMethod: "BARTER", Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrInvalidPayment)

	_, err = svc.Create(ctx, TransactionInput{PaymentMethod: PayCredit, Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrCreditCustomer)

	_, err = svc.Create(ctx, TransactionInput{PaymentMethod: PayCash, Items: []ItemInput{{ProductID: 1, Quantity: 0}}})
	require.ErrorIs(t, err, ErrInvalidItem)
}

func TestCompleteDepletesStockAndIssuesReceipt(t *testing.T) {
	repo := newMemoryRepo()
	ledgerStub := &stubLedger{}
	receiptStub := &stubReceipts{}
	svc := newTestService(repo, &stubCredit{}, ledgerStub, receiptStub)
	transaction := pendingCashSale(t, svc)

	completed, err := svc.Complete(context.Background(), transaction.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	require.Len(t, ledgerStub.movements, 2)
	require.Equal(t, ledger.MovementTypeOut, ledgerStub.movements[0].Type)
	require.Equal(t, transaction.TransactionNumber, ledgerStub.movements[0].Reference)
	require.Equal(t, []int64{transaction.ID}, receiptStub.issued)

	// Completion is one-shot.
	_, err = svc.Complete(context.Background(), transaction.ID)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestCompleteCreditSaleSpendsStoreCredit(t *testing.T) {
	repo := newMemoryRepo()
	creditStub := &stubCredit{account: credit.Account{ID: 5, CustomerID: 3, CurrentBalance: dec("100")}, approved: true}
	svc := newTestService(repo, creditStub, &stubLedger{}, &stubReceipts{})

	transaction, err := svc.Create(context.Background(), TransactionInput{
		CustomerID:    3,
		LocationID:    1,
		PaymentMethod: PayCredit,
		Items:         []ItemInput{{ProductID: 10, Quantity: 1, UnitPrice: dec("30")}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), transaction.ID)
	require.NoError(t, err)
	require.Len(t, creditStub.spent, 1)
	require.True(t, creditStub.spent[0].Equal(dec("30")))
}

func TestCompleteCreditDeclinedLeavesPending(t *testing.T) {
	repo := newMemoryRepo()
	creditStub := &stubCredit{account: credit.Account{ID: 5, CustomerID: 3, CurrentBalance: dec("10")}, approved: false}
	ledgerStub := &stubLedger{}
	svc := newTestService(repo, creditStub, ledgerStub, &stubReceipts{})

	transaction, err := svc.Create(context.Background(), TransactionInput{
		CustomerID:    3,
		LocationID:    1,
		PaymentMethod: PayCredit,
		Items:         []ItemInput{{ProductID: 10, Quantity: 1, UnitPrice: dec("30")}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), transaction.ID)
	require.ErrorIs(t, err, ErrCreditDeclined)

	stored, err := svc.Get(context.Background(), transaction.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
	require.Empty(t, ledgerStub.movements)
}

func TestCompleteCreditShortStockSpendsNothing(t *testing.T) {
	repo := newMemoryRepo()
	creditStub := &stubCredit{account: credit.Account{ID: 5, CustomerID: 3, CurrentBalance: dec("100")}, approved: true}
	ledgerStub := &stubLedger{stocks: map[int64][]ledger.LocationStock{
		10: {{LocationID: 1, Quantity: 2}},
	}}
	svc := newTestService(repo, creditStub, ledgerStub, &stubReceipts{})

	transaction, err := svc.Create(context.Background(), TransactionInput{
		CustomerID:    3,
		LocationID:    1,
		PaymentMethod: PayCredit,
		Items:         []ItemInput{{ProductID: 10, Quantity: 3, UnitPrice: dec("3.00")}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), transaction.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	// No credit left the account and no stock was posted.
	require.Empty(t, creditStub.spent)
	require.Empty(t, ledgerStub.movements)

	stored, err := svc.Get(context.Background(), transaction.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
}

func TestCompleteRefundsCreditWhenMovementFails(t *testing.T) {
	repo := newMemoryRepo()
	creditStub := &stubCredit{account: credit.Account{ID: 5, CustomerID: 3, CurrentBalance: dec("100")}, approved: true}
	ledgerStub := &stubLedger{err: ledger.ErrInsufficientStock}
	svc := newTestService(repo, creditStub, ledgerStub, &stubReceipts{})

	transaction, err := svc.Create(context.Background(), TransactionInput{
		CustomerID:    3,
		LocationID:    1,
		PaymentMethod: PayCredit,
		Items:         []ItemInput{{ProductID: 10, Quantity: 3, UnitPrice: dec("3.00")}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), transaction.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	// The spend was compensated in full and the sale stays pending.
	require.Len(t, creditStub.spent, 1)
	require.Len(t, creditStub.refunded, 1)
	require.True(t, creditStub.refunded[0].Equal(dec("9")))

	stored, err := svc.Get(context.Background(), transaction.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
}

func TestCreateReturnRestocks(t *testing.T) {
	repo := newMemoryRepo()
	ledgerStub := &stubLedger{}
	svc := newTestService(repo, &stubCredit{}, ledgerStub, &stubReceipts{})
	transaction := pendingCashSale(t, svc)

	_, err := svc.CreateReturn(context.Background(), Return{TransactionID: transaction.ID, ProductID: 10, Quantity: 1, Amount: dec("4.50")})
	require.ErrorIs(t, err, ErrReturnNotCompleted)

	_, err = svc.Complete(context.Background(), transaction.ID)
	require.NoError(t, err)
	ledgerStub.movements = nil

	ret, err := svc.CreateReturn(context.Background(), Return{TransactionID: transaction.ID, ProductID: 10, Quantity: 1, Amount: dec("4.50"), Reason: "damaged"})
	require.NoError(t, err)
	require.NotZero(t, ret.ID)
	require.Len(t, ledgerStub.movements, 1)
	require.Equal(t, ledger.MovementTypeReturn, ledgerStub.movements[0].Type)
	require.EqualValues(t, 1, ledgerStub.movements[0].Quantity)
}
