package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
)

type memoryRepo struct {
	purchases map[int64]*Purchase
	returns   map[int64]*Return
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{purchases: make(map[int64]*Purchase), returns: make(map[int64]*Return)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Purchase, error) {
	if p, ok := r.purchases[id]; ok {
		return *p, nil
	}
	return Purchase{}, ErrPurchaseNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter PurchaseFilter) ([]Purchase, error) {
	result := []Purchase{}
	for _, p := range r.purchases {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		result = append(result, *p)
	}
	return result, nil
}

func (r *memoryRepo) GetReturn(ctx context.Context, id int64) (Return, error) {
	if ret, ok := r.returns[id]; ok {
		return *ret, nil
	}
	return Return{}, ErrReturnNotFound
}

func (r *memoryRepo) ListReturns(ctx context.Context, purchaseID int64, limit int) ([]Return, error) {
	result := []Return{}
	for _, ret := range r.returns {
		if purchaseID != 0 && ret.PurchaseID != purchaseID {
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

func (tx *memoryTx) InsertPurchase(ctx context.Context, purchase Purchase) (int64, error) {
	tx.repo.nextID++
	purchase.ID = tx.repo.nextID
	purchase.Items = nil
	tx.repo.purchases[purchase.ID] = &purchase
	return purchase.ID, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, item PurchaseItem) (int64, error) {
	p := tx.repo.purchases[item.PurchaseID]
	item.ID = int64(len(p.Items) + 1)
	p.Items = append(p.Items, item)
	return item.ID, nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	p, ok := tx.repo.purchases[id]
	if !ok {
		return ErrPurchaseNotFound
	}
	p.Status = status
	p.CompletedAt = completedAt
	return nil
}

type stubLedger struct {
	movements []ledger.MovementInput
}

func (l *stubLedger) RecordMovement(ctx context.Context, input ledger.MovementInput) (ledger.Movement, error) {
	l.movements = append(l.movements, input)
	return ledger.Movement{ProductID: input.ProductID, Type: input.Type, Quantity: input.Quantity}, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pendingPurchase(t *testing.T, svc *Service) Purchase {
	t.Helper()
	purchase, err := svc.Create(context.Background(), PurchaseInput{
		SupplierID: 2,
		LocationID: 1,
		Items: []ItemInput{
			{ProductID: 10, Quantity: 20, UnitCost: dec("3.25"), BatchNumber: "B-100"},
			{ProductID: 11, Quantity: 5, UnitCost: dec("8.00"), BatchNumber: "B-101"},
		},
	})
	require.NoError(t, err)
	return purchase
}

func TestCreatePurchaseComputesTotal(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubLedger{}, nil)
	purchase := pendingPurchase(t, svc)

	require.Equal(t, StatusPending, purchase.Status)
	require.True(t, purchase.TotalCost.Equal(dec("105")))
	require.Len(t, purchase.Items, 2)
}

func TestCreatePurchaseValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubLedger{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, PurchaseInput{LocationID: 1, Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrInvalidSupplier)

	_, err = svc.Create(ctx, PurchaseInput{SupplierID: 2})
	require.ErrorIs(t, err, ErrNoItems)

	_, err = svc.Create(ctx, PurchaseInput{SupplierID: 2, Items: []ItemInput{{ProductID: 1, Quantity: -1}}})
	require.ErrorIs(t, err, ErrInvalidItem)
}

func TestCompletePostsInboundMovements(t *testing.T) {
	ledgerStub := &stubLedger{}
	svc := NewService(newMemoryRepo(), ledgerStub, nil)
	purchase := pendingPurchase(t, svc)

	completed, err := svc.Complete(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	require.Len(t, ledgerStub.movements, 2)
	require.Equal(t, ledger.MovementTypeIn, ledgerStub.movements[0].Type)
	require.Equal(t, "B-100", ledgerStub.movements[0].BatchNumber)
	require.Equal(t, purchase.PurchaseNumber, ledgerStub.movements[0].Reference)

	_, err = svc.Complete(context.Background(), purchase.ID)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestCancelPendingOnly(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubLedger{}, nil)
	purchase := pendingPurchase(t, svc)

	cancelled, err := svc.Cancel(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Complete(context.Background(), purchase.ID)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestCreateReturnDepletesStock(t *testing.T) {
	ledgerStub := &stubLedger{}
	svc := NewService(newMemoryRepo(), ledgerStub, nil)
	purchase := pendingPurchase(t, svc)

	_, err := svc.CreateReturn(context.Background(), Return{PurchaseID: purchase.ID, ProductID: 10, Quantity: 2, Amount: dec("6.50")})
	require.ErrorIs(t, err, ErrReturnNotCompleted)

	_, err = svc.Complete(context.Background(), purchase.ID)
	require.NoError(t, err)
	ledgerStub.movements = nil

	ret, err := svc.CreateReturn(context.Background(), Return{PurchaseID: purchase.ID, ProductID: 10, Quantity: 2, Amount: dec("6.50"), Reason: "damaged crate"})
	require.NoError(t, err)
	require.NotZero(t, ret.ID)
	require.Len(t, ledgerStub.movements, 1)
	require.Equal(t, ledger.MovementTypeOut, ledgerStub.movements[0].Type)
}
