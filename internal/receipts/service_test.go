package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	receipts map[int64]*Receipt
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{receipts: make(map[int64]*Receipt)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]*Receipt, len(r.receipts))
	for id, receipt := range r.receipts {
		copied := *receipt
		snapshot[id] = &copied
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.receipts = snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Receipt, error) {
	if receipt, ok := r.receipts[id]; ok {
		return *receipt, nil
	}
	return Receipt{}, ErrReceiptNotFound
}

func (r *memoryRepo) GetByTransaction(ctx context.Context, transactionID int64) (Receipt, error) {
	for _, receipt := range r.receipts {
		if receipt.TransactionID == transactionID {
			return *receipt, nil
		}
	}
	return Receipt{}, ErrReceiptNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	result := []Receipt{}
	for _, receipt := range r.receipts {
		if filter.Voided != nil && receipt.Voided != *filter.Voided {
			continue
		}
		result = append(result, *receipt)
	}
	return result, nil
}

func (tx *memoryTx) Insert(ctx context.Context, receipt Receipt) (int64, error) {
	for _, existing := range tx.repo.receipts {
		if existing.TransactionID == receipt.TransactionID {
			return 0, ErrReceiptExists
		}
	}
	tx.repo.nextID++
	receipt.ID = tx.repo.nextID
	tx.repo.receipts[receipt.ID] = &receipt
	return receipt.ID, nil
}

func (tx *memoryTx) ForUpdate(ctx context.Context, id int64) (Receipt, error) {
	if receipt, ok := tx.repo.receipts[id]; ok {
		return *receipt, nil
	}
	return Receipt{}, ErrReceiptNotFound
}

func (tx *memoryTx) SetPrinted(ctx context.Context, id int64, printedCount int, printedAt time.Time) error {
	receipt, ok := tx.repo.receipts[id]
	if !ok {
		return ErrReceiptNotFound
	}
	receipt.PrintedCount = printedCount
	receipt.LastPrinted = &printedAt
	return nil
}

func (tx *memoryTx) SetVoided(ctx context.Context, id int64, reason string) error {
	receipt, ok := tx.repo.receipts[id]
	if !ok {
		return ErrReceiptNotFound
	}
	receipt.Voided = true
	receipt.VoidReason = reason
	return nil
}

func TestIssueOneReceiptPerTransaction(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	receipt, err := svc.Issue(ctx, 7)
	require.NoError(t, err)
	require.NotZero(t, receipt.ID)
	require.NotEmpty(t, receipt.ReceiptNumber)
	require.Zero(t, receipt.PrintedCount)
	require.False(t, receipt.Voided)

	_, err = svc.Issue(ctx, 7)
	require.ErrorIs(t, err, ErrReceiptExists)
}

func TestPrintIncrementsCount(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	receipt, err := svc.Issue(ctx, 1)
	require.NoError(t, err)

	printed, err := svc.Print(ctx, receipt.ID)
	require.NoError(t, err)
	require.Equal(t, 1, printed.PrintedCount)
	require.NotNil(t, printed.LastPrinted)

	printed, err = svc.Print(ctx, receipt.ID)
	require.NoError(t, err)
	require.Equal(t, 2, printed.PrintedCount)
}

func TestPrintVoidedReceiptAlwaysFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	receipt, err := svc.Issue(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Void(ctx, receipt.ID, "duplicate charge")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Print(ctx, receipt.ID)
		require.ErrorIs(t, err, ErrReceiptVoided)
	}

	stored, err := svc.Get(ctx, receipt.ID)
	require.NoError(t, err)
	require.Zero(t, stored.PrintedCount)
	require.True(t, stored.Voided)
}

func TestVoidRequiresReason(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	receipt, err := svc.Issue(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Void(ctx, receipt.ID, "  ")
	require.ErrorIs(t, err, ErrReasonRequired)

	stored, err := svc.Get(ctx, receipt.ID)
	require.NoError(t, err)
	require.False(t, stored.Voided)
}

func TestVoidAfterPrintingAllowed(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	receipt, err := svc.Issue(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Print(ctx, receipt.ID)
	require.NoError(t, err)

	voided, err := svc.Void(ctx, receipt.ID, "customer dispute")
	require.NoError(t, err)
	require.True(t, voided.Voided)
	require.Equal(t, "customer dispute", voided.VoidReason)
	require.Equal(t, 1, voided.PrintedCount)
}

func TestListFiltersOnVoidStatus(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	first, err := svc.Issue(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, 2)
	require.NoError(t, err)

	_, err = svc.Void(ctx, first.ID, "wrong items")
	require.NoError(t, err)

	voided := true
	result, err := svc.List(ctx, ListFilter{Voided: &voided})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, first.ID, result[0].ID)

	active := false
	result, err = svc.List(ctx, ListFilter{Voided: &active})
	require.NoError(t, err)
	require.Len(t, result, 1)
}
