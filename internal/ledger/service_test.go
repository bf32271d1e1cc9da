package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items     map[int64]*Item
	movements []Movement
	nextItem  int64
	nextMove  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]*Item)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// Snapshot so a failed callback leaves state untouched, matching the
	// rollback behaviour of the SQL repository.
	snapshotItems := make(map[int64]*Item, len(r.items))
	for id, item := range r.items {
		copied := *item
		snapshotItems[id] = &copied
	}
	snapshotMoves := make([]Movement, len(r.movements))
	copy(snapshotMoves, r.movements)
	nextItem, nextMove := r.nextItem, r.nextMove

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.items = snapshotItems
		r.movements = snapshotMoves
		r.nextItem, r.nextMove = nextItem, nextMove
		return err
	}
	return nil
}

func (r *memoryRepo) AvailableQuantity(ctx context.Context, productID int64) (int64, error) {
	var total int64
	for _, item := range r.items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	result := []Movement{}
	for _, m := range r.movements {
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (r *memoryRepo) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	result := []Item{}
	for id := int64(1); id <= r.nextItem; id++ {
		item, ok := r.items[id]
		if !ok {
			continue
		}
		if filter.ProductID != 0 && item.ProductID != filter.ProductID {
			continue
		}
		if filter.LocationID != 0 && item.LocationID != filter.LocationID {
			continue
		}
		result = append(result, *item)
	}
	return result, nil
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	if item, ok := r.items[id]; ok {
		return *item, nil
	}
	return Item{}, ErrItemNotFound
}

func (r *memoryRepo) StockByLocation(ctx context.Context, productID int64) ([]LocationStock, error) {
	byLocation := map[int64]int64{}
	for _, item := range r.items {
		if item.ProductID == productID {
			byLocation[item.LocationID] += item.Quantity
		}
	}
	result := []LocationStock{}
	for loc, qty := range byLocation {
		result = append(result, LocationStock{LocationID: loc, Quantity: qty})
	}
	return result, nil
}

func (tx *memoryTx) ItemsAtLocationForUpdate(ctx context.Context, productID, locationID int64) ([]Item, error) {
	items := []Item{}
	for id := int64(1); id <= tx.repo.nextItem; id++ {
		item, ok := tx.repo.items[id]
		if !ok {
			continue
		}
		if item.ProductID == productID && item.LocationID == locationID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (tx *memoryTx) ItemForUpdate(ctx context.Context, itemID int64) (Item, error) {
	if item, ok := tx.repo.items[itemID]; ok {
		return *item, nil
	}
	return Item{}, ErrItemNotFound
}

func (tx *memoryTx) FindItemForUpdate(ctx context.Context, productID int64, batch string, locationID int64) (Item, error) {
	for _, item := range tx.repo.items {
		if item.ProductID == productID && item.BatchNumber == batch && item.LocationID == locationID {
			return *item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (tx *memoryTx) InsertItem(ctx context.Context, item Item) (int64, error) {
	tx.repo.nextItem++
	item.ID = tx.repo.nextItem
	tx.repo.items[item.ID] = &item
	return item.ID, nil
}

func (tx *memoryTx) SetItemQuantity(ctx context.Context, itemID, quantity int64) error {
	item, ok := tx.repo.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (tx *memoryTx) SetItemCount(ctx context.Context, itemID, quantity int64, countedAt time.Time) error {
	item, ok := tx.repo.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	item.LastCounted = &countedAt
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	tx.repo.nextMove++
	movement.ID = tx.repo.nextMove
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}

func stockIn(t *testing.T, svc *Service, product, location, qty int64, batch string) {
	t.Helper()
	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: product, Type: MovementTypeIn, Quantity: qty,
		FromLocationID: location, BatchNumber: batch,
	})
	require.NoError(t, err)
}

func TestRecordMovementStockInAndOut(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	stockIn(t, svc, 1, 1, 10, "B1")

	available, err := svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), available)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeOut, Quantity: 4, FromLocationID: 1})
	require.NoError(t, err)

	available, err = svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(6), available)

	movements, err := svc.ListMovements(ctx, MovementFilter{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, movements, 2)
}

func TestRecordMovementOutAcrossBatches(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	// Product with two batches of 5 and 3 at the same location.
	stockIn(t, svc, 1, 1, 5, "B1")
	stockIn(t, svc, 1, 1, 3, "B2")

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeOut, Quantity: 6, FromLocationID: 1})
	require.NoError(t, err)

	available, err := svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), available)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeOut, Quantity: 3, FromLocationID: 1})
	require.ErrorIs(t, err, ErrInsufficientStock)

	available, err = svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), available)

	// The failed movement must not append to the history.
	movements, err := svc.ListMovements(ctx, MovementFilter{ProductID: 1, Type: MovementTypeOut})
	require.NoError(t, err)
	require.Len(t, movements, 1)
}

func TestRecordMovementValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeIn, Quantity: 0, FromLocationID: 1})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeOut, Quantity: -2, FromLocationID: 1})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: "DESTROY", Quantity: 1, FromLocationID: 1})
	require.Error(t, err)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeTransfer, Quantity: 1, FromLocationID: 1})
	require.ErrorIs(t, err, ErrInvalidLocation)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeTransfer, Quantity: 1, FromLocationID: 1, ToLocationID: 1})
	require.ErrorIs(t, err, ErrInvalidLocation)
}

func TestTransferMovesStockBetweenLocations(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	stockIn(t, svc, 1, 1, 20, "B1")

	_, err := svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementTypeTransfer, Quantity: 5,
		FromLocationID: 1, ToLocationID: 2, Reference: "TRF-1",
	})
	require.NoError(t, err)

	stocks, err := svc.StockByLocation(ctx, 1)
	require.NoError(t, err)
	byLocation := map[int64]int64{}
	for _, s := range stocks {
		byLocation[s.LocationID] = s.Quantity
	}
	require.Equal(t, int64(15), byLocation[1])
	require.Equal(t, int64(5), byLocation[2])

	// Total across locations is preserved.
	available, err := svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(20), available)

	_, err = svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementTypeTransfer, Quantity: 50,
		FromLocationID: 1, ToLocationID: 2,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestTransferNamedBatchKeepsItsNumber(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	expiry := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementTypeIn, Quantity: 10,
		FromLocationID: 1, BatchNumber: "B1", ExpiryDate: &expiry,
	})
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementTypeTransfer, Quantity: 4,
		FromLocationID: 1, ToLocationID: 2, BatchNumber: "B1",
	})
	require.NoError(t, err)

	items, err := svc.ListItems(ctx, ItemFilter{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, items, 2)

	byLocation := map[int64]Item{}
	for _, item := range items {
		require.Equal(t, "B1", item.BatchNumber)
		byLocation[item.LocationID] = item
	}
	require.Equal(t, int64(6), byLocation[1].Quantity)
	require.Equal(t, int64(4), byLocation[2].Quantity)

	// The destination row inherits the batch expiry.
	require.NotNil(t, byLocation[2].ExpiryDate)
	require.True(t, byLocation[2].ExpiryDate.Equal(expiry))

	// A second transfer tops up the existing destination row.
	_, err = svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementTypeTransfer, Quantity: 2,
		FromLocationID: 1, ToLocationID: 2, BatchNumber: "B1",
	})
	require.NoError(t, err)
	items, err = svc.ListItems(ctx, ItemFilter{ProductID: 1, LocationID: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(6), items[0].Quantity)
}

func TestTransferNamedBatchChecksOnlyThatBatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	stockIn(t, svc, 1, 1, 5, "B1")
	stockIn(t, svc, 1, 1, 5, "B2")

	// B2 cannot cover a shortfall in B1.
	_, err := svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementTypeTransfer, Quantity: 8,
		FromLocationID: 1, ToLocationID: 2, BatchNumber: "B1",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// A batch the source location does not hold cannot move.
	_, err = svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementTypeTransfer, Quantity: 1,
		FromLocationID: 3, ToLocationID: 2, BatchNumber: "B1",
	})
	require.ErrorIs(t, err, ErrItemNotFound)

	available, err := svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), available)
}

func TestAdjustScopedToSourceLocation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	stockIn(t, svc, 1, 1, 5, "B1")
	stockIn(t, svc, 1, 2, 8, "B1")

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeAdjust, Quantity: -2, FromLocationID: 2, BatchNumber: "B1"})
	require.NoError(t, err)

	items, err := svc.ListItems(ctx, ItemFilter{ProductID: 1, LocationID: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(5), items[0].Quantity)

	items, err = svc.ListItems(ctx, ItemFilter{ProductID: 1, LocationID: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(6), items[0].Quantity)

	// Adjusting where the batch is not stocked is rejected.
	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeAdjust, Quantity: -1, FromLocationID: 3, BatchNumber: "B1"})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestReturnRestocks(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	stockIn(t, svc, 1, 1, 2, "B1")
	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeOut, Quantity: 2, FromLocationID: 1})
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeReturn, Quantity: 1, FromLocationID: 1, BatchNumber: "B1"})
	require.NoError(t, err)

	available, err := svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), available)
}

func TestUpdateCountRecordsAdjustment(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	stockIn(t, svc, 1, 1, 10, "B1")

	items, err := svc.ListItems(ctx, ItemFilter{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)

	updated, err := svc.UpdateCount(ctx, items[0].ID, 7, 42)
	require.NoError(t, err)
	require.Equal(t, int64(7), updated.Quantity)
	require.NotNil(t, updated.LastCounted)

	adjustments, err := svc.ListMovements(ctx, MovementFilter{ProductID: 1, Type: MovementTypeAdjust})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	require.Equal(t, int64(-3), adjustments[0].Quantity)

	_, err = svc.UpdateCount(ctx, items[0].ID, -1, 42)
	require.ErrorIs(t, err, ErrNegativeCount)

	// Counting the same quantity is a no-op for the movement history.
	_, err = svc.UpdateCount(ctx, items[0].ID, 7, 42)
	require.NoError(t, err)
	adjustments, err = svc.ListMovements(ctx, MovementFilter{ProductID: 1, Type: MovementTypeAdjust})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
}

func TestAdjustMovementAppliesSignedDelta(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	stockIn(t, svc, 1, 1, 5, "B1")

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeAdjust, Quantity: -2, FromLocationID: 1, BatchNumber: "B1"})
	require.NoError(t, err)

	available, err := svc.AvailableQuantity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), available)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementTypeAdjust, Quantity: -5, FromLocationID: 1, BatchNumber: "B1"})
	require.ErrorIs(t, err, ErrInsufficientStock)
}
