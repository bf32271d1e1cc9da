package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	AvailableQuantity(ctx context.Context, productID int64) (int64, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	StockByLocation(ctx context.Context, productID int64) ([]LocationStock, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// RecordMovement validates and posts a single movement. The movement row and
// every affected item quantity commit in one transaction; on any failure the
// stock state is left untouched.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (Movement, error) {
	if !input.Type.Valid() {
		return Movement{}, fmt.Errorf("ledger: unsupported movement type %q", input.Type)
	}
	if input.ProductID == 0 {
		return Movement{}, errors.New("ledger: product required")
	}
	if input.FromLocationID == 0 {
		return Movement{}, ErrInvalidLocation
	}
	switch input.Type {
	case MovementTypeAdjust:
		if input.Quantity == 0 {
			return Movement{}, ErrInvalidQuantity
		}
		if input.BatchNumber == "" {
			return Movement{}, errors.New("ledger: adjustment requires a batch number")
		}
	case MovementTypeTransfer:
		if input.Quantity <= 0 {
			return Movement{}, ErrInvalidQuantity
		}
		if input.ToLocationID == 0 || input.ToLocationID == input.FromLocationID {
			return Movement{}, ErrInvalidLocation
		}
	default:
		if input.Quantity <= 0 {
			return Movement{}, ErrInvalidQuantity
		}
	}

	now := time.Now().UTC()
	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("MOV-%d", now.UnixNano())
	}

	insertedKey := false
	key := fmt.Sprintf("%s:%s:%d", input.Type, reference, input.ProductID)
	if s.idempotency != nil && input.Reference != "" {
		if err := s.idempotency.CheckAndInsert(ctx, key, "ledger"); err != nil {
			return Movement{}, err
		}
		insertedKey = true
	}

	movement := Movement{
		ProductID:      input.ProductID,
		Type:           input.Type,
		Quantity:       input.Quantity,
		Reference:      reference,
		FromLocationID: input.FromLocationID,
		ToLocationID:   input.ToLocationID,
		PerformedBy:    input.ActorID,
		OccurredAt:     now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		switch input.Type {
		case MovementTypeIn, MovementTypeReturn:
			if err := s.receive(ctx, tx, input, reference, input.FromLocationID); err != nil {
				return err
			}
		case MovementTypeOut:
			if err := s.deplete(ctx, tx, input.ProductID, input.FromLocationID, input.Quantity); err != nil {
				return err
			}
		case MovementTypeTransfer:
			if input.BatchNumber != "" {
				if err := s.transferBatch(ctx, tx, input); err != nil {
					return err
				}
				break
			}
			if err := s.deplete(ctx, tx, input.ProductID, input.FromLocationID, input.Quantity); err != nil {
				return err
			}
			if err := s.receive(ctx, tx, input, reference, input.ToLocationID); err != nil {
				return err
			}
		case MovementTypeAdjust:
			item, err := tx.FindItemForUpdate(ctx, input.ProductID, input.BatchNumber, input.FromLocationID)
			if err != nil {
				return err
			}
			newQty := item.Quantity + input.Quantity
			if newQty < 0 {
				return ErrInsufficientStock
			}
			if err := tx.SetItemQuantity(ctx, item.ID, newQty); err != nil {
				return err
			}
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Movement{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("ledger:%s", input.Type),
			Entity:   "inventory_movement",
			EntityID: reference,
			Meta: map[string]any{
				"product_id":    input.ProductID,
				"quantity":      input.Quantity,
				"from_location": input.FromLocationID,
				"to_location":   input.ToLocationID,
			},
		})
	}
	return movement, nil
}

// receive adds quantity to the item keyed (product, batch, location) at
// locationID, creating the item on first stock-in. The same batch may sit
// at several locations; each holds its own row.
func (s *Service) receive(ctx context.Context, tx TxRepository, input MovementInput, reference string, locationID int64) error {
	batch := input.BatchNumber
	if batch == "" {
		batch = reference
	}
	item, err := tx.FindItemForUpdate(ctx, input.ProductID, batch, locationID)
	switch {
	case errors.Is(err, ErrItemNotFound):
		_, err = tx.InsertItem(ctx, Item{
			ProductID:   input.ProductID,
			BatchNumber: batch,
			Quantity:    input.Quantity,
			LocationID:  locationID,
			ExpiryDate:  input.ExpiryDate,
		})
		return err
	case err != nil:
		return err
	}
	return tx.SetItemQuantity(ctx, item.ID, item.Quantity+input.Quantity)
}

// transferBatch moves quantity of the named batch from the source location to
// the destination. The batch keeps its number, and the destination row
// inherits the source expiry date.
func (s *Service) transferBatch(ctx context.Context, tx TxRepository, input MovementInput) error {
	source, err := tx.FindItemForUpdate(ctx, input.ProductID, input.BatchNumber, input.FromLocationID)
	if err != nil {
		return err
	}
	if source.Quantity < input.Quantity {
		return ErrInsufficientStock
	}
	if err := tx.SetItemQuantity(ctx, source.ID, source.Quantity-input.Quantity); err != nil {
		return err
	}
	dest, err := tx.FindItemForUpdate(ctx, input.ProductID, input.BatchNumber, input.ToLocationID)
	switch {
	case errors.Is(err, ErrItemNotFound):
		_, err = tx.InsertItem(ctx, Item{
			ProductID:   input.ProductID,
			BatchNumber: input.BatchNumber,
			Quantity:    input.Quantity,
			LocationID:  input.ToLocationID,
			ExpiryDate:  source.ExpiryDate,
		})
		return err
	case err != nil:
		return err
	}
	return tx.SetItemQuantity(ctx, dest.ID, dest.Quantity+input.Quantity)
}

// deplete removes quantity from the product's items at locationID in
// stock-in order, failing before any write when stock is short.
func (s *Service) deplete(ctx context.Context, tx TxRepository, productID, locationID, quantity int64) error {
	items, err := tx.ItemsAtLocationForUpdate(ctx, productID, locationID)
	if err != nil {
		return err
	}
	var available int64
	for _, item := range items {
		available += item.Quantity
	}
	if available < quantity {
		return ErrInsufficientStock
	}
	remaining := quantity
	for _, item := range items {
		if remaining == 0 {
			break
		}
		take := item.Quantity
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}
		if err := tx.SetItemQuantity(ctx, item.ID, item.Quantity-take); err != nil {
			return err
		}
		remaining -= take
	}
	return nil
}

// AvailableQuantity sums item quantities for the product across locations.
func (s *Service) AvailableQuantity(ctx context.Context, productID int64) (int64, error) {
	if productID == 0 {
		return 0, errors.New("ledger: product required")
	}
	return s.repo.AvailableQuantity(ctx, productID)
}

// UpdateCount corrects an item after a physical count. The correction is
// recorded as a synthetic ADJUST movement carrying the signed delta.
func (s *Service) UpdateCount(ctx context.Context, itemID, newQuantity, actorID int64) (Item, error) {
	if newQuantity < 0 {
		return Item{}, ErrNegativeCount
	}
	var updated Item
	now := time.Now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.ItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		delta := newQuantity - item.Quantity
		if err := tx.SetItemCount(ctx, item.ID, newQuantity, now); err != nil {
			return err
		}
		if delta != 0 {
			_, err = tx.InsertMovement(ctx, Movement{
				ProductID:      item.ProductID,
				Type:           MovementTypeAdjust,
				Quantity:       delta,
				Reference:      fmt.Sprintf("COUNT-%d-%d", item.ID, now.UnixNano()),
				FromLocationID: item.LocationID,
				PerformedBy:    actorID,
				OccurredAt:     now,
			})
			if err != nil {
				return err
			}
		}
		updated = item
		updated.Quantity = newQuantity
		updated.LastCounted = &now
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "ledger:COUNT",
			Entity:   "inventory_item",
			EntityID: fmt.Sprintf("%d", itemID),
			Meta:     map[string]any{"quantity": newQuantity},
		})
	}
	return updated, nil
}

// ListMovements lists movement history.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("ledger: unsupported movement type %q", filter.Type)
	}
	return s.repo.ListMovements(ctx, filter)
}

// ListItems lists inventory items.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}

// ExpiringBatches lists stocked batches expiring within the window.
func (s *Service) ExpiringBatches(ctx context.Context, within time.Duration) ([]Item, error) {
	cutoff := time.Now().UTC().Add(within)
	return s.repo.ListItems(ctx, ItemFilter{ExpiringBefore: &cutoff})
}

// GetItem fetches one inventory item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// StockByLocation reports on-hand quantity per location for one product.
func (s *Service) StockByLocation(ctx context.Context, productID int64) ([]LocationStock, error) {
	if productID == 0 {
		return nil, errors.New("ledger: product required")
	}
	return s.repo.StockByLocation(ctx, productID)
}
