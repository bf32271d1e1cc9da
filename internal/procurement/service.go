package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context, filter PurchaseFilter) ([]Purchase, error)
	GetReturn(ctx context.Context, id int64) (Return, error)
	ListReturns(ctx context.Context, purchaseID int64, limit int) ([]Return, error)
	InsertReturn(ctx context.Context, ret Return) (Return, error)
	DeleteReturn(ctx context.Context, id int64) error
}

// LedgerPort posts stock movements.
type LedgerPort interface {
	RecordMovement(ctx context.Context, input ledger.MovementInput) (ledger.Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates purchases and purchase returns.
type Service struct {
	repo  RepositoryPort
	stock LedgerPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, stock LedgerPort, audit AuditPort) *Service {
	return &Service{repo: repo, stock: stock, audit: audit}
}

// Create opens a pending purchase with its lines.
func (s *Service) Create(ctx context.Context, input PurchaseInput) (Purchase, error) {
	if input.SupplierID == 0 {
		return Purchase{}, ErrInvalidSupplier
	}
	if len(input.Items) == 0 {
		return Purchase{}, ErrNoItems
	}
	total := decimal.Zero
	items := make([]PurchaseItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID == 0 || line.Quantity <= 0 || line.UnitCost.IsNegative() {
			return Purchase{}, ErrInvalidItem
		}
		lineTotal := line.UnitCost.Mul(decimal.NewFromInt(line.Quantity))
		total = total.Add(lineTotal)
		items = append(items, PurchaseItem{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			LineTotal:   lineTotal,
			BatchNumber: line.BatchNumber,
			ExpiryDate:  line.ExpiryDate,
		})
	}

	purchase := Purchase{
		PurchaseNumber: fmt.Sprintf("PO-%s", strings.ToUpper(uuid.NewString()[:12])),
		SupplierID:     input.SupplierID,
		LocationID:     input.LocationID,
		Status:         StatusPending,
		TotalCost:      total,
		Items:          items,
		CreatedBy:      shared.ActorFromContext(ctx),
		CreatedAt:      time.Now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id
		for i := range purchase.Items {
			purchase.Items[i].PurchaseID = id
			itemID, err := tx.InsertItem(ctx, purchase.Items[i])
			if err != nil {
				return err
			}
			purchase.Items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

// Complete receives a pending purchase: every line posts an inbound
// movement and the purchase becomes terminal.
func (s *Service) Complete(ctx context.Context, id int64) (Purchase, error) {
	purchase, err := s.repo.Get(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	if purchase.Status != StatusPending {
		return Purchase{}, ErrNotPending
	}

	for _, item := range purchase.Items {
		_, err := s.stock.RecordMovement(ctx, ledger.MovementInput{
			ProductID:      item.ProductID,
			Type:           ledger.MovementTypeIn,
			Quantity:       item.Quantity,
			Reference:      purchase.PurchaseNumber,
			FromLocationID: purchase.LocationID,
			BatchNumber:    item.BatchNumber,
			ExpiryDate:     item.ExpiryDate,
			ActorID:        shared.ActorFromContext(ctx),
		})
		if err != nil {
			return Purchase{}, err
		}
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetStatus(ctx, purchase.ID, StatusCompleted, &now)
	})
	if err != nil {
		return Purchase{}, err
	}
	purchase.Status = StatusCompleted
	purchase.CompletedAt = &now
	s.auditEvent(ctx, purchase, "procurement:COMPLETE")
	return purchase, nil
}

// Cancel voids a pending purchase.
func (s *Service) Cancel(ctx context.Context, id int64) (Purchase, error) {
	purchase, err := s.repo.Get(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	if purchase.Status != StatusPending {
		return Purchase{}, ErrNotPending
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetStatus(ctx, purchase.ID, StatusCancelled, nil)
	})
	if err != nil {
		return Purchase{}, err
	}
	purchase.Status = StatusCancelled
	s.auditEvent(ctx, purchase, "procurement:CANCEL")
	return purchase, nil
}

// Get fetches one purchase with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// List lists purchases.
func (s *Service) List(ctx context.Context, filter PurchaseFilter) ([]Purchase, error) {
	return s.repo.List(ctx, filter)
}

// CreateReturn records goods going back to the supplier and takes them
// off the shelf.
func (s *Service) CreateReturn(ctx context.Context, ret Return) (Return, error) {
	if ret.PurchaseID == 0 || ret.ProductID == 0 || ret.Quantity <= 0 || ret.Amount.IsNegative() {
		return Return{}, ErrInvalidItem
	}
	purchase, err := s.repo.Get(ctx, ret.PurchaseID)
	if err != nil {
		return Return{}, err
	}
	if purchase.Status != StatusCompleted {
		return Return{}, ErrReturnNotCompleted
	}
	ret.CreatedBy = shared.ActorFromContext(ctx)
	ret.CreatedAt = time.Now().UTC()
	created, err := s.repo.InsertReturn(ctx, ret)
	if err != nil {
		return Return{}, err
	}
	_, err = s.stock.RecordMovement(ctx, ledger.MovementInput{
		ProductID:      ret.ProductID,
		Type:           ledger.MovementTypeOut,
		Quantity:       ret.Quantity,
		Reference:      fmt.Sprintf("PRET-%d", created.ID),
		FromLocationID: purchase.LocationID,
		ActorID:        ret.CreatedBy,
	})
	if err != nil {
		return Return{}, fmt.Errorf("procurement: deplete return: %w", err)
	}
	return created, nil
}

// GetReturn fetches one purchase return.
func (s *Service) GetReturn(ctx context.Context, id int64) (Return, error) {
	return s.repo.GetReturn(ctx, id)
}

// ListReturns lists purchase returns, optionally for one purchase.
func (s *Service) ListReturns(ctx context.Context, purchaseID int64, limit int) ([]Return, error) {
	return s.repo.ListReturns(ctx, purchaseID, limit)
}

// DeleteReturn removes a mistaken return record.
func (s *Service) DeleteReturn(ctx context.Context, id int64) error {
	return s.repo.DeleteReturn(ctx, id)
}

func (s *Service) auditEvent(ctx context.Context, purchase Purchase, action string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "purchase",
		EntityID: purchase.PurchaseNumber,
		Meta: map[string]any{
			"status": string(purchase.Status),
			"total":  purchase.TotalCost.String(),
		},
	})
}
