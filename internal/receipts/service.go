package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Receipt, error)
	GetByTransaction(ctx context.Context, transactionID int64) (Receipt, error)
	List(ctx context.Context, filter ListFilter) ([]Receipt, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the receipt lifecycle.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Issue creates the receipt for a completed transaction.
func (s *Service) Issue(ctx context.Context, transactionID int64) (Receipt, error) {
	if transactionID == 0 {
		return Receipt{}, errors.New("receipts: transaction required")
	}
	receipt := Receipt{
		ReceiptNumber: fmt.Sprintf("RCPT-%s", strings.ToUpper(uuid.NewString()[:8])),
		TransactionID: transactionID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = id
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Print increments the print count. A voided receipt always fails with
// ErrReceiptVoided and is left unchanged.
func (s *Service) Print(ctx context.Context, id int64) (Receipt, error) {
	var printed Receipt
	now := time.Now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		receipt, err := tx.ForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if receipt.Voided {
			return ErrReceiptVoided
		}
		receipt.PrintedCount++
		receipt.LastPrinted = &now
		if err := tx.SetPrinted(ctx, receipt.ID, receipt.PrintedCount, now); err != nil {
			return err
		}
		printed = receipt
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.auditEvent(ctx, printed, "receipts:PRINT", map[string]any{"printed_count": printed.PrintedCount})
	return printed, nil
}

// Void marks the receipt voided with a reason. Terminal: there is no un-void.
// Voiding an already-printed receipt is allowed.
func (s *Service) Void(ctx context.Context, id int64, reason string) (Receipt, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Receipt{}, ErrReasonRequired
	}
	var voided Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		receipt, err := tx.ForUpdate(ctx, id)
		if err != nil {
			return err
		}
		receipt.Voided = true
		receipt.VoidReason = reason
		if err := tx.SetVoided(ctx, receipt.ID, reason); err != nil {
			return err
		}
		voided = receipt
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.auditEvent(ctx, voided, "receipts:VOID", map[string]any{"reason": reason})
	return voided, nil
}

// Get fetches one receipt.
func (s *Service) Get(ctx context.Context, id int64) (Receipt, error) {
	return s.repo.Get(ctx, id)
}

// GetByTransaction fetches the receipt issued for a transaction.
func (s *Service) GetByTransaction(ctx context.Context, transactionID int64) (Receipt, error) {
	return s.repo.GetByTransaction(ctx, transactionID)
}

// List lists receipts, optionally filtered on void status.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) auditEvent(ctx context.Context, receipt Receipt, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "receipt",
		EntityID: receipt.ReceiptNumber,
		Meta:     meta,
	})
}
