package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/credit"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/receipts"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	GetReturn(ctx context.Context, id int64) (Return, error)
	ListReturns(ctx context.Context, transactionID int64, limit int) ([]Return, error)
	InsertReturn(ctx context.Context, ret Return) (Return, error)
	DeleteReturn(ctx context.Context, id int64) error
}

// CreditPort is the slice of the credit core the till needs.
type CreditPort interface {
	GetAccountByCustomer(ctx context.Context, customerID int64) (credit.Account, error)
	UseCredit(ctx context.Context, accountID int64, amount decimal.Decimal) (credit.UseCreditResult, error)
	AddCredit(ctx context.Context, accountID int64, amount decimal.Decimal) (credit.Account, error)
}

// LedgerPort posts stock movements and answers stock levels.
type LedgerPort interface {
	RecordMovement(ctx context.Context, input ledger.MovementInput) (ledger.Movement, error)
	StockByLocation(ctx context.Context, productID int64) ([]ledger.LocationStock, error)
}

// ReceiptPort issues receipts for completed transactions.
type ReceiptPort interface {
	Issue(ctx context.Context, transactionID int64) (receipts.Receipt, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates till transactions and sales returns.
type Service struct {
	repo     RepositoryPort
	creditor CreditPort
	stock    LedgerPort
	receipts ReceiptPort
	audit    AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, creditor CreditPort, stock LedgerPort, receiptPort ReceiptPort, audit AuditPort) *Service {
	return &Service{repo: repo, creditor: creditor, stock: stock, receipts: receiptPort, audit: audit}
}

// Create opens a pending transaction with its lines. Totals are computed
// here, never trusted from the caller.
func (s *Service) Create(ctx context.Context, input TransactionInput) (Transaction, error) {
	if !input.PaymentMethod.Valid() {
		return Transaction{}, ErrInvalidPayment
	}
	if len(input.Items) == 0 {
		return Transaction{}, ErrNoItems
	}
	if input.PaymentMethod == PayCredit && input.CustomerID == 0 {
		return Transaction{}, ErrCreditCustomer
	}
	subtotal := decimal.Zero
	items := make([]TransactionItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID == 0 || line.Quantity <= 0 {
			return Transaction{}, ErrInvalidItem
		}
		if line.UnitPrice.IsNegative() {
			return Transaction{}, ErrInvalidItem
		}
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, TransactionItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
	}
	discount := input.DiscountAmount
	if discount.IsNegative() {
		return Transaction{}, fmt.Errorf("sales: discount must not be negative")
	}
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	transaction := Transaction{
		TransactionNumber: fmt.Sprintf("TXN-%s", strings.ToUpper(uuid.NewString()[:12])),
		CustomerID:        input.CustomerID,
		LocationID:        input.LocationID,
		Status:            StatusPending,
		PaymentMethod:     input.PaymentMethod,
		Subtotal:          subtotal,
		DiscountAmount:    discount,
		TotalAmount:       total,
		Items:             items,
		CreatedBy:         shared.ActorFromContext(ctx),
		CreatedAt:         time.Now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertTransaction(ctx, transaction)
		if err != nil {
			return err
		}
		transaction.ID = id
		for i := range transaction.Items {
			transaction.Items[i].TransactionID = id
			itemID, err := tx.InsertItem(ctx, transaction.Items[i])
			if err != nil {
				return err
			}
			transaction.Items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return transaction, nil
}

// Complete settles a pending transaction: stock leaves the ledger, CREDIT
// sales spend the customer's store credit, and a receipt is issued. A
// declined credit spend leaves the transaction pending. Stock is verified
// for every line before any money moves, and a movement failure after the
// credit spend refunds the account.
func (s *Service) Complete(ctx context.Context, id int64) (Transaction, error) {
	transaction, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if transaction.Status != StatusPending {
		return Transaction{}, ErrNotPending
	}

	if err := s.verifyStock(ctx, transaction); err != nil {
		return Transaction{}, err
	}

	var creditAccount credit.Account
	creditSpent := false
	if transaction.PaymentMethod == PayCredit {
		account, err := s.creditor.GetAccountByCustomer(ctx, transaction.CustomerID)
		if err != nil {
			return Transaction{}, err
		}
		result, err := s.creditor.UseCredit(ctx, account.ID, transaction.TotalAmount)
		if err != nil {
			return Transaction{}, err
		}
		if !result.Approved {
			return Transaction{}, ErrCreditDeclined
		}
		creditAccount = account
		creditSpent = true
	}

	for _, item := range transaction.Items {
		_, err := s.stock.RecordMovement(ctx, ledger.MovementInput{
			ProductID:      item.ProductID,
			Type:           ledger.MovementTypeOut,
			Quantity:       item.Quantity,
			Reference:      transaction.TransactionNumber,
			FromLocationID: transaction.LocationID,
			ActorID:        shared.ActorFromContext(ctx),
		})
		if err != nil {
			if creditSpent {
				if _, refundErr := s.creditor.AddCredit(ctx, creditAccount.ID, transaction.TotalAmount); refundErr != nil {
					return Transaction{}, fmt.Errorf("sales: refund credit after failed stock posting: %w", errors.Join(err, refundErr))
				}
			}
			return Transaction{}, err
		}
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetStatus(ctx, transaction.ID, StatusCompleted, &now)
	})
	if err != nil {
		return Transaction{}, err
	}
	transaction.Status = StatusCompleted
	transaction.CompletedAt = &now

	if _, err := s.receipts.Issue(ctx, transaction.ID); err != nil {
		return Transaction{}, fmt.Errorf("sales: issue receipt: %w", err)
	}
	s.auditEvent(ctx, transaction, "sales:COMPLETE")
	return transaction, nil
}

// verifyStock checks that the sale location holds enough of every product on
// the transaction, summing quantities when a product appears on several lines.
func (s *Service) verifyStock(ctx context.Context, transaction Transaction) error {
	required := map[int64]int64{}
	for _, item := range transaction.Items {
		required[item.ProductID] += item.Quantity
	}
	for productID, quantity := range required {
		stocks, err := s.stock.StockByLocation(ctx, productID)
		if err != nil {
			return err
		}
		var onHand int64
		for _, stock := range stocks {
			if stock.LocationID == transaction.LocationID {
				onHand = stock.Quantity
			}
		}
		if onHand < quantity {
			return ledger.ErrInsufficientStock
		}
	}
	return nil
}

// Cancel voids a pending transaction before settlement.
func (s *Service) Cancel(ctx context.Context, id int64) (Transaction, error) {
	transaction, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if transaction.Status != StatusPending {
		return Transaction{}, ErrNotPending
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetStatus(ctx, transaction.ID, StatusCancelled, nil)
	})
	if err != nil {
		return Transaction{}, err
	}
	transaction.Status = StatusCancelled
	s.auditEvent(ctx, transaction, "sales:CANCEL")
	return transaction, nil
}

// Get fetches one transaction with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List lists transactions.
func (s *Service) List(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	return s.repo.List(ctx, filter)
}

// CreateReturn records a sales return and restocks the merchandise.
func (s *Service) CreateReturn(ctx context.Context, ret Return) (Return, error) {
	if ret.TransactionID == 0 || ret.ProductID == 0 || ret.Quantity <= 0 {
		return Return{}, ErrInvalidItem
	}
	if ret.Amount.IsNegative() {
		return Return{}, ErrInvalidItem
	}
	transaction, err := s.repo.Get(ctx, ret.TransactionID)
	if err != nil {
		return Return{}, err
	}
	if transaction.Status != StatusCompleted {
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
		Type:           ledger.MovementTypeReturn,
		Quantity:       ret.Quantity,
		Reference:      fmt.Sprintf("SRET-%d", created.ID),
		FromLocationID: transaction.LocationID,
		ActorID:        ret.CreatedBy,
	})
	if err != nil {
		return Return{}, fmt.Errorf("sales: restock return: %w", err)
	}
	return created, nil
}

// GetReturn fetches one sales return.
func (s *Service) GetReturn(ctx context.Context, id int64) (Return, error) {
	return s.repo.GetReturn(ctx, id)
}

// ListReturns lists sales returns, optionally for one transaction.
func (s *Service) ListReturns(ctx context.Context, transactionID int64, limit int) ([]Return, error) {
	return s.repo.ListReturns(ctx, transactionID, limit)
}

// DeleteReturn removes a mistaken return record. Stock is not re-depleted;
// correct with an ADJUST movement when the goods actually left again.
func (s *Service) DeleteReturn(ctx context.Context, id int64) error {
	return s.repo.DeleteReturn(ctx, id)
}

func (s *Service) auditEvent(ctx context.Context, transaction Transaction, action string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "sales_transaction",
		EntityID: transaction.TransactionNumber,
		Meta: map[string]any{
			"status": string(transaction.Status),
			"total":  transaction.TotalAmount.String(),
		},
	})
}
