package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountByCustomer(ctx context.Context, customerID int64) (Account, error)
	CreateAccount(ctx context.Context, customerID int64, limit decimal.Decimal) (Account, error)
	ListPayments(ctx context.Context, accountID int64, limit int) ([]Payment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// EnforceLimit caps AddCredit at the account's credit limit. The
	// original system never applied the ceiling, so it defaults off and
	// advance payments may push the balance past the limit.
	EnforceLimit bool
}

// Service coordinates store-credit operations. All balance mutations run
// inside a transaction holding a row lock on the account, so concurrent
// spends cannot both pass the balance check.
type Service struct {
	repo         RepositoryPort
	audit        AuditPort
	enforceLimit bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, enforceLimit: cfg.EnforceLimit}
}

// OpenAccount creates the single credit account for a customer.
func (s *Service) OpenAccount(ctx context.Context, customerID int64, limit decimal.Decimal) (Account, error) {
	if customerID == 0 {
		return Account{}, errors.New("credit: customer required")
	}
	if limit.IsNegative() {
		return Account{}, errors.New("credit: limit must not be negative")
	}
	return s.repo.CreateAccount(ctx, customerID, limit)
}

// AddCredit increases the balance by amount.
func (s *Service) AddCredit(ctx context.Context, accountID int64, amount decimal.Decimal) (Account, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Account{}, ErrInvalidAmount
	}
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		newBalance := account.CurrentBalance.Add(amount)
		if s.enforceLimit && newBalance.GreaterThan(account.CreditLimit) {
			return ErrLimitExceeded
		}
		if err := tx.SetBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		updated = account
		updated.CurrentBalance = newBalance
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.auditBalance(ctx, updated, "credit:ADD", amount)
	return updated, nil
}

// UseCredit spends amount from the balance. Insufficient balance is a
// declined result, never an error, and leaves the balance unchanged.
func (s *Service) UseCredit(ctx context.Context, accountID int64, amount decimal.Decimal) (UseCreditResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return UseCreditResult{}, ErrInvalidAmount
	}
	var result UseCreditResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account.CurrentBalance.LessThan(amount) {
			result = UseCreditResult{Approved: false, Balance: account.CurrentBalance, Reason: "insufficient credit"}
			return nil
		}
		newBalance := account.CurrentBalance.Sub(amount)
		if err := tx.SetBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		result = UseCreditResult{Approved: true, Balance: newBalance}
		return nil
	})
	if err != nil {
		return UseCreditResult{}, err
	}
	if result.Approved {
		s.auditBalance(ctx, Account{ID: accountID, CurrentBalance: result.Balance}, "credit:USE", amount)
	}
	return result, nil
}

// RecordPayment appends an immutable payment record and stamps the
// last-payment date. The balance stays untouched: reconciling a payment is
// a separate AddCredit call by the caller.
func (s *Service) RecordPayment(ctx context.Context, input PaymentInput) (Payment, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return Payment{}, ErrInvalidAmount
	}
	if input.Reference == "" {
		return Payment{}, errors.New("credit: payment reference required")
	}
	now := time.Now().UTC()
	payment := Payment{
		AccountID:  input.AccountID,
		Amount:     input.Amount,
		Reference:  input.Reference,
		ReceivedBy: input.ReceivedBy,
		PaidAt:     now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.AccountForUpdate(ctx, input.AccountID); err != nil {
			return err
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		return tx.StampLastPayment(ctx, input.AccountID, now)
	})
	if err != nil {
		return Payment{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ReceivedBy,
			Action:   "credit:PAYMENT",
			Entity:   "credit_payment",
			EntityID: input.Reference,
			Meta:     map[string]any{"account_id": input.AccountID, "amount": input.Amount.String()},
		})
	}
	return payment, nil
}

// GetAccount fetches one credit account.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// GetAccountByCustomer fetches the account owned by a customer.
func (s *Service) GetAccountByCustomer(ctx context.Context, customerID int64) (Account, error) {
	return s.repo.GetAccountByCustomer(ctx, customerID)
}

// ListPayments lists payment history for an account, newest first.
func (s *Service) ListPayments(ctx context.Context, accountID int64, limit int) ([]Payment, error) {
	return s.repo.ListPayments(ctx, accountID, limit)
}

func (s *Service) auditBalance(ctx context.Context, account Account, action string, amount decimal.Decimal) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "customer_credit",
		EntityID: fmt.Sprintf("%d", account.ID),
		Meta: map[string]any{
			"amount":  amount.String(),
			"balance": account.CurrentBalance.String(),
		},
	})
}
