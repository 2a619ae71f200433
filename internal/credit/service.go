package credit

import (
	"context"
	"time"

	"github.com/almacen-erp/almacen-erp/internal/money"
)

// RepositoryPort abstracts credit persistence for the service.
type RepositoryPort interface {
	// WithTx runs fn inside a serializable transaction so the allocator's
	// read-check-write sequence cannot interleave with a concurrent payment
	// against the same installment.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetCredit(ctx context.Context, id int64) (*Credit, error)
	GetCreditByInvoice(ctx context.Context, invoiceID int64) (*Credit, error)
	ListInstallments(ctx context.Context, creditID int64) ([]Installment, error)
}

// TxRepository exposes the transactional operations used by the allocator.
type TxRepository interface {
	GetInstallmentForUpdate(ctx context.Context, id int64) (Installment, error)
	UpdateInstallment(ctx context.Context, inst Installment) error
	GetCreditForUpdate(ctx context.Context, id int64) (Credit, error)
	UpdateCredit(ctx context.Context, c Credit) error
}

// Service allocates payments against installments.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// PaymentResult returns the state after a successful allocation.
type PaymentResult struct {
	Installment Installment `json:"installment"`
	Credit      Credit      `json:"credit"`
}

// Pay applies a payment amount to one installment and updates the parent
// credit balance in the same transaction. Preconditions are checked in
// order: installment exists, not already paid, amount within the remaining
// balance. Any failure rolls back both updates.
func (s *Service) Pay(ctx context.Context, input PaymentInput) (*PaymentResult, error) {
	if !money.IsPositive(input.Amount) {
		return nil, ErrInvalidAmount
	}
	if !input.Amount.Equal(money.Round(input.Amount)) {
		return nil, ErrInvalidAmount
	}

	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inst, err := tx.GetInstallmentForUpdate(ctx, input.InstallmentID)
		if err != nil {
			return err
		}
		if inst.Status == InstallmentPaid {
			return ErrAlreadyPaid
		}
		remaining := inst.Remaining()
		if input.Amount.GreaterThan(remaining) {
			return &ExceedsBalanceError{InstallmentID: inst.ID, Remaining: remaining, Requested: input.Amount}
		}

		now := time.Now().UTC()
		inst.AmountPaid = inst.AmountPaid.Add(input.Amount)
		if inst.AmountPaid.Equal(inst.AmountDue) {
			inst.Status = InstallmentPaid
			inst.PaidAt = &now
		}
		if err := tx.UpdateInstallment(ctx, inst); err != nil {
			return err
		}

		parent, err := tx.GetCreditForUpdate(ctx, inst.CreditID)
		if err != nil {
			return err
		}
		parent.Balance = money.Max(money.Zero, parent.Balance.Sub(input.Amount))
		if parent.Balance.IsZero() && parent.CompletedAt == nil {
			parent.CompletedAt = &now
		}
		if err := tx.UpdateCredit(ctx, parent); err != nil {
			return err
		}

		result = PaymentResult{Installment: inst, Credit: parent}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreditDetail bundles a credit with its ordered installments.
type CreditDetail struct {
	Credit       Credit        `json:"credit"`
	Installments []Installment `json:"installments"`
	NextDueDate  *time.Time    `json:"next_due_date,omitempty"`
}

func newCreditDetail(c *Credit, installments []Installment) *CreditDetail {
	detail := &CreditDetail{Credit: *c, Installments: installments}
	if next := NextDueDate(installments); !next.IsZero() {
		detail.NextDueDate = &next
	}
	return detail
}

// Get fetches a credit and its installments.
func (s *Service) Get(ctx context.Context, id int64) (*CreditDetail, error) {
	c, err := s.repo.GetCredit(ctx, id)
	if err != nil {
		return nil, err
	}
	installments, err := s.repo.ListInstallments(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return newCreditDetail(c, installments), nil
}

// GetByInvoice fetches the credit opened against an invoice.
func (s *Service) GetByInvoice(ctx context.Context, invoiceID int64) (*CreditDetail, error) {
	c, err := s.repo.GetCreditByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	installments, err := s.repo.ListInstallments(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return newCreditDetail(c, installments), nil
}
