// Package credit manages installment payment plans opened against
// credit-method invoices: schedule generation and payment allocation.
package credit

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus enumerates installment states.
type InstallmentStatus string

const (
	// InstallmentPending marks an installment not yet fully paid. A partial
	// payment keeps the installment PENDING with amount_paid > 0; there is
	// no dedicated PARTIAL status.
	InstallmentPending InstallmentStatus = "PENDING"
	// InstallmentPaid marks a fully paid installment. Terminal.
	InstallmentPaid InstallmentStatus = "PAID"
)

// Plan bounds.
const (
	MaxInstallments = 48
	MaxIntervalDays = 90
)

// Credit is an installment plan opened 1:1 against a credit-method invoice.
type Credit struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Balance     decimal.Decimal `json:"balance"`
	StartDate   time.Time       `json:"start_date"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Installment is one scheduled payment obligation within a credit plan.
type Installment struct {
	ID         int64             `json:"id"`
	CreditID   int64             `json:"credit_id"`
	Sequence   int               `json:"sequence"`
	DueDate    time.Time         `json:"due_date"`
	AmountDue  decimal.Decimal   `json:"amount_due"`
	AmountPaid decimal.Decimal   `json:"amount_paid"`
	Status     InstallmentStatus `json:"status"`
	PaidAt     *time.Time        `json:"paid_at,omitempty"`
}

// PlanConfig describes how a credit total is split into installments.
type PlanConfig struct {
	Installments int
	FirstDueDate time.Time
	IntervalDays int
}

// Sentinel errors.
var (
	ErrInvalidPlan          = errors.New("credit: invalid plan configuration")
	ErrInvalidAmount        = errors.New("credit: payment amount must be positive")
	ErrInstallmentNotFound  = errors.New("credit: installment not found")
	ErrCreditNotFound       = errors.New("credit: credit not found")
	ErrAlreadyPaid          = errors.New("credit: installment already paid")
	ErrAmountExceedsBalance = errors.New("credit: amount exceeds installment balance")
)

// ExceedsBalanceError carries the rejected payment context.
type ExceedsBalanceError struct {
	InstallmentID int64
	Remaining     decimal.Decimal
	Requested     decimal.Decimal
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("credit: payment %s exceeds remaining %s on installment %d", e.Requested.StringFixed(2), e.Remaining.StringFixed(2), e.InstallmentID)
}

// Unwrap lets errors.Is match ErrAmountExceedsBalance.
func (e *ExceedsBalanceError) Unwrap() error { return ErrAmountExceedsBalance }

// Remaining reports the unpaid part of the installment.
func (i Installment) Remaining() decimal.Decimal {
	return i.AmountDue.Sub(i.AmountPaid)
}
