package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/almacen-erp/almacen-erp/internal/credit"
	"github.com/almacen-erp/almacen-erp/internal/money"
	"github.com/almacen-erp/almacen-erp/internal/stock"
)

// RepositoryPort abstracts invoice persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error)
	ListInvoices(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, int, error)
	UpdateNote(ctx context.Context, id int64, note string) error
}

// TxRepository exposes the transactional operations used by the builder and
// the lifecycle controller. Stock movements run through the same transaction
// so a failure anywhere rolls back the stock change too.
type TxRepository interface {
	Stock() stock.Ledger
	NextInvoiceNumber(ctx context.Context) (string, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLineItems(ctx context.Context, invoiceID int64, lines []LineItem) error
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error)
	SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error
	InsertCredit(ctx context.Context, c credit.Credit) (int64, error)
	InsertInstallments(ctx context.Context, creditID int64, installments []credit.Installment) error
	// CreditPaidTotal sums amount_paid across the invoice's installments.
	// Returns false when the invoice has no credit.
	CreditPaidTotal(ctx context.Context, invoiceID int64) (decimal.Decimal, bool, error)
}

// ServiceConfig groups pricing settings.
type ServiceConfig struct {
	TaxRate decimal.Decimal
}

// Service builds invoices and drives their lifecycle.
type Service struct {
	repo    RepositoryPort
	taxRate decimal.Decimal
}

// NewService builds Service. A zero tax rate is replaced by the default 15%.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	rate := cfg.TaxRate
	if rate.IsZero() {
		rate = decimal.RequireFromString("0.15")
	}
	return &Service{repo: repo, taxRate: rate}
}

// CreatedInvoice is the fully populated result of a successful sale.
type CreatedInvoice struct {
	Invoice      Invoice              `json:"invoice"`
	Lines        []LineItem           `json:"lines"`
	Credit       *credit.Credit       `json:"credit,omitempty"`
	Installments []credit.Installment `json:"installments,omitempty"`
}

// Create validates and prices the cart, debits stock for every line, and
// persists the invoice with its lines (and credit plan for credit sales) as
// one atomic unit. Any insufficient-stock failure aborts the whole invoice
// with no partial debit observable.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, userID int64) (*CreatedInvoice, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLineItems
	}
	for i, line := range req.Lines {
		if err := validateLine(i, line); err != nil {
			return nil, err
		}
	}
	if req.Method == MethodCredit && req.Credit == nil {
		return nil, ErrCreditConfigRequired
	}
	if req.Method == MethodCash && req.Credit != nil {
		return nil, ErrCreditConfigNotAllowed
	}

	lines := make([]LineItem, len(req.Lines))
	subtotal := decimal.Zero
	for i, line := range req.Lines {
		lineSubtotal := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)).Sub(line.Discount)
		lines[i] = LineItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
			Subtotal:  lineSubtotal,
		}
		subtotal = subtotal.Add(lineSubtotal)
	}
	tax := money.Round(subtotal.Mul(s.taxRate))
	total := subtotal.Add(tax)

	var installments []credit.Installment
	if req.Method == MethodCredit {
		var err error
		installments, err = credit.BuildSchedule(total, credit.PlanConfig{
			Installments: req.Credit.Installments,
			FirstDueDate: req.Credit.FirstDueDate,
			IntervalDays: req.Credit.IntervalDays,
		})
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	var result CreatedInvoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ledger := tx.Stock()
		for _, line := range lines {
			if err := ledger.Debit(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		number, err := tx.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		inv := Invoice{
			Number:    number,
			ClientID:  req.ClientID,
			UserID:    userID,
			Method:    req.Method,
			Note:      req.Note,
			Status:    StatusActive,
			Subtotal:  subtotal,
			Tax:       tax,
			Total:     total,
			CreatedAt: now,
		}
		invoiceID, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = invoiceID
		for i := range lines {
			lines[i].InvoiceID = invoiceID
		}
		if err := tx.InsertLineItems(ctx, invoiceID, lines); err != nil {
			return err
		}

		result = CreatedInvoice{Invoice: inv, Lines: lines}

		if req.Method == MethodCredit {
			c := credit.Credit{
				InvoiceID:   invoiceID,
				TotalAmount: total,
				Balance:     total,
				StartDate:   now,
				CreatedAt:   now,
			}
			creditID, err := tx.InsertCredit(ctx, c)
			if err != nil {
				return err
			}
			c.ID = creditID
			for i := range installments {
				installments[i].CreditID = creditID
			}
			if err := tx.InsertInstallments(ctx, creditID, installments); err != nil {
				return err
			}
			result.Credit = &c
			result.Installments = installments
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// validateLine checks one cart entry: quantity, unit price, discount
// bounds. Product existence is enforced by the stock debit.
func validateLine(index int, line LineItemRequest) error {
	if line.Quantity <= 0 {
		return &InvalidLineItemError{Index: index, Reason: "quantity must be a positive integer"}
	}
	if !money.IsPositive(line.UnitPrice) {
		return &InvalidLineItemError{Index: index, Reason: "unit price must be positive"}
	}
	if !line.UnitPrice.Equal(money.Round(line.UnitPrice)) {
		return &InvalidLineItemError{Index: index, Reason: "unit price must be expressed in minor units"}
	}
	if money.IsNegative(line.Discount) {
		return &InvalidLineItemError{Index: index, Reason: "discount must not be negative"}
	}
	if !line.Discount.Equal(money.Round(line.Discount)) {
		return &InvalidLineItemError{Index: index, Reason: "discount must be expressed in minor units"}
	}
	gross := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
	if line.Discount.GreaterThan(gross) {
		return &InvalidLineItemError{Index: index, Reason: "discount exceeds line amount"}
	}
	return nil
}

// Cancel voids an active invoice, crediting stock back for every line. The
// credit subsystem is left untouched, but a credit invoice that has already
// received payments cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) (*Invoice, error) {
	var cancelled Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			return ErrAlreadyVoid
		}
		if inv.Method == MethodCredit {
			paid, ok, err := tx.CreditPaidTotal(ctx, id)
			if err != nil {
				return err
			}
			if ok && money.IsPositive(paid) {
				return ErrCreditHasPayments
			}
		}

		lines, err := tx.ListLineItems(ctx, id)
		if err != nil {
			return err
		}
		ledger := tx.Stock()
		for _, line := range lines {
			if err := ledger.Credit(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.SetInvoiceStatus(ctx, id, StatusVoid); err != nil {
			return err
		}
		inv.Status = StatusVoid
		cancelled = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// Reactivate returns a voided cash invoice to ACTIVE, re-debiting stock for
// the original quantities. Credit invoices cannot be reactivated. If stock
// no longer suffices the invoice remains VOID.
func (s *Service) Reactivate(ctx context.Context, id int64) (*Invoice, error) {
	var reactivated Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusActive {
			return ErrAlreadyActive
		}
		if inv.Method != MethodCash {
			return ErrNotCashInvoice
		}

		lines, err := tx.ListLineItems(ctx, id)
		if err != nil {
			return err
		}
		ledger := tx.Stock()
		for _, line := range lines {
			if err := ledger.Debit(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.SetInvoiceStatus(ctx, id, StatusActive); err != nil {
			return err
		}
		inv.Status = StatusActive
		reactivated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reactivated, nil
}

// InvoiceDetail bundles an invoice with its lines.
type InvoiceDetail struct {
	Invoice Invoice    `json:"invoice"`
	Lines   []LineItem `json:"lines"`
}

// Get fetches an invoice with its line items.
func (s *Service) Get(ctx context.Context, id int64) (*InvoiceDetail, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{Invoice: *inv, Lines: lines}, nil
}

// List returns invoices matching the filter plus the total row count.
func (s *Service) List(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, int, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// UpdateNote edits the free-text note. All other invoice fields are
// immutable after creation.
func (s *Service) UpdateNote(ctx context.Context, id int64, note string) (*Invoice, error) {
	if err := s.repo.UpdateNote(ctx, id, note); err != nil {
		return nil, err
	}
	return s.repo.GetInvoice(ctx, id)
}
