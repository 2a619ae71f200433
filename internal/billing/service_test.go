package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/almacen-erp/almacen-erp/internal/credit"
	"github.com/almacen-erp/almacen-erp/internal/stock"
)

type memoryLedger struct {
	levels map[int64]int64
}

func (m *memoryLedger) Debit(_ context.Context, productID, quantity int64) error {
	if quantity <= 0 {
		return stock.ErrInvalidQuantity
	}
	available, ok := m.levels[productID]
	if !ok {
		return &stock.ProductNotFoundError{ProductID: productID}
	}
	if available < quantity {
		return &stock.InsufficientStockError{ProductID: productID, Available: available, Requested: quantity}
	}
	m.levels[productID] = available - quantity
	return nil
}

func (m *memoryLedger) Credit(_ context.Context, productID, quantity int64) error {
	if quantity <= 0 {
		return stock.ErrInvalidQuantity
	}
	available, ok := m.levels[productID]
	if !ok {
		return &stock.ProductNotFoundError{ProductID: productID}
	}
	m.levels[productID] = available + quantity
	return nil
}

type memoryRepo struct {
	ledger       *memoryLedger
	invoices     map[int64]Invoice
	lines        map[int64][]LineItem
	credits      map[int64]credit.Credit
	installments map[int64][]credit.Installment
	nextInvoice  int64
	nextCredit   int64
	seq          int64
}

func newMemoryRepo(levels map[int64]int64) *memoryRepo {
	copied := make(map[int64]int64, len(levels))
	for id, qty := range levels {
		copied[id] = qty
	}
	return &memoryRepo{
		ledger:       &memoryLedger{levels: copied},
		invoices:     make(map[int64]Invoice),
		lines:        make(map[int64][]LineItem),
		credits:      make(map[int64]credit.Credit),
		installments: make(map[int64][]credit.Installment),
	}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) snapshot() *memoryRepo {
	copied := newMemoryRepo(r.ledger.levels)
	for k, v := range r.invoices {
		copied.invoices[k] = v
	}
	for k, v := range r.lines {
		copied.lines[k] = append([]LineItem(nil), v...)
	}
	for k, v := range r.credits {
		copied.credits[k] = v
	}
	for k, v := range r.installments {
		copied.installments[k] = append([]credit.Installment(nil), v...)
	}
	copied.nextInvoice = r.nextInvoice
	copied.nextCredit = r.nextCredit
	copied.seq = r.seq
	return copied
}

func (r *memoryRepo) restore(from *memoryRepo) {
	r.ledger = from.ledger
	r.invoices = from.invoices
	r.lines = from.lines
	r.credits = from.credits
	r.installments = from.installments
	r.nextInvoice = from.nextInvoice
	r.nextCredit = from.nextCredit
	r.seq = from.seq
}

// WithTx snapshots state so a failed callback rolls everything back,
// including stock movements, mirroring transactional behaviour.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	backup := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(backup)
		return err
	}
	return nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return &inv, nil
}

func (r *memoryRepo) ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	return append([]LineItem(nil), r.lines[invoiceID]...), nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if filter.ClientID != 0 && inv.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (r *memoryRepo) UpdateNote(ctx context.Context, id int64, note string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Note = note
	r.invoices[id] = inv
	return nil
}

func (tx *memoryTx) Stock() stock.Ledger {
	return tx.repo.ledger
}

func (tx *memoryTx) NextInvoiceNumber(ctx context.Context) (string, error) {
	tx.repo.seq++
	return fmt.Sprintf("FAC-%06d", tx.repo.seq), nil
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	tx.repo.nextInvoice++
	inv.ID = tx.repo.nextInvoice
	tx.repo.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (tx *memoryTx) InsertLineItems(ctx context.Context, invoiceID int64, lines []LineItem) error {
	tx.repo.lines[invoiceID] = append([]LineItem(nil), lines...)
	return nil
}

func (tx *memoryTx) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := tx.repo.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (tx *memoryTx) ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	return tx.repo.ListLineItems(ctx, invoiceID)
}

func (tx *memoryTx) SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	inv, ok := tx.repo.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = status
	tx.repo.invoices[id] = inv
	return nil
}

func (tx *memoryTx) InsertCredit(ctx context.Context, c credit.Credit) (int64, error) {
	tx.repo.nextCredit++
	c.ID = tx.repo.nextCredit
	tx.repo.credits[c.ID] = c
	return c.ID, nil
}

func (tx *memoryTx) InsertInstallments(ctx context.Context, creditID int64, installments []credit.Installment) error {
	tx.repo.installments[creditID] = append([]credit.Installment(nil), installments...)
	return nil
}

func (tx *memoryTx) CreditPaidTotal(ctx context.Context, invoiceID int64) (decimal.Decimal, bool, error) {
	for id, c := range tx.repo.credits {
		if c.InvoiceID != invoiceID {
			continue
		}
		paid := decimal.Zero
		for _, inst := range tx.repo.installments[id] {
			paid = paid.Add(inst.AmountPaid)
		}
		return paid, true, nil
	}
	return decimal.Zero, false, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cashRequest(lines ...LineItemRequest) CreateInvoiceRequest {
	return CreateInvoiceRequest{ClientID: 1, Method: MethodCash, Lines: lines}
}

func line(productID, qty int64, price string) LineItemRequest {
	return LineItemRequest{ProductID: productID, Quantity: qty, UnitPrice: dec(price)}
}

func creditConfig() *CreditConfigRequest {
	return &CreditConfigRequest{
		Installments: 3,
		FirstDueDate: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		IntervalDays: 30,
	}
}

func TestCreateCashInvoicePricing(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10, 2: 5})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	req := cashRequest(
		LineItemRequest{ProductID: 1, Quantity: 2, UnitPrice: dec("25.00"), Discount: dec("5.00")},
		line(2, 1, "30.00"),
	)
	result, err := svc.Create(ctx, req, 9)
	require.NoError(t, err)

	// Lines: 2*25 - 5 = 45.00 and 1*30 = 30.00.
	require.Equal(t, "45.00", result.Lines[0].Subtotal.StringFixed(2))
	require.Equal(t, "30.00", result.Lines[1].Subtotal.StringFixed(2))
	require.Equal(t, "75.00", result.Invoice.Subtotal.StringFixed(2))
	require.Equal(t, "11.25", result.Invoice.Tax.StringFixed(2))
	require.Equal(t, "86.25", result.Invoice.Total.StringFixed(2))

	sum := decimal.Zero
	for _, l := range result.Lines {
		sum = sum.Add(l.Subtotal)
	}
	require.True(t, sum.Equal(result.Invoice.Subtotal))
	require.True(t, result.Invoice.Total.Equal(result.Invoice.Subtotal.Add(result.Invoice.Tax)))

	require.Equal(t, StatusActive, result.Invoice.Status)
	require.Equal(t, "FAC-000001", result.Invoice.Number)
	require.Equal(t, int64(9), result.Invoice.UserID)
	require.Nil(t, result.Credit)

	// Stock debited.
	require.Equal(t, int64(8), repo.ledger.levels[1])
	require.Equal(t, int64(4), repo.ledger.levels[2])
}

func TestCreateTaxRoundsHalfUp(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	// Subtotal 0.10 -> tax 0.015 -> rounds half-up to 0.02.
	result, err := svc.Create(ctx, cashRequest(line(1, 1, "0.10")), 1)
	require.NoError(t, err)
	require.Equal(t, "0.02", result.Invoice.Tax.StringFixed(2))
	require.Equal(t, "0.12", result.Invoice.Total.StringFixed(2))
}

func TestCreateInsufficientStock(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 3})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Create(ctx, cashRequest(line(1, 5, "10.00")), 1)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	var insufficient *stock.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, int64(1), insufficient.ProductID)

	// Stock unchanged, nothing persisted.
	require.Equal(t, int64(3), repo.ledger.levels[1])
	require.Empty(t, repo.invoices)
}

func TestCreatePartialDebitRollsBack(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10, 2: 1})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Create(ctx, cashRequest(line(1, 4, "10.00"), line(2, 3, "5.00")), 1)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	// The first line's debit must not be observable after the failure.
	require.Equal(t, int64(10), repo.ledger.levels[1])
	require.Equal(t, int64(1), repo.ledger.levels[2])
	require.Empty(t, repo.invoices)
}

func TestCreateValidationOrder(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Create(ctx, cashRequest(), 1)
	require.ErrorIs(t, err, ErrEmptyLineItems)

	_, err = svc.Create(ctx, cashRequest(line(1, 0, "10.00")), 1)
	require.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = svc.Create(ctx, cashRequest(line(1, 1, "0.00")), 1)
	require.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = svc.Create(ctx, cashRequest(LineItemRequest{ProductID: 1, Quantity: 1, UnitPrice: dec("10.00"), Discount: dec("-1.00")}), 1)
	require.ErrorIs(t, err, ErrInvalidLineItem)

	// Discount above quantity * unit price.
	_, err = svc.Create(ctx, cashRequest(LineItemRequest{ProductID: 1, Quantity: 2, UnitPrice: dec("10.00"), Discount: dec("20.01")}), 1)
	require.ErrorIs(t, err, ErrInvalidLineItem)

	var invalid *InvalidLineItemError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, 0, invalid.Index)

	// Unknown product surfaces from the stock debit.
	_, err = svc.Create(ctx, cashRequest(line(99, 1, "10.00")), 1)
	require.ErrorIs(t, err, stock.ErrProductNotFound)
}

func TestCreateCreditInvoice(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	req := cashRequest(line(1, 2, "43.48"))
	req.Method = MethodCredit
	req.Credit = creditConfig()

	result, err := svc.Create(ctx, req, 1)
	require.NoError(t, err)

	// Subtotal 86.96, tax 13.04(4) -> 13.04, total 100.00.
	require.Equal(t, "100.00", result.Invoice.Total.StringFixed(2))

	require.NotNil(t, result.Credit)
	require.True(t, result.Credit.TotalAmount.Equal(result.Invoice.Total))
	require.True(t, result.Credit.Balance.Equal(result.Invoice.Total))
	require.Nil(t, result.Credit.CompletedAt)

	require.Len(t, result.Installments, 3)
	require.True(t, credit.ScheduleTotal(result.Installments).Equal(result.Invoice.Total))
	require.Equal(t, "33.34", result.Installments[2].AmountDue.StringFixed(2))
	for _, inst := range result.Installments {
		require.Equal(t, result.Credit.ID, inst.CreditID)
	}
}

func TestCreateCreditRequiresConfig(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	req := cashRequest(line(1, 1, "10.00"))
	req.Method = MethodCredit
	_, err := svc.Create(ctx, req, 1)
	require.ErrorIs(t, err, ErrCreditConfigRequired)
	require.Equal(t, int64(10), repo.ledger.levels[1])
}

func TestCreateCashRejectsCreditConfig(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	req := cashRequest(line(1, 1, "10.00"))
	req.Credit = creditConfig()
	_, err := svc.Create(ctx, req, 1)
	require.ErrorIs(t, err, ErrCreditConfigNotAllowed)
}

func TestCancelRestoresStock(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10, 2: 5})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, cashRequest(line(1, 2, "10.00"), line(2, 1, "20.00")), 1)
	require.NoError(t, err)
	require.Equal(t, int64(8), repo.ledger.levels[1])
	require.Equal(t, int64(4), repo.ledger.levels[2])

	cancelled, err := svc.Cancel(ctx, created.Invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, cancelled.Status)
	require.Equal(t, int64(10), repo.ledger.levels[1])
	require.Equal(t, int64(5), repo.ledger.levels[2])

	// Cancelling again is an explicit conflict.
	_, err = svc.Cancel(ctx, created.Invoice.ID)
	require.ErrorIs(t, err, ErrAlreadyVoid)
}

func TestCancelUnknownInvoice(t *testing.T) {
	repo := newMemoryRepo(nil)
	svc := NewService(repo, ServiceConfig{})

	_, err := svc.Cancel(context.Background(), 42)
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestCancelCreditInvoiceWithPayments(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	req := cashRequest(line(1, 1, "100.00"))
	req.Method = MethodCredit
	req.Credit = creditConfig()
	created, err := svc.Create(ctx, req, 1)
	require.NoError(t, err)

	// Unpaid credit invoice may still be cancelled; the credit is left untouched.
	cancelled, err := svc.Cancel(ctx, created.Invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, cancelled.Status)
	require.Contains(t, repo.credits, created.Credit.ID)

	// A second credit invoice with a recorded payment cannot be cancelled.
	created2, err := svc.Create(ctx, req, 1)
	require.NoError(t, err)
	installments := repo.installments[created2.Credit.ID]
	installments[0].AmountPaid = dec("10.00")
	repo.installments[created2.Credit.ID] = installments

	_, err = svc.Cancel(ctx, created2.Invoice.ID)
	require.ErrorIs(t, err, ErrCreditHasPayments)
	require.Equal(t, StatusActive, repo.invoices[created2.Invoice.ID].Status)
}

func TestReactivateCashInvoice(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 5})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, cashRequest(line(1, 3, "10.00")), 1)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, created.Invoice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), repo.ledger.levels[1])

	reactivated, err := svc.Reactivate(ctx, created.Invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, reactivated.Status)
	require.Equal(t, int64(2), repo.ledger.levels[1])
}

func TestReactivateInsufficientStockLeavesVoid(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 5})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, cashRequest(line(1, 3, "10.00")), 1)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, created.Invoice.ID)
	require.NoError(t, err)

	// Stock drained by another sale in the meantime.
	other, err := svc.Create(ctx, cashRequest(line(1, 4, "10.00")), 1)
	require.NoError(t, err)
	_ = other

	_, err = svc.Reactivate(ctx, created.Invoice.ID)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.Equal(t, StatusVoid, repo.invoices[created.Invoice.ID].Status)
	require.Equal(t, int64(1), repo.ledger.levels[1])
}

func TestReactivateGuards(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, cashRequest(line(1, 1, "10.00")), 1)
	require.NoError(t, err)

	_, err = svc.Reactivate(ctx, created.Invoice.ID)
	require.ErrorIs(t, err, ErrAlreadyActive)

	req := cashRequest(line(1, 1, "10.00"))
	req.Method = MethodCredit
	req.Credit = creditConfig()
	creditInv, err := svc.Create(ctx, req, 1)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, creditInv.Invoice.ID)
	require.NoError(t, err)

	_, err = svc.Reactivate(ctx, creditInv.Invoice.ID)
	require.ErrorIs(t, err, ErrNotCashInvoice)
}

func TestUpdateNote(t *testing.T) {
	repo := newMemoryRepo(map[int64]int64{1: 10})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, cashRequest(line(1, 1, "10.00")), 1)
	require.NoError(t, err)

	updated, err := svc.UpdateNote(ctx, created.Invoice.ID, "delivered to warehouse 2")
	require.NoError(t, err)
	require.Equal(t, "delivered to warehouse 2", updated.Note)

	// Monetary fields stay untouched.
	require.True(t, updated.Total.Equal(created.Invoice.Total))

	_, err = svc.UpdateNote(ctx, 999, "x")
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}
