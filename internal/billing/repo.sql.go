package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/almacen-erp/almacen-erp/internal/credit"
	"github.com/almacen-erp/almacen-erp/internal/platform/db"
	"github.com/almacen-erp/almacen-erp/internal/stock"
)

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("billing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const invoiceColumns = `id, number, client_id, user_id, method, note, status, subtotal, tax, total, created_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.UserID, &inv.Method, &inv.Note, &inv.Status, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.CreatedAt)
	return inv, err
}

// GetInvoice loads an invoice by ID.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ListLineItems returns an invoice's lines in insertion order.
func (r *Repository) ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	return listLineItems(ctx, r.pool, invoiceID)
}

// ListInvoices returns a page of invoices plus the total row count.
func (r *Repository) ListInvoices(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, int, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	where := `WHERE ($1 = 0 OR client_id = $1) AND ($2 = '' OR status = $2)`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices `+where, filter.ClientID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices `+where+` ORDER BY id DESC LIMIT $3 OFFSET $4`,
		filter.ClientID, string(filter.Status), perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// UpdateNote edits the invoice note.
func (r *Repository) UpdateNote(ctx context.Context, id int64, note string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET note = $2 WHERE id = $1`, id, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepository) Stock() stock.Ledger {
	return stock.NewTxLedger(r.tx)
}

func (r *txRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("FAC-%06d", n), nil
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (number, client_id, user_id, method, note, status, subtotal, tax, total, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		inv.Number, inv.ClientID, inv.UserID, inv.Method, inv.Note, inv.Status, inv.Subtotal, inv.Tax, inv.Total, inv.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLineItems(ctx context.Context, invoiceID int64, lines []LineItem) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `INSERT INTO invoice_lines (invoice_id, product_id, quantity, unit_price, discount, subtotal)
VALUES ($1, $2, $3, $4, $5, $6)`,
			invoiceID, line.ProductID, line.Quantity, line.UnitPrice, line.Discount, line.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *txRepository) ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	return listLineItems(ctx, r.tx, invoiceID)
}

func (r *txRepository) SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, id, status)
	return err
}

func (r *txRepository) InsertCredit(ctx context.Context, c credit.Credit) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO credits (invoice_id, total_amount, balance, start_date, created_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.InvoiceID, c.TotalAmount, c.Balance, c.StartDate, c.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertInstallments(ctx context.Context, creditID int64, installments []credit.Installment) error {
	for _, inst := range installments {
		_, err := r.tx.Exec(ctx, `INSERT INTO installments (credit_id, sequence, due_date, amount_due, amount_paid, status)
VALUES ($1, $2, $3, $4, $5, $6)`,
			creditID, inst.Sequence, inst.DueDate, inst.AmountDue, inst.AmountPaid, inst.Status)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) CreditPaidTotal(ctx context.Context, invoiceID int64) (decimal.Decimal, bool, error) {
	var creditID int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM credits WHERE invoice_id = $1`, invoiceID).Scan(&creditID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	var paid decimal.Decimal
	err = r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount_paid), 0) FROM installments WHERE credit_id = $1`, creditID).Scan(&paid)
	if err != nil {
		return decimal.Zero, false, err
	}
	return paid, true, nil
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listLineItems(ctx context.Context, q rowQuerier, invoiceID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, product_id, quantity, unit_price, discount, subtotal
FROM invoice_lines WHERE invoice_id = $1 ORDER BY id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []LineItem{}
	for rows.Next() {
		var line LineItem
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ProductID, &line.Quantity, &line.UnitPrice, &line.Discount, &line.Subtotal); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
