package credit

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/almacen-erp/almacen-erp/internal/platform/db"
)

// Repository persists credits and installments in PostgreSQL.
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

// WithTx executes the callback inside a serializable transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("credit repository not initialised")
	}
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const creditColumns = `id, invoice_id, total_amount, balance, start_date, completed_at, created_at`

func scanCredit(row pgx.Row) (Credit, error) {
	var c Credit
	err := row.Scan(&c.ID, &c.InvoiceID, &c.TotalAmount, &c.Balance, &c.StartDate, &c.CompletedAt, &c.CreatedAt)
	return c, err
}

// GetCredit loads a credit by ID.
func (r *Repository) GetCredit(ctx context.Context, id int64) (*Credit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1`, id)
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetCreditByInvoice loads the credit opened against an invoice.
func (r *Repository) GetCreditByInvoice(ctx context.Context, invoiceID int64) (*Credit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE invoice_id = $1`, invoiceID)
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListInstallments returns a credit's installments in sequence order.
func (r *Repository) ListInstallments(ctx context.Context, creditID int64) ([]Installment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, credit_id, sequence, due_date, amount_due, amount_paid, status, paid_at
FROM installments WHERE credit_id = $1 ORDER BY sequence ASC`, creditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	installments := []Installment{}
	for rows.Next() {
		var inst Installment
		if err := rows.Scan(&inst.ID, &inst.CreditID, &inst.Sequence, &inst.DueDate, &inst.AmountDue, &inst.AmountPaid, &inst.Status, &inst.PaidAt); err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func (r *txRepository) GetInstallmentForUpdate(ctx context.Context, id int64) (Installment, error) {
	var inst Installment
	err := r.tx.QueryRow(ctx, `SELECT id, credit_id, sequence, due_date, amount_due, amount_paid, status, paid_at
FROM installments WHERE id = $1 FOR UPDATE`, id).Scan(&inst.ID, &inst.CreditID, &inst.Sequence, &inst.DueDate, &inst.AmountDue, &inst.AmountPaid, &inst.Status, &inst.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Installment{}, ErrInstallmentNotFound
		}
		return Installment{}, err
	}
	return inst, nil
}

func (r *txRepository) UpdateInstallment(ctx context.Context, inst Installment) error {
	_, err := r.tx.Exec(ctx, `UPDATE installments SET amount_paid = $2, status = $3, paid_at = $4 WHERE id = $1`,
		inst.ID, inst.AmountPaid, inst.Status, inst.PaidAt)
	return err
}

func (r *txRepository) GetCreditForUpdate(ctx context.Context, id int64) (Credit, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credit{}, ErrCreditNotFound
		}
		return Credit{}, err
	}
	return c, nil
}

func (r *txRepository) UpdateCredit(ctx context.Context, c Credit) error {
	_, err := r.tx.Exec(ctx, `UPDATE credits SET balance = $2, completed_at = $3 WHERE id = $1`,
		c.ID, c.Balance, c.CompletedAt)
	return err
}
