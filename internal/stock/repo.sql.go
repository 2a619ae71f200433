package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// TxLedger applies stock movements against the products table inside an
// existing pgx transaction. The row is locked for the duration of the
// enclosing transaction, so concurrent debits against the same product
// serialize and total debited never exceeds available stock.
type TxLedger struct {
	tx pgx.Tx
}

// NewTxLedger wraps a transaction as a Ledger.
func NewTxLedger(tx pgx.Tx) *TxLedger {
	return &TxLedger{tx: tx}
}

// Debit decreases available stock under a row lock.
func (l *TxLedger) Debit(ctx context.Context, productID, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	var available int64
	err := l.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ProductNotFoundError{ProductID: productID}
		}
		return err
	}
	if available < quantity {
		return &InsufficientStockError{ProductID: productID, Available: available, Requested: quantity}
	}
	_, err = l.tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1`, productID, quantity)
	return err
}

// Credit increases available stock.
func (l *TxLedger) Credit(ctx context.Context, productID, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	tag, err := l.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ProductNotFoundError{ProductID: productID}
	}
	return nil
}
