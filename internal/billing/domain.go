// Package billing owns sale invoices: building them from a cart of line
// items, and the cancel/reactivate lifecycle.
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a sale is settled.
type PaymentMethod string

const (
	// MethodCash settles the sale immediately.
	MethodCash PaymentMethod = "CASH"
	// MethodCredit opens an installment plan for the invoice total.
	MethodCredit PaymentMethod = "CREDIT"
)

// InvoiceStatus enumerates invoice states.
type InvoiceStatus string

const (
	// StatusActive is the initial state of every invoice.
	StatusActive InvoiceStatus = "ACTIVE"
	// StatusVoid marks a cancelled invoice whose stock effect was reversed.
	StatusVoid InvoiceStatus = "VOID"
)

// Invoice is a sale transaction header. Monetary fields are immutable after
// creation; only the note may be edited.
type Invoice struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	ClientID  int64           `json:"client_id"`
	UserID    int64           `json:"user_id"`
	Method    PaymentMethod   `json:"method"`
	Note      string          `json:"note"`
	Status    InvoiceStatus   `json:"status"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// LineItem is one product entry within an invoice. The unit price is
// captured at sale time, not re-read from the product later.
type LineItem struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Sentinel errors.
var (
	ErrEmptyLineItems         = errors.New("billing: invoice requires at least one line item")
	ErrInvalidLineItem        = errors.New("billing: invalid line item")
	ErrCreditConfigRequired   = errors.New("billing: credit sale requires a credit configuration")
	ErrCreditConfigNotAllowed = errors.New("billing: credit configuration only valid for credit sales")
	ErrInvoiceNotFound        = errors.New("billing: invoice not found")
	ErrAlreadyVoid            = errors.New("billing: invoice already void")
	ErrAlreadyActive          = errors.New("billing: invoice already active")
	ErrNotCashInvoice         = errors.New("billing: only cash invoices can be reactivated")
	ErrCreditHasPayments      = errors.New("billing: credit invoice has received payments")
)

// InvalidLineItemError reports which line failed validation and why.
type InvalidLineItemError struct {
	Index  int
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("billing: line %d: %s", e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidLineItem.
func (e *InvalidLineItemError) Unwrap() error { return ErrInvalidLineItem }
