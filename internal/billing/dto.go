package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest is the closed input for building an invoice.
type CreateInvoiceRequest struct {
	ClientID int64                `json:"client_id" validate:"required,gt=0"`
	Method   PaymentMethod        `json:"method" validate:"required,oneof=CASH CREDIT"`
	Note     string               `json:"note" validate:"max=500"`
	Lines    []LineItemRequest    `json:"lines" validate:"dive"`
	Credit   *CreditConfigRequest `json:"credit,omitempty"`
}

// LineItemRequest is one requested cart entry.
type LineItemRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
	Discount  decimal.Decimal `json:"discount"`
}

// CreditConfigRequest describes the installment plan for a credit sale.
type CreditConfigRequest struct {
	Installments int       `json:"installments" validate:"required,min=1,max=48"`
	FirstDueDate time.Time `json:"first_due_date" validate:"required"`
	IntervalDays int       `json:"interval_days" validate:"required,min=1,max=90"`
}

// UpdateNoteRequest edits the free-text note, the only mutable invoice field.
type UpdateNoteRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// ListInvoicesFilter narrows invoice listings.
type ListInvoicesFilter struct {
	ClientID int64
	Status   InvoiceStatus
	Page     int
	PerPage  int
}
