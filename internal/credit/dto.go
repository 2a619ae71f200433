package credit

import "github.com/shopspring/decimal"

// PaymentInput is the allocator's closed input.
type PaymentInput struct {
	InstallmentID int64
	Amount        decimal.Decimal
	ActorID       int64
}

// PayInstallmentRequest is the JSON body for allocating a payment.
type PayInstallmentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}
