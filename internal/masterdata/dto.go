package masterdata

import "github.com/shopspring/decimal"

// CreateProductRequest creates a catalog entry.
type CreateProductRequest struct {
	Code      string          `json:"code" validate:"required,max=40"`
	Name      string          `json:"name" validate:"required,max=200"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
	Stock     int64           `json:"stock" validate:"gte=0"`
	MinStock  int64           `json:"min_stock" validate:"gte=0"`
}

// UpdateProductRequest edits catalog fields. Stock is deliberately absent:
// quantity changes go through the stock ledger.
type UpdateProductRequest struct {
	Name      *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	MinStock  *int64           `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

// CreateClientRequest creates a client.
type CreateClientRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Document string `json:"document" validate:"required,max=40"`
	Phone    string `json:"phone" validate:"max=40"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address" validate:"max=300"`
}

// CreateProviderRequest creates a provider.
type CreateProviderRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Company string `json:"company" validate:"max=200"`
	Phone   string `json:"phone" validate:"max=40"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=300"`
}

// ListFilter narrows listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}
