// Package masterdata maintains the product catalog, clients and providers.
// These are plain row-oriented records; cross-entity invariants (stock,
// invoicing) live in the billing, stock and credit packages.
package masterdata

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry. Its stock column is mutated only by
// the stock ledger during sales; catalog updates touch price and thresholds.
type Product struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int64           `json:"stock"`
	MinStock  int64           `json:"min_stock"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Client is a sale counterparty.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider supplies catalog products.
type Provider struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sentinel errors.
var (
	ErrProductNotFound  = errors.New("masterdata: product not found")
	ErrClientNotFound   = errors.New("masterdata: client not found")
	ErrProviderNotFound = errors.New("masterdata: provider not found")
	ErrDuplicateCode    = errors.New("masterdata: code already in use")
)
