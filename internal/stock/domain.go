// Package stock enforces non-negative product inventory. Debits and credits
// run inside the caller's transaction so a failure elsewhere rolls back the
// stock change too.
package stock

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")

// ErrInsufficientStock indicates a debit that would drive stock negative.
var ErrInsufficientStock = errors.New("stock: insufficient stock")

// ErrProductNotFound indicates an unknown product reference.
var ErrProductNotFound = errors.New("stock: product not found")

// InsufficientStockError carries the product and quantities of a rejected debit.
type InsufficientStockError struct {
	ProductID int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: insufficient stock for product %d: have %d, need %d", e.ProductID, e.Available, e.Requested)
}

// Unwrap lets errors.Is match ErrInsufficientStock.
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ProductNotFoundError carries the missing product reference.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("stock: product %d not found", e.ProductID)
}

// Unwrap lets errors.Is match ErrProductNotFound.
func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// Ledger mutates per-product available quantity.
type Ledger interface {
	// Debit decreases available stock, failing with InsufficientStockError
	// if the result would be negative. State is unchanged on failure.
	Debit(ctx context.Context, productID, quantity int64) error
	// Credit increases available stock unconditionally.
	Credit(ctx context.Context, productID, quantity int64) error
}
