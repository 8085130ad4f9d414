// Package order stores immutable order records.
package order

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrDuplicateReceipt = errors.New("receipt id already exists")
)

// Store is append-only: Save never overwrites, and there is no update or delete.
type Store interface {
	Save(ctx context.Context, o *Order) error
	FindByReceiptID(ctx context.Context, receiptID string) (*Order, error)
}
