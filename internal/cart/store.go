// Package cart owns guest carts: storage, merging and per-guest serialization.
package cart

import (
	"context"
	"errors"
	"math"
)

// MaxLineQuantity is the largest quantity a single line may hold. It matches
// the INTEGER column backing cart_lines.quantity.
const MaxLineQuantity = math.MaxInt32

var (
	ErrLineNotFound  = errors.New("cart line not found")
	ErrQuantityLimit = errors.New("cart line quantity limit exceeded")
)

// Store persists cart lines. Implementations must make AddQuantity an atomic
// merge: a second add for the same (guest, product) increases the existing
// line's quantity instead of creating a new line. A merge that would take the
// line past MaxLineQuantity leaves it unchanged and returns ErrQuantityLimit.
type Store interface {
	ListLines(ctx context.Context, guestID string) ([]Line, error)
	AddQuantity(ctx context.Context, guestID, productID string, qty int) (line Line, merged bool, err error)
	SetQuantity(ctx context.Context, guestID, lineID string, qty int) error
	DeleteLine(ctx context.Context, guestID, lineID string) error
	Clear(ctx context.Context, guestID string) error
}
