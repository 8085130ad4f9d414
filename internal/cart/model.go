package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
)

// Line is one product entry in a guest's cart. At most one line exists per
// (GuestID, ProductID).
type Line struct {
	ID        string
	GuestID   string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ViewLine is a line whose product resolved in the catalog.
type ViewLine struct {
	Line
	Product  catalog.Product
	Subtotal decimal.Decimal
}

// View is what callers see of a cart: resolved lines only, plus the total.
type View struct {
	GuestID string
	Lines   []ViewLine
	Total   decimal.Decimal
}

func (v View) Empty() bool { return len(v.Lines) == 0 }
