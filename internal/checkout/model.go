package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type Request struct {
	Name           string
	Email          string
	IdempotencyKey string
	Meta           events.EventMeta
}

type ReceiptLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Receipt is what a successful checkout returns to the shopper.
type Receipt struct {
	ReceiptID string
	Total     decimal.Decimal
	CreatedAt time.Time
	Name      string
	Email     string
	Lines     []ReceiptLine
	// Replayed is set when the receipt came from an earlier request with the same idempotency key.
	Replayed bool
}

func receiptFromOrder(o *order.Order) Receipt {
	r := Receipt{
		ReceiptID: o.ReceiptID,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
		Name:      o.CustomerName,
		Email:     o.CustomerEmail,
		Lines:     make([]ReceiptLine, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		r.Lines = append(r.Lines, ReceiptLine{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.PriceAtPurchase,
			Subtotal:  l.Subtotal,
		})
	}
	return r
}
