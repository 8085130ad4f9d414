package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type OrderPlacedLine struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"priceAtPurchase"`
}

type OrderPlacedPayload struct {
	ReceiptID     string            `json:"receiptId"`
	GuestID       string            `json:"guestId"`
	CustomerEmail string            `json:"customerEmail"`
	Total         string            `json:"total"`
	Lines         []OrderPlacedLine `json:"lines"`
	PlacedAt      time.Time         `json:"placedAt"`
}

func orderPlacedPayload(o *order.Order) OrderPlacedPayload {
	p := OrderPlacedPayload{
		ReceiptID:     o.ReceiptID,
		GuestID:       o.GuestID,
		CustomerEmail: o.CustomerEmail,
		Total:         o.Total.StringFixed(2),
		PlacedAt:      o.CreatedAt,
		Lines:         make([]OrderPlacedLine, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		p.Lines = append(p.Lines, OrderPlacedLine{
			ProductID:       l.ProductID,
			Name:            l.Name,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase.StringFixed(2),
		})
	}
	return p
}

// newOrderPlacedEnvelope builds the enveloped event. The partition key is the
// guest id so a consumer sees one guest's orders in sequence order.
func newOrderPlacedEnvelope(meta EventMeta, seq int64, producer string, o *order.Order, occurredAt time.Time) (EventEnvelope, error) {
	payload, err := json.Marshal(orderPlacedPayload(o))
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal OrderPlaced payload: %w", err)
	}
	causation := meta.CausationID
	if causation == "" {
		causation = o.ReceiptID
	}
	return EventEnvelope{
		EventName:     EventTypeOrderPlaced,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   causation,
		Producer:      producer,
		PartitionKey:  o.GuestID,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        orderPlacedSchema,
		Payload:       payload,
	}, nil
}
