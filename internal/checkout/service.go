// Package checkout turns a guest's cart into an immutable order.
package checkout

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/pricing"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const defaultReceiptAttempts = 5

// settleTimeout bounds the cart clear and idempotency write that follow a
// persisted order. Both run detached from the request context.
const settleTimeout = 3 * time.Second

// Outcomes reported to the Recorder.
const (
	OutcomeSuccess    = "success"
	OutcomeReplay     = "replay"
	OutcomeValidation = "validation"
	OutcomeEmptyCart  = "empty_cart"
	OutcomeError      = "error"
)

type Recorder interface {
	CheckoutFinished(outcome string, elapsed time.Duration)
	CartClearFailed()
}

type nopRecorder struct{}

func (nopRecorder) CheckoutFinished(string, time.Duration) {}
func (nopRecorder) CartClearFailed()                       {}

type Service struct {
	carts     *cart.Service
	orders    order.Store
	receipts  order.ReceiptGenerator
	publisher events.Publisher
	idem      IdempotencyStore
	logger    zerolog.Logger
	recorder  Recorder
	attempts  int
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithIdempotency(st IdempotencyStore) Option {
	return func(s *Service) { s.idem = st }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithReceiptGenerator(g order.ReceiptGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.receipts = g
		}
	}
}

// WithReceiptAttempts bounds how many receipt ids are tried before giving up.
func WithReceiptAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(carts *cart.Service, orders order.Store, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		carts:     carts,
		orders:    orders,
		receipts:  order.UUIDReceipts{},
		publisher: events.Noop{},
		logger:    logger,
		recorder:  nopRecorder{},
		attempts:  defaultReceiptAttempts,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ProcessCheckout validates the customer, snapshots the cart, freezes prices,
// persists the order and clears the cart. Everything from the snapshot to the
// clear runs under the guest's cart lock.
func (s *Service) ProcessCheckout(ctx context.Context, guestID string, req Request) (rcpt Receipt, err error) {
	start := time.Now()
	defer func() { s.recorder.CheckoutFinished(outcomeOf(rcpt, err), time.Since(start)) }()

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return Receipt{}, apperr.Validation("Name and email are required")
	}
	if !emailPattern.MatchString(email) {
		return Receipt{}, apperr.Validation("Please provide a valid email address")
	}

	log := s.logger.With().Str("guest_id", guestID).Str("correlation_id", req.Meta.CorrelationID).Logger()

	var placed *order.Order
	err = s.carts.Atomically(ctx, guestID, func(x *cart.Session) error {
		if prior, ok := s.replay(ctx, log, guestID, req.IdempotencyKey); ok {
			rcpt = receiptFromOrder(prior)
			rcpt.Replayed = true
			return nil
		}

		view, err := x.View(ctx)
		if err != nil {
			return err
		}
		if view.Empty() {
			return apperr.EmptyCart("Cart is empty. Add items before checkout.")
		}

		o := s.freeze(guestID, name, email, view)
		if err := s.persist(ctx, log, o); err != nil {
			return err
		}
		placed = o

		settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
		defer cancel()

		if err := x.Clear(settleCtx); err != nil {
			s.recorder.CartClearFailed()
			log.Error().Err(err).Str("receipt_id", o.ReceiptID).Msg("order saved but cart clear failed")
		}

		if req.IdempotencyKey != "" && s.idem != nil {
			if err := s.idem.Remember(settleCtx, guestID, req.IdempotencyKey, o.ReceiptID); err != nil {
				log.Warn().Err(err).Str("receipt_id", o.ReceiptID).Msg("remember idempotency key failed")
			}
		}

		rcpt = receiptFromOrder(o)
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	if placed != nil {
		if err := s.publisher.PublishOrderPlaced(context.WithoutCancel(ctx), req.Meta, placed); err != nil {
			log.Warn().Err(err).Str("receipt_id", placed.ReceiptID).Msg("publish OrderPlaced failed")
		}
		log.Info().Str("receipt_id", placed.ReceiptID).Str("total", placed.Total.StringFixed(2)).
			Int("lines", len(placed.Lines)).Msg("order placed")
	}
	return rcpt, nil
}

// GetOrder returns a stored order by receipt id.
func (s *Service) GetOrder(ctx context.Context, receiptID string) (*order.Order, error) {
	o, err := s.orders.FindByReceiptID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Store("find order", err)
	}
	return o, nil
}

func (s *Service) replay(ctx context.Context, log zerolog.Logger, guestID, key string) (*order.Order, bool) {
	if key == "" || s.idem == nil {
		return nil, false
	}
	receiptID, found, err := s.idem.Lookup(ctx, guestID, key)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency lookup failed, processing as new checkout")
		return nil, false
	}
	if !found {
		return nil, false
	}
	o, err := s.orders.FindByReceiptID(ctx, receiptID)
	if err != nil {
		log.Warn().Err(err).Str("receipt_id", receiptID).Msg("idempotent receipt not loadable")
		return nil, false
	}
	return o, true
}

// freeze copies name and price from the resolved snapshot. Later catalog
// changes do not affect the order.
func (s *Service) freeze(guestID, name, email string, view cart.View) *order.Order {
	o := &order.Order{
		GuestID:       guestID,
		CustomerName:  name,
		CustomerEmail: email,
		Status:        order.StatusCompleted,
		CreatedAt:     s.now(),
		Lines:         make([]order.Line, 0, len(view.Lines)),
	}
	priced := make([]pricing.Line, 0, len(view.Lines))
	prices := make(map[string]decimal.Decimal, len(view.Lines))
	for _, vl := range view.Lines {
		o.Lines = append(o.Lines, order.Line{
			ProductID:       vl.ProductID,
			Name:            vl.Product.Name,
			Quantity:        vl.Quantity,
			PriceAtPurchase: vl.Product.Price,
			Subtotal:        pricing.LineSubtotal(vl.Product.Price, vl.Quantity),
		})
		priced = append(priced, pricing.Line{ProductID: vl.ProductID, Quantity: vl.Quantity})
		prices[vl.ProductID] = vl.Product.Price
	}
	o.Total = pricing.ComputeTotal(priced, prices)
	return o
}

// persist assigns a receipt id and saves, drawing a fresh id on collision.
func (s *Service) persist(ctx context.Context, log zerolog.Logger, o *order.Order) error {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		id, err := s.receipts.NewReceiptID()
		if err != nil {
			return apperr.Store("generate receipt id", err)
		}
		o.ReceiptID = id

		err = s.orders.Save(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, order.ErrDuplicateReceipt) {
			return apperr.Store("save order", err)
		}
		log.Warn().Str("receipt_id", id).Int("attempt", attempt).Msg("receipt id collision, regenerating")
	}
	o.ReceiptID = ""
	return apperr.Store("allocate receipt id", order.ErrDuplicateReceipt)
}

func outcomeOf(r Receipt, err error) string {
	switch {
	case err == nil && r.Replayed:
		return OutcomeReplay
	case err == nil:
		return OutcomeSuccess
	case apperr.Is(err, apperr.KindValidation):
		return OutcomeValidation
	case apperr.Is(err, apperr.KindEmptyCart):
		return OutcomeEmptyCart
	default:
		return OutcomeError
	}
}
