package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/pricing"
)

// Recorder observes cart mutations. err is nil on success.
type Recorder interface {
	CartMutation(op string, err error)
}

type nopRecorder struct{}

func (nopRecorder) CartMutation(string, error) {}

// Service is the only entry point for cart mutations. Every call for a guest
// runs under that guest's lock.
type Service struct {
	store    Store
	catalog  catalog.Lookup
	locks    *KeyedMutex
	logger   zerolog.Logger
	recorder Recorder
}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewService(store Store, lookup catalog.Lookup, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  lookup,
		locks:    NewKeyedMutex(),
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Session is handed to Atomically callbacks. Its methods assume the guest
// lock is already held and must not be used after the callback returns.
type Session struct {
	svc     *Service
	guestID string
}

func (x *Session) GuestID() string { return x.guestID }

// View snapshots the cart with resolved products.
func (x *Session) View(ctx context.Context) (View, error) {
	return x.svc.view(ctx, x.guestID)
}

// Clear deletes every line of the guest's cart.
func (x *Session) Clear(ctx context.Context) error {
	if err := x.svc.store.Clear(ctx, x.guestID); err != nil {
		return apperr.Store("clear cart", err)
	}
	return nil
}

// Atomically runs fn while holding the guest's lock, so no other cart
// mutation for that guest interleaves with it.
func (s *Service) Atomically(ctx context.Context, guestID string, fn func(*Session) error) error {
	unlock, err := s.locks.Lock(ctx, guestID)
	if err != nil {
		return apperr.Store("acquire cart lock", err)
	}
	defer unlock()
	return fn(&Session{svc: s, guestID: guestID})
}

func (s *Service) GetLines(ctx context.Context, guestID string) (View, error) {
	var v View
	err := s.Atomically(ctx, guestID, func(x *Session) error {
		var err error
		v, err = x.View(ctx)
		return err
	})
	return v, err
}

var quantityTooLarge = fmt.Sprintf("Quantity must be at most %d", MaxLineQuantity)

// AddItem adds qty of productID, merging into an existing line for the same
// product. merged reports whether an existing line was increased.
func (s *Service) AddItem(ctx context.Context, guestID, productID string, qty int) (v View, merged bool, err error) {
	defer func() { s.recorder.CartMutation("add", err) }()

	productID = strings.TrimSpace(productID)
	if productID == "" || qty < 1 {
		return View{}, false, apperr.Validation("Product ID and quantity (minimum 1) are required")
	}
	if qty > MaxLineQuantity {
		return View{}, false, apperr.Validation(quantityTooLarge)
	}

	err = s.Atomically(ctx, guestID, func(x *Session) error {
		if _, err := s.resolve(ctx, productID); err != nil {
			return err
		}
		line, m, err := s.store.AddQuantity(ctx, guestID, productID, qty)
		if err != nil {
			if errors.Is(err, ErrQuantityLimit) {
				return apperr.Validation(quantityTooLarge)
			}
			return apperr.Store("add cart line", err)
		}
		merged = m
		s.logger.Debug().Str("guest_id", guestID).Str("line_id", line.ID).
			Str("product_id", productID).Int("quantity", line.Quantity).Bool("merged", m).
			Msg("cart line added")
		v, err = x.View(ctx)
		return err
	})
	return v, merged, err
}

// UpdateItem sets the absolute quantity of a line.
func (s *Service) UpdateItem(ctx context.Context, guestID, lineID string, qty int) (v View, err error) {
	defer func() { s.recorder.CartMutation("update", err) }()

	if qty < 1 {
		return View{}, apperr.Validation("Quantity must be at least 1")
	}
	if qty > MaxLineQuantity {
		return View{}, apperr.Validation(quantityTooLarge)
	}

	err = s.Atomically(ctx, guestID, func(x *Session) error {
		if err := s.store.SetQuantity(ctx, guestID, lineID, qty); err != nil {
			if errors.Is(err, ErrLineNotFound) {
				return apperr.NotFound("Cart item not found")
			}
			return apperr.Store("update cart line", err)
		}
		v, err = x.View(ctx)
		return err
	})
	return v, err
}

func (s *Service) RemoveItem(ctx context.Context, guestID, lineID string) (v View, err error) {
	defer func() { s.recorder.CartMutation("remove", err) }()

	err = s.Atomically(ctx, guestID, func(x *Session) error {
		if err := s.store.DeleteLine(ctx, guestID, lineID); err != nil {
			if errors.Is(err, ErrLineNotFound) {
				return apperr.NotFound("Cart item not found")
			}
			return apperr.Store("remove cart line", err)
		}
		v, err = x.View(ctx)
		return err
	})
	return v, err
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *Service) Clear(ctx context.Context, guestID string) (err error) {
	defer func() { s.recorder.CartMutation("clear", err) }()

	return s.Atomically(ctx, guestID, func(x *Session) error {
		return x.Clear(ctx)
	})
}

func (s *Service) resolve(ctx context.Context, productID string) (catalog.Product, error) {
	p, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Product{}, apperr.NotFound("Product not found")
		}
		return catalog.Product{}, apperr.Store("lookup product", err)
	}
	return p, nil
}

// view resolves every line. Lines whose product is gone are tombstoned:
// left in storage but excluded from the view and the total.
func (s *Service) view(ctx context.Context, guestID string) (View, error) {
	lines, err := s.store.ListLines(ctx, guestID)
	if err != nil {
		return View{}, apperr.Store("list cart lines", err)
	}

	v := View{GuestID: guestID, Lines: make([]ViewLine, 0, len(lines)), Total: decimal.Zero}
	priced := make([]pricing.Line, 0, len(lines))
	prices := make(map[string]decimal.Decimal, len(lines))

	for _, l := range lines {
		p, err := s.catalog.FindByID(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				s.logger.Debug().Str("guest_id", guestID).Str("line_id", l.ID).
					Str("product_id", l.ProductID).Msg("skipping orphaned cart line")
				continue
			}
			return View{}, apperr.Store("lookup product", err)
		}
		v.Lines = append(v.Lines, ViewLine{
			Line:     l,
			Product:  p,
			Subtotal: pricing.LineSubtotal(p.Price, l.Quantity),
		})
		priced = append(priced, pricing.Line{ProductID: l.ProductID, Quantity: l.Quantity})
		prices[l.ProductID] = p.Price
	}

	v.Total = pricing.ComputeTotal(priced, prices)
	return v, nil
}
