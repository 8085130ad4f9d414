package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type testServer struct {
	handler http.Handler
	catalog *catalog.MemoryCatalog
	orders  order.Store
	metrics *metrics.Registry
}

func newTestServer(t *testing.T, orders order.Store, limiter *RateLimiter) *testServer {
	t.Helper()
	cat := catalog.NewMemoryCatalog(
		catalog.Product{ID: "p1", Name: "Mug", Price: decimal.RequireFromString("10.00"), Category: "Kitchen", Stock: 5},
		catalog.Product{ID: "p2", Name: "Lamp", Price: decimal.RequireFromString("5.50"), Category: "Home", Stock: 5},
	)
	if orders == nil {
		orders = order.NewMemoryStore()
	}
	reg := metrics.NewRegistry()
	logger := zerolog.Nop()
	carts := cart.NewService(cart.NewMemoryStore(), cat, logger, cart.WithRecorder(reg))
	co := checkout.NewService(carts, orders, logger,
		checkout.WithRecorder(reg),
		checkout.WithIdempotency(checkout.NewMemoryIdempotency(time.Hour)))
	h := NewHandler(carts, co, cat, logger, time.Second)
	return &testServer{
		handler: NewRouter(h, RouterConfig{Logger: logger, CheckoutLimiter: limiter, Metrics: reg}),
		catalog: cat,
		orders:  orders,
		metrics: reg,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func cartItems(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	raw, ok := body["cartItems"].([]any)
	require.True(t, ok, "cartItems missing in %v", body)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.(map[string]any))
	}
	return out
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec, body := s.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cartItems(t, body))
	assert.Equal(t, 0.0, body["total"])

	rec, body = s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item added to cart successfully", body["message"])

	rec, body = s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cart item updated successfully", body["message"])
	items := cartItems(t, body)
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0]["qty"])
	assert.Equal(t, 30.0, body["total"])
	lineID := items[0]["id"].(string)

	rec, body = s.do(t, http.MethodPut, "/api/cart/"+lineID, map[string]any{"qty": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10.0, body["total"])

	rec, body = s.do(t, http.MethodDelete, "/api/cart/"+lineID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item removed from cart successfully", body["message"])
	assert.Empty(t, cartItems(t, body))

	rec, body = s.do(t, http.MethodDelete, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cart cleared successfully", body["message"])
}

func TestCartErrors(t *testing.T) {
	s := newTestServer(t, nil, nil)

	cases := []struct {
		name, method, path string
		body               any
		status             int
	}{
		{"zero qty", http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 0}, http.StatusBadRequest},
		{"qty above limit", http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": int64(cart.MaxLineQuantity) + 1}, http.StatusBadRequest},
		{"missing product id", http.MethodPost, "/api/cart", map[string]any{"qty": 1}, http.StatusBadRequest},
		{"unknown product", http.MethodPost, "/api/cart", map[string]any{"productId": "zzz", "qty": 1}, http.StatusNotFound},
		{"bad json", http.MethodPost, "/api/cart", "not an object", http.StatusBadRequest},
		{"update missing line", http.MethodPut, "/api/cart/nope", map[string]any{"qty": 2}, http.StatusNotFound},
		{"update zero qty", http.MethodPut, "/api/cart/nope", map[string]any{"qty": 0}, http.StatusBadRequest},
		{"update qty above limit", http.MethodPut, "/api/cart/nope", map[string]any{"qty": int64(cart.MaxLineQuantity) + 1}, http.StatusBadRequest},
		{"remove missing line", http.MethodDelete, "/api/cart/nope", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := s.do(t, tc.method, tc.path, tc.body, HeaderCorrelationID, "corr-42")
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, "corr-42", body["correlationId"])
		})
	}
}

func TestCartMergePastLimitIsRejected(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec, _ := s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": cart.MaxLineQuantity})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["message"])

	_, body = s.do(t, http.MethodGet, "/api/cart", nil)
	items := cartItems(t, body)
	require.Len(t, items, 1)
	assert.Equal(t, float64(cart.MaxLineQuantity), items[0]["qty"])
	assert.Greater(t, body["total"].(float64), 0.0)
}

func TestGuestsHaveSeparateCarts(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec, _ := s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 1}, HeaderGuestID, "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := s.do(t, http.MethodGet, "/api/cart", nil, HeaderGuestID, "bob")
	assert.Empty(t, cartItems(t, body))

	_, body = s.do(t, http.MethodGet, "/api/cart", nil, HeaderGuestID, "alice")
	assert.Len(t, cartItems(t, body), 1)

	rec, _ = s.do(t, http.MethodGet, "/api/cart", nil, HeaderGuestID, strings.Repeat("x", 200))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec, body := s.do(t, http.MethodPost, "/api/checkout", map[string]any{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cart is empty. Add items before checkout.", body["message"])

	s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 2})
	s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p2", "qty": 1})

	rec, _ = s.do(t, http.MethodPost, "/api/checkout", map[string]any{"name": "Ada", "email": "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/checkout", map[string]any{"name": "Ada", "email": "ADA@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Order placed successfully", body["message"])
	assert.Equal(t, 25.5, body["total"])
	receiptID := body["receiptId"].(string)
	details := body["orderDetails"].(map[string]any)
	assert.Equal(t, "ada@example.com", details["email"])
	assert.Len(t, details["items"], 2)

	_, body = s.do(t, http.MethodGet, "/api/cart", nil)
	assert.Empty(t, cartItems(t, body))

	rec, body = s.do(t, http.MethodGet, "/api/checkout/orders/"+receiptID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, receiptID, body["receiptId"])
	assert.Equal(t, "completed", body["status"])
	assert.Len(t, body["cartItems"], 2)

	rec, _ = s.do(t, http.MethodGet, "/api/checkout/orders/RCP-MISSING", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 1})

	payload := map[string]any{"name": "Ada", "email": "ada@example.com"}
	rec, first := s.do(t, http.MethodPost, "/api/checkout", payload, HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, second := s.do(t, http.MethodPost, "/api/checkout", payload, HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, first["receiptId"], second["receiptId"])
}

type brokenOrders struct{}

func (brokenOrders) Save(context.Context, *order.Order) error {
	return errors.New("pq: relation \"orders\" does not exist")
}

func (brokenOrders) FindByReceiptID(context.Context, string) (*order.Order, error) {
	return nil, errors.New("pq: connection refused")
}

func TestStoreErrorsAreGeneric(t *testing.T) {
	s := newTestServer(t, brokenOrders{}, nil)
	s.do(t, http.MethodPost, "/api/cart", map[string]any{"productId": "p1", "qty": 1})

	rec, body := s.do(t, http.MethodPost, "/api/checkout", map[string]any{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server error", body["message"])
	assert.NotContains(t, rec.Body.String(), "pq:")

	_, body = s.do(t, http.MethodGet, "/api/cart", nil)
	assert.Len(t, cartItems(t, body), 1)

	rec, body = s.do(t, http.MethodGet, "/api/checkout/orders/RCP-1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server error", body["message"])
}

func TestCheckoutRateLimit(t *testing.T) {
	s := newTestServer(t, nil, NewRateLimiter(0.001, 1, time.Minute))

	rec, _ := s.do(t, http.MethodPost, "/api/checkout", map[string]any{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/checkout", map[string]any{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestProducts(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?category=kit", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, 10.0, products[0]["price"])

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Home","Kitchen"]`, rec.Body.String())

	rec, _ = s.do(t, http.MethodGet, "/api/products/p2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/products?minPrice=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthMetricsAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec, body := s.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))

	rec, _ = s.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), HeaderGuestID)
}
