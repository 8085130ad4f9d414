package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

// money renders as a JSON number with exactly two decimals.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type errorResponse struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type productDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Price       money     `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductDTO(p catalog.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Price:       money(p.Price),
		Stock:       p.Stock,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt,
	}
}

type cartItemDTO struct {
	ID        string     `json:"id"`
	ProductID string     `json:"productId"`
	Product   productDTO `json:"product"`
	Qty       int        `json:"qty"`
	Subtotal  money      `json:"subtotal"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type cartResponse struct {
	Message   string        `json:"message,omitempty"`
	CartItems []cartItemDTO `json:"cartItems"`
	Total     money         `json:"total"`
}

func toCartResponse(msg string, v cart.View) cartResponse {
	resp := cartResponse{
		Message:   msg,
		CartItems: make([]cartItemDTO, 0, len(v.Lines)),
		Total:     money(v.Total),
	}
	for _, l := range v.Lines {
		resp.CartItems = append(resp.CartItems, cartItemDTO{
			ID:        l.ID,
			ProductID: l.ProductID,
			Product:   toProductDTO(l.Product),
			Qty:       l.Quantity,
			Subtotal:  money(l.Subtotal),
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		})
	}
	return resp
}

type receiptItemDTO struct {
	Name     string `json:"name"`
	Qty      int    `json:"qty"`
	Price    money  `json:"price"`
	Subtotal money  `json:"subtotal"`
}

type orderDetailsDTO struct {
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Items []receiptItemDTO `json:"items"`
}

type receiptResponse struct {
	Message      string          `json:"message"`
	ReceiptID    string          `json:"receiptId"`
	Total        money           `json:"total"`
	Timestamp    time.Time       `json:"timestamp"`
	OrderDetails orderDetailsDTO `json:"orderDetails"`
}

func toReceiptResponse(r checkout.Receipt) receiptResponse {
	resp := receiptResponse{
		Message:   "Order placed successfully",
		ReceiptID: r.ReceiptID,
		Total:     money(r.Total),
		Timestamp: r.CreatedAt,
		OrderDetails: orderDetailsDTO{
			Name:  r.Name,
			Email: r.Email,
			Items: make([]receiptItemDTO, 0, len(r.Lines)),
		},
	}
	for _, l := range r.Lines {
		resp.OrderDetails.Items = append(resp.OrderDetails.Items, receiptItemDTO{
			Name:     l.Name,
			Qty:      l.Quantity,
			Price:    money(l.UnitPrice),
			Subtotal: money(l.Subtotal),
		})
	}
	return resp
}

type orderLineDTO struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     money  `json:"price"`
	Subtotal  money  `json:"subtotal"`
}

type orderResponse struct {
	ReceiptID string         `json:"receiptId"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Total     money          `json:"total"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	CartItems []orderLineDTO `json:"cartItems"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ReceiptID: o.ReceiptID,
		Name:      o.CustomerName,
		Email:     o.CustomerEmail,
		Total:     money(o.Total),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		CartItems: make([]orderLineDTO, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.CartItems = append(resp.CartItems, orderLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Qty:       l.Quantity,
			Price:     money(l.PriceAtPurchase),
			Subtotal:  money(l.Subtotal),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg, CorrelationID: GetCorrelationID(r.Context())})
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindEmptyCart:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. Internal detail is logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeMessage(w, r, status, apperr.Message(err))
}
