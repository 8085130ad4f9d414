package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{Category: q.Get("category"), Sort: q.Get("sort")}
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			writeMessage(w, r, http.StatusBadRequest, "Invalid "+key)
			return
		}
		*dst = &d
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	ps, err := h.catalog.List(ctx, f)
	if err != nil {
		writeError(w, r, apperr.Store("list products", err))
		return
	}
	out := make([]productDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	cats, err := h.catalog.ListDistinctCategories(ctx)
	if err != nil {
		writeError(w, r, apperr.Store("list categories", err))
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	p, err := h.catalog.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, apperr.NotFound("Product not found"))
			return
		}
		writeError(w, r, apperr.Store("find product", err))
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}
