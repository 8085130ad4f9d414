package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
)

type RouterConfig struct {
	Logger           zerolog.Logger
	DefaultGuestID   string
	CORSAllowOrigins []string
	// CheckoutLimiter is optional; nil disables rate limiting.
	CheckoutLimiter *RateLimiter
	// Metrics is optional; nil disables /metrics and request counting.
	Metrics *metrics.Registry
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.DefaultGuestID == "" {
		cfg.DefaultGuestID = "guest"
	}
	if len(cfg.CORSAllowOrigins) == 0 {
		cfg.CORSAllowOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(cfg.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(accessLog(cfg.Metrics))
	r.Use(CorrelationID)
	r.Use(Recover)
	r.Use(CORS(cfg.CORSAllowOrigins))

	r.NotFound(h.NotFound)
	r.Get("/", h.Root)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/categories", h.ListCategories)
			r.Get("/{id}", h.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(GuestID(cfg.DefaultGuestID))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/", h.AddToCart)
				r.Delete("/", h.ClearCart)
				r.Put("/{id}", h.UpdateCartItem)
				r.Delete("/{id}", h.RemoveCartItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.With(limit(cfg.CheckoutLimiter)).Post("/", h.Checkout)
				r.Get("/orders/{receiptId}", h.GetOrder)
			})
		})
	})

	return r
}

func limit(l *RateLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.Middleware
}

func accessLog(reg *metrics.Registry) func(http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
		if reg != nil {
			reg.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		}
	})
}

func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hlog.FromRequest(r).Error().Interface("panic", rec).Msg("recovered from panic")
				writeMessage(w, r, http.StatusInternalServerError, "server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
