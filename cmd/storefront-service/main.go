package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("storefront-service stopped")
	}
}

// run owns every resource it opens; they are closed before it returns.
func run(cfg config.Config, logger zerolog.Logger) (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Warn().Err(cerr).Msg("close")
			}
		}
	}()

	// --- storage ---
	b := backends{seq: events.NewMemorySequencer()}
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		closers = append(closers, func() error { pool.Close(); return nil })

		sqlDB, err := db.OpenSQL(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		closers = append(closers, sqlDB.Close)

		pgCatalog := catalog.NewPostgresCatalog(pool)
		if cfg.SeedCatalog {
			if err := pgCatalog.Seed(ctx, catalog.SeedProducts()); err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
		}
		b.catalog = pgCatalog
		b.lines = cart.NewPostgresStore(pool)
		b.orders = order.NewPostgresStore(sqlDB)
		b.seq = events.NewPostgresSequencer(pool)
	default:
		var seed []catalog.Product
		if cfg.SeedCatalog {
			seed = catalog.SeedProducts()
		}
		b.catalog = catalog.NewMemoryCatalog(seed...)
		b.lines = cart.NewMemoryStore()
		b.orders = order.NewMemoryStore()
	}

	if cfg.OrderStore == config.OrderStorePebble {
		ps, err := order.OpenPebbleStore(cfg.PebbleDir, nil)
		if err != nil {
			return fmt.Errorf("open order store: %w", err)
		}
		closers = append(closers, ps.Close)
		b.orders = ps
	}

	// --- redis ---
	b.idem = checkout.NewMemoryIdempotency(cfg.IdempotencyTTL)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, rdb.Close)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup, continuing")
		}
		pingCancel()
		b.cache = rdb
		b.idem = checkout.NewRedisIdempotency(rdb, cfg.IdempotencyTTL)
	}

	// --- events ---
	b.publisher, err = newPublisher(cfg, b.seq)
	if err != nil {
		return err
	}
	closers = append(closers, b.publisher.Close)

	// --- HTTP ---
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(cfg, b, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.StorageBackend).
			Str("events", cfg.EventsBackend).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
		serveErr = errors.Join(serveErr, fmt.Errorf("http shutdown: %w", err))
	}
	cancel()

	logger.Info().Msg("shutdown complete")
	return serveErr
}

// backends are the stores and clients the HTTP surface is built on.
type backends struct {
	catalog   catalog.Lookup
	lines     cart.Store
	orders    order.Store
	seq       events.Sequencer
	idem      checkout.IdempotencyStore
	publisher events.Publisher
	// cache fronts product browsing only; nil disables it.
	cache catalog.RedisClient
}

// newRouter wires services and routes. Carts and checkout resolve products
// against the catalog itself; only product browsing reads through the cache.
func newRouter(cfg config.Config, b backends, logger zerolog.Logger) http.Handler {
	reg := metrics.NewRegistry()
	carts := cart.NewService(b.lines, b.catalog, logger, cart.WithRecorder(reg))
	co := checkout.NewService(carts, b.orders, logger,
		checkout.WithPublisher(b.publisher),
		checkout.WithIdempotency(b.idem),
		checkout.WithRecorder(reg),
	)

	browse := b.catalog
	if b.cache != nil {
		browse = catalog.NewCachedLookup(b.catalog, b.cache, cfg.CatalogCacheTTL, logger)
	}

	h := httpapi.NewHandler(carts, co, browse, logger, cfg.RequestTimeout)
	return httpapi.NewRouter(h, httpapi.RouterConfig{
		Logger:           logger,
		DefaultGuestID:   cfg.DefaultGuestID,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		CheckoutLimiter:  httpapi.NewRateLimiter(cfg.CheckoutRateLimit, cfg.CheckoutRateBurst, 3*time.Minute),
		Metrics:          reg,
	})
}

func newPublisher(cfg config.Config, seq events.Sequencer) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsRabbitMQ:
		conn, err := events.DialRabbit(cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		p, err := events.NewRabbitPublisher(conn, seq, logging.ServiceName)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		return closeBoth{Publisher: p, conn: conn.Close}, nil
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, seq, logging.ServiceName), nil
	default:
		return events.Noop{}, nil
	}
}

// closeBoth closes the publisher's channel, then the connection it was opened on.
type closeBoth struct {
	events.Publisher
	conn func() error
}

func (c closeBoth) Close() error {
	return errors.Join(c.Publisher.Close(), c.conn())
}
