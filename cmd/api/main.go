package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	_ "cartflow/docs"
	cartredis "cartflow/pkg/cart/redis"
	"cartflow/pkg/catalog"
	pg "cartflow/pkg/catalog/postgres"
	"cartflow/pkg/catalog/remote"
	"cartflow/pkg/checkout"
	"cartflow/pkg/config"
	"cartflow/pkg/logger"
	"cartflow/pkg/otel"
)

// @title CartFlow API
// @version 1.0
// @description Shopping cart and checkout API for the storefront
// @host localhost:8443
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, logger.LevelInfo, "cartflow", nil).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}
	level, _ := logger.ParseLevel(cfg.LogLevel) // validated by config.Load
	log := logger.New(os.Stdout, level, cfg.ServiceName, otel.GetTraceID)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx := context.Background()

	tp, shutdown, err := otel.InitTracing(log, otel.Config{ServiceName: cfg.ServiceName, Host: cfg.Tracing.Host, Probability: cfg.Tracing.Probability})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	repo, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn(ctx, "redis ping", "addr", cfg.Redis.Addr, "error", err)
	}

	srv := &server{
		log:             log,
		tracer:          tp.Tracer(cfg.ServiceName),
		sessions:        redisClient,
		sessionTTL:      cfg.Redis.SessionTTL,
		carts:           cartredis.New(redisClient, cfg.Redis.CartTTL),
		catalog:         repo,
		submitter:       checkout.NewSubmitter(cfg.Checkout.OrderEndpoint, &http.Client{Timeout: cfg.Checkout.Timeout}),
		checkoutTimeout: cfg.Checkout.Timeout,
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Server.Addr, "tls", cfg.Server.TLS())
		if cfg.Server.TLS() {
			errCh <- httpServer.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		log.Info(ctx, "shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openCatalog selects the remote catalog when CATALOG_URL is set and the
// Postgres products table otherwise, seeding it from CATALOG_SEED if given.
func openCatalog(ctx context.Context, cfg config.Config, log *logger.Logger) (catalog.Repository, func(), error) {
	if cfg.Catalog.URL != "" {
		log.Info(ctx, "using remote catalog", "url", cfg.Catalog.URL, "timeout", cfg.Catalog.Timeout.String())
		return remote.New(cfg.Catalog.URL, &http.Client{Timeout: cfg.Catalog.Timeout}), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.ExecContext(ctx, pg.Schema); err != nil {
		db.Close()
		return nil, nil, err
	}
	repo := pg.New(db)
	if cfg.Catalog.SeedFile != "" {
		if err := seedCatalog(ctx, repo, cfg.Catalog.SeedFile, log); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return repo, func() { db.Close() }, nil
}

func seedCatalog(ctx context.Context, repo *pg.Repository, path string, log *logger.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()
	n, err := repo.Seed(ctx, f)
	if err != nil {
		return err
	}
	log.Info(ctx, "catalog seeded", "file", path, "products", n)
	return nil
}
