// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cartflow/pkg/logger"
)

const (
	defaultAddr            = ":8443"
	defaultServiceName     = "cartflow"
	defaultLogLevel        = "info"
	defaultCartTTL         = 30 * 24 * time.Hour
	defaultSessionTTL      = time.Hour
	defaultCheckoutTimeout = 15 * time.Second
	defaultCatalogTimeout  = 5 * time.Second
	defaultOTELProbability = 1.0
)

// Config captures all runtime configuration.
type Config struct {
	ServiceName string
	LogLevel    string
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Catalog     CatalogConfig
	Checkout    CheckoutConfig
	Tracing     TracingConfig
}

// ServerConfig configures the HTTP listener. TLS is used when both files are set.
type ServerConfig struct {
	Addr    string
	TLSCert string
	TLSKey  string
}

// TLS reports whether the server should listen with TLS.
func (s ServerConfig) TLS() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

// PostgresConfig holds the catalog database DSN.
type PostgresConfig struct {
	URL string
}

// RedisConfig configures session and cart storage.
type RedisConfig struct {
	Addr       string
	CartTTL    time.Duration
	SessionTTL time.Duration
}

// CatalogConfig selects the catalog source. A non-empty URL uses the remote
// catalog service instead of Postgres; Timeout bounds each remote lookup.
// SeedFile optionally names a JSON array of products upserted into Postgres
// at startup.
type CatalogConfig struct {
	URL      string
	Timeout  time.Duration
	SeedFile string
}

// CheckoutConfig points at the order-creation endpoint.
type CheckoutConfig struct {
	OrderEndpoint string
	Timeout       time.Duration
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	Host        string
	Probability float64
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: getenv("SERVICE_NAME", defaultServiceName),
		LogLevel:    getenv("LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Addr:    getenv("ADDR", defaultAddr),
			TLSCert: os.Getenv("TLS_CERT"),
			TLSKey:  os.Getenv("TLS_KEY"),
		},
		Postgres: PostgresConfig{URL: os.Getenv("DATABASE_URL")},
		Redis:    RedisConfig{Addr: os.Getenv("REDIS_ADDR")},
		Catalog:  CatalogConfig{URL: os.Getenv("CATALOG_URL"), SeedFile: os.Getenv("CATALOG_SEED")},
		Checkout: CheckoutConfig{OrderEndpoint: os.Getenv("ORDER_ENDPOINT")},
		Tracing:  TracingConfig{Host: os.Getenv("OTEL_HOST")},
	}

	var errs []error
	var err error
	// CART_TTL=0 keeps carts forever; the other durations must be positive.
	if cfg.Redis.CartTTL, err = duration("CART_TTL", defaultCartTTL, true); err != nil {
		errs = append(errs, err)
	}
	if cfg.Redis.SessionTTL, err = duration("SESSION_TTL", defaultSessionTTL, false); err != nil {
		errs = append(errs, err)
	}
	if cfg.Checkout.Timeout, err = duration("CHECKOUT_TIMEOUT", defaultCheckoutTimeout, false); err != nil {
		errs = append(errs, err)
	}
	if cfg.Catalog.Timeout, err = duration("CATALOG_TIMEOUT", defaultCatalogTimeout, false); err != nil {
		errs = append(errs, err)
	}
	if cfg.Tracing.Probability, err = probability("OTEL_PROBABILITY", defaultOTELProbability); err != nil {
		errs = append(errs, err)
	}

	if _, ok := logger.ParseLevel(cfg.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: unknown level %q", cfg.LogLevel))
	}
	if cfg.Catalog.SeedFile != "" && cfg.Catalog.URL != "" {
		errs = append(errs, errors.New("CATALOG_SEED requires the Postgres catalog, unset CATALOG_URL"))
	}

	if cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if cfg.Checkout.OrderEndpoint == "" {
		errs = append(errs, errors.New("ORDER_ENDPOINT is required"))
	}
	if cfg.Catalog.URL == "" && cfg.Postgres.URL == "" {
		errs = append(errs, errors.New("one of CATALOG_URL or DATABASE_URL is required"))
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs = append(errs, errors.New("TLS_CERT and TLS_KEY must be set together"))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration, allowZero bool) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	if d == 0 && !allowZero {
		return 0, fmt.Errorf("%s: must be positive, got %q", key, raw)
	}
	return d, nil
}

func probability(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || p < 0 || p > 1 {
		return 0, fmt.Errorf("%s: must be a number between 0 and 1, got %q", key, raw)
	}
	return p, nil
}
