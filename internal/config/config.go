// Package config loads the storefront server settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/Uchennem/sleepoutsideServer/pkg/config"
	"github.com/Uchennem/sleepoutsideServer/pkg/database"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
	"github.com/Uchennem/sleepoutsideServer/pkg/middleware"
	"github.com/Uchennem/sleepoutsideServer/pkg/tracing"
)

// Product store backends selectable with PRODUCT_STORE.
const (
	StorePostgres      = "postgres"
	StoreElasticsearch = "elasticsearch"
	StoreMemory        = "memory"
)

const (
	envDevelopment = "development"
	minSecretLen   = 32
)

// Config holds all configuration for the storefront server and seeder.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"3000"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Storage backend for products. Users always live in PostgreSQL unless
	// the memory store is selected.
	ProductStore string `env:"PRODUCT_STORE" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost    string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort    int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser    string        `env:"POSTGRES_USER" envDefault:"sleepoutside"`
	PostgresPass    string        `env:"POSTGRES_PASSWORD" envDefault:"sleepoutside"`
	PostgresDB      string        `env:"DB_NAME" envDefault:"sleepoutside"`
	PostgresSSL     string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns      int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns      int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnIdle   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryMillis int           `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Elasticsearch
	ElasticsearchURLs     []string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200" envSeparator:","`
	ElasticsearchIndex    string   `env:"ELASTICSEARCH_INDEX" envDefault:"sleepoutside_products"`
	ElasticsearchUsername string   `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string   `env:"ELASTICSEARCH_PASSWORD"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"1h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`

	// Catalog
	FilterPolicy string `env:"CATALOG_FILTER_POLICY" envDefault:"and"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Seeder
	ProductsFile     string `env:"PRODUCTS_FILE" envDefault:"data/products.json"`
	SeedUserEmail    string `env:"SEED_USER_EMAIL" envDefault:"user@example.com"`
	SeedUserPassword string `env:"SEED_USER_PASSWORD" envDefault:"password123"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load sleepoutside config: %w", err)
	}
	return cfg, nil
}

// LoadFrom is Load reading from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load sleepoutside config: %w", err)
	}
	return cfg, nil
}

// Validate implements pkgconfig.Validator.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	c.ProductStore = strings.ToLower(strings.TrimSpace(c.ProductStore))
	switch c.ProductStore {
	case StorePostgres, StoreElasticsearch, StoreMemory:
	default:
		return fmt.Errorf("PRODUCT_STORE must be one of %s, %s, %s; got %q",
			StorePostgres, StoreElasticsearch, StoreMemory, c.ProductStore)
	}

	if c.ProductStore != StoreMemory && (c.PostgresPort < 1 || c.PostgresPort > 65535) {
		return fmt.Errorf("invalid PostgreSQL port: %d", c.PostgresPort)
	}
	if c.ProductStore == StoreElasticsearch && len(c.ElasticsearchURLs) == 0 {
		return fmt.Errorf("ELASTICSEARCH_URL is required when PRODUCT_STORE=%s", StoreElasticsearch)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}

	if _, err := filter.ParsePolicy(c.FilterPolicy); err != nil {
		return fmt.Errorf("CATALOG_FILTER_POLICY: %w", err)
	}

	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.JWTExpiresIn)
	}

	// Outside development an unset or weak secret is a deployment error.
	// In development an empty secret is tolerated and login reports it.
	if !c.IsDevelopment() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < minSecretLen {
			return fmt.Errorf("JWT_SECRET must be at least %d characters long, got %d", minSecretLen, len(c.JWTSecret))
		}
	}

	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1], got %v", c.OTELSampleRate)
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == envDevelopment
}

// Policy returns the parsed catalog filter policy. Validate guarantees it
// parses.
func (c *Config) Policy() filter.Policy {
	p, err := filter.ParsePolicy(c.FilterPolicy)
	if err != nil {
		return filter.PolicyAnd
	}
	return p
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	if c.DBMaxConns > 0 {
		pg.MaxConns = c.DBMaxConns
	}
	if c.DBMinConns > 0 {
		pg.MinConns = c.DBMinConns
	}
	if c.DBMaxConnIdle > 0 {
		pg.MaxConnIdleTime = c.DBMaxConnIdle
	}
	return pg
}

// SlowQueryThreshold returns the slow query log threshold; zero disables it.
func (c *Config) SlowQueryThreshold() time.Duration {
	if c.SlowQueryMillis <= 0 {
		return 0
	}
	return time.Duration(c.SlowQueryMillis) * time.Millisecond
}

// Tracing returns the OpenTelemetry settings for serviceName.
func (c *Config) Tracing(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Environment = c.Environment
	tc.Enabled = c.OTELEnabled
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	return tc
}

// CORS returns the CORS middleware settings.
func (c *Config) CORS() middleware.CORSConfig {
	cc := middleware.DefaultCORSConfig()
	cc.AllowedOrigins = c.CORSAllowedOrigins
	cc.Environment = c.Environment
	return cc
}
