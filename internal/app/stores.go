package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Uchennem/sleepoutsideServer/internal/config"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	esrepo "github.com/Uchennem/sleepoutsideServer/internal/repository/elasticsearch"
	"github.com/Uchennem/sleepoutsideServer/internal/repository/memory"
	"github.com/Uchennem/sleepoutsideServer/internal/repository/postgres"
	"github.com/Uchennem/sleepoutsideServer/migrations"
	"github.com/Uchennem/sleepoutsideServer/pkg/database"
	"github.com/Uchennem/sleepoutsideServer/pkg/health"
)

// Stores holds the product and user repositories selected by PRODUCT_STORE
// together with the clients backing them.
type Stores struct {
	Products repository.ProductRepository
	Users    repository.UserRepository

	pool *pgxpool.Pool
	es   *esrepo.ProductRepository
}

// OpenStores connects the configured backends. PostgreSQL is migrated on
// open; it backs users for every store except memory.
func OpenStores(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Stores, error) {
	if cfg.ProductStore == config.StoreMemory {
		logger.Warn("using in-memory stores, data is lost on restart")
		return &Stores{
			Products: memory.NewProductRepository(),
			Users:    memory.NewUserRepository(),
		}, nil
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if reg != nil {
		if err := database.RegisterPoolMetrics(reg, pool, ServiceName); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				pool.Close()
				return nil, fmt.Errorf("register pool metrics: %w", err)
			}
		}
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	s := &Stores{
		Products: postgres.NewProductRepository(pool),
		Users:    postgres.NewUserRepository(pool),
		pool:     pool,
	}

	if cfg.ProductStore == config.StoreElasticsearch {
		es, err := esrepo.New(ctx, esrepo.Config{
			Addresses: cfg.ElasticsearchURLs,
			Index:     cfg.ElasticsearchIndex,
			Username:  cfg.ElasticsearchUsername,
			Password:  cfg.ElasticsearchPassword,
		}, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init elasticsearch store: %w", err)
		}
		logger.Info("elasticsearch product store initialized",
			slog.Any("addresses", cfg.ElasticsearchURLs),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		s.Products = es
		s.es = es
	}

	return s, nil
}

// RegisterHealth adds readiness checks for every connected backend.
func (s *Stores) RegisterHealth(h *health.Handler) {
	if s.pool != nil {
		pool := s.pool
		h.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}
	if s.es != nil {
		h.RegisterCritical("elasticsearch", s.es.Ping)
	}
}

// Close releases the backend clients.
func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
