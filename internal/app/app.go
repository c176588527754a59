// Package app wires configuration, storage, services and the HTTP server
// into a runnable storefront API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Uchennem/sleepoutsideServer/internal/auth"
	"github.com/Uchennem/sleepoutsideServer/internal/config"
	"github.com/Uchennem/sleepoutsideServer/internal/event"
	handler "github.com/Uchennem/sleepoutsideServer/internal/handler/http"
	"github.com/Uchennem/sleepoutsideServer/internal/service"
	"github.com/Uchennem/sleepoutsideServer/pkg/health"
	pkgkafka "github.com/Uchennem/sleepoutsideServer/pkg/kafka"
	"github.com/Uchennem/sleepoutsideServer/pkg/tracing"
)

// ServiceName identifies the server in logs, metrics and traces.
const ServiceName = handler.ServiceName

// App wires together all dependencies and runs the storefront API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	stores         *Stores
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	stores, err := OpenStores(ctx, cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	// Kafka is optional; without it registrations publish nothing.
	var (
		producer *pkgkafka.Producer
		sender   event.Sender
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		sender = producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, logins will fail")
	}
	catalog := service.NewCatalogService(stores.Products, cfg.Policy(), logger)
	users := service.NewUserService(
		stores.Users,
		auth.NewPasswordHasher(cfg.BcryptCost),
		tokens,
		event.NewProducer(sender, logger),
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	stores.RegisterHealth(healthHandler)
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Catalog:        catalog,
		Users:          users,
		TokenValidator: tokens.TokenValidator(),
		Health:         healthHandler,
		CORS:           cfg.CORS(),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		stores:         stores,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("product_store", a.cfg.ProductStore),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, storage clients.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans after the drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.stores.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
