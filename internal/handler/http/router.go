package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Uchennem/sleepoutsideServer/internal/service"
	"github.com/Uchennem/sleepoutsideServer/pkg/health"
	"github.com/Uchennem/sleepoutsideServer/pkg/httputil"
	"github.com/Uchennem/sleepoutsideServer/pkg/middleware"
)

// ServiceName labels metrics and traces emitted by the HTTP layer.
const ServiceName = "sleepoutside"

// RouterConfig bundles the dependencies of NewRouter.
type RouterConfig struct {
	Catalog        *service.CatalogService
	Users          *service.UserService
	TokenValidator middleware.TokenValidator
	Health         *health.Handler
	CORS           middleware.CORSConfig
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(chimw.Compress(5))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	// Health check endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.LivenessHandler())
		r.Get("/health/ready", cfg.Health.ReadinessHandler())
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"title": "Home Page"})
	})

	productHandler := NewProductHandler(cfg.Catalog, logger)
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", productHandler.ListProducts)
		r.Get("/search", productHandler.SearchProducts)
		r.Get("/{id}", productHandler.GetProduct)
	})

	userHandler := NewUserHandler(cfg.Users, logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))
			r.Use(middleware.RequestLogger(logger))
			r.Get("/protected", userHandler.Protected)
		})
	})

	return r
}
