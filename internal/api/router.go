package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/api/middleware"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/config"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/handlers"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/store"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/tracking"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, logger zerolog.Logger, db store.DataStore, redisStore *store.RedisStore, registry *tracking.Registry) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (skipped entirely when Redis is absent)
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger, cfg.RateLimitWhitelist)
		r.Use(limiter.Middleware)
	}

	// CORS - devices and dashboards connect from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(db, redisStore, registry, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Identity
	r.Post("/register", h.Register)
	r.Get("/agents/{id}", h.GetAgent)

	// Alert lifecycle
	r.Post("/alerts", h.CreateAlert)
	r.Get("/alerts", h.ListAlerts)
	r.Get("/alerts/history", h.AlertHistory)
	r.Get("/alerts/{id}", h.GetAlert)
	r.Post("/alerts/{id}/assign", h.AssignAgent)
	r.Post("/alerts/{id}/cancel", h.CancelAlert)
	r.Get("/alerts/{id}/messages", h.AlertMessages)

	// Dashboard stats
	r.Get("/stats", h.Stats)

	// Tracking socket
	r.Get("/ws", ws.Handler(registry, cfg.Tuning.SendBuffer, logger))

	return r
}
