// Package api provides the HTTP API for Vayu.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/api/handler"
	"github.com/vayulabs/vayu/internal/api/middleware"
	"github.com/vayulabs/vayu/internal/fusion"
	"github.com/vayulabs/vayu/internal/monitoring"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/trend"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version           string
	BuildTime         string
	Logger            zerolog.Logger
	ServiceName       string
	Metrics           *middleware.Metrics
	DB                handler.Pinger
	FusionService     *fusion.Service
	TrendService      *trend.Service
	StationRepository station.Repository
	MonitoringService *monitoring.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "vayu-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB, cfg.MonitoringService)
	airQualityHandler := handler.NewAirQualityHandler(cfg.FusionService, cfg.TrendService, cfg.StationRepository)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Fused estimates hit the database and possibly the calibration
		// provider, so they get the strict limit.
		r.Route("/air-quality", func(r chi.Router) {
			r.With(expensiveRateLimit).Get("/", airQualityHandler.GetEstimate)
			r.With(expensiveRateLimit).Get("/trend", airQualityHandler.GetTrend)
		})

		// Station metadata (public) - standard rate limiting
		r.With(standardRateLimit).Get("/stations", airQualityHandler.ListStations)
	})

	return r
}
