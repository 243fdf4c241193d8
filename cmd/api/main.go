// Package main provides the entrypoint for the Vayu API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/api"
	"github.com/vayulabs/vayu/internal/api/middleware"
	"github.com/vayulabs/vayu/internal/calibration"
	"github.com/vayulabs/vayu/internal/database"
	"github.com/vayulabs/vayu/internal/fusion"
	"github.com/vayulabs/vayu/internal/monitoring"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/telemetry"
	"github.com/vayulabs/vayu/internal/trend"
	"github.com/vayulabs/vayu/internal/weather"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "vayu-api"

	// Local development reads settings from a .env file; deployed
	// environments inject them directly.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Vayu API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize repositories
	stationRepo := station.NewPostgresRepository(pool)
	satelliteRepo := satellite.NewPostgresRepository(pool)
	weatherRepo := weather.NewPostgresRepository(pool)

	// Fused result cache (optional; estimates are computed per request
	// when Redis is not configured)
	var cache fusion.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		ttl := 5 * time.Minute
		if raw := os.Getenv("FUSION_CACHE_TTL"); raw != "" {
			if parsed, parseErr := time.ParseDuration(raw); parseErr == nil {
				ttl = parsed
			}
		}
		redisClient := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		cache = fusion.NewRedisCache(redisClient, ttl)
		log.Info().Str("addr", addr).Dur("ttl", ttl).Msg("fusion cache enabled")
	}

	// Calibration model endpoint
	var calibrator calibration.Calibrator
	if baseURL := os.Getenv("CALIBRATION_URL"); baseURL != "" {
		calibrator = calibration.NewClient(calibration.ClientConfig{
			BaseURL: baseURL,
			Logger:  log,
		})
		log.Info().Str("url", baseURL).Msg("calibration client initialized")
	} else {
		log.Warn().Msg("calibration not configured - satellite estimates will serve raw optical depth")
	}

	// Initialize services
	weatherService := weather.NewService(weather.ServiceConfig{
		Repository: weatherRepo,
		Logger:     log,
	})
	fusionService := fusion.NewService(fusion.ServiceConfig{
		Stations:   stationRepo,
		Satellites: satelliteRepo,
		Weather:    weatherService,
		Calibrator: calibrator,
		Cache:      cache,
		Logger:     log,
	})
	trendService := trend.NewService(trend.ServiceConfig{
		Stations: stationRepo,
		Logger:   log,
	})

	staleAfter := 48 * time.Hour
	if raw := os.Getenv("MONITORING_STALE_AFTER_HOURS"); raw != "" {
		if hours, parseErr := strconv.Atoi(raw); parseErr == nil && hours > 0 {
			staleAfter = time.Duration(hours) * time.Hour
		}
	}
	monitoringService := monitoring.NewService(monitoring.ServiceConfig{
		Stations:   stationRepo,
		Satellites: satelliteRepo,
		Weather:    weatherRepo,
		Calibrator: calibrator,
		Logger:     log,
		StaleAfter: staleAfter,
	})
	log.Info().Msg("services initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		Logger:            log,
		ServiceName:       serviceName,
		Metrics:           metrics,
		DB:                pool,
		FusionService:     fusionService,
		TrendService:      trendService,
		StationRepository: stationRepo,
		MonitoringService: monitoringService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
