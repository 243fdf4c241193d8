// Package main provides the entrypoint for the Vayu background worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/calibration"
	"github.com/vayulabs/vayu/internal/database"
	"github.com/vayulabs/vayu/internal/ingest"
	"github.com/vayulabs/vayu/internal/ingest/cpcb"
	"github.com/vayulabs/vayu/internal/ingest/imd"
	"github.com/vayulabs/vayu/internal/ingest/isro"
	"github.com/vayulabs/vayu/internal/maintenance"
	"github.com/vayulabs/vayu/internal/monitoring"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/telemetry"
	"github.com/vayulabs/vayu/internal/trainingset"
	"github.com/vayulabs/vayu/internal/weather"
	"github.com/vayulabs/vayu/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "vayu-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Vayu worker")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Repositories
	stationRepo := station.NewPostgresRepository(pool)
	satelliteRepo := satellite.NewPostgresRepository(pool)
	weatherRepo := weather.NewPostgresRepository(pool)

	// Feed clients
	groundFeed := cpcb.NewClient(cpcb.ClientConfig{
		BaseURL: os.Getenv("CPCB_BASE_URL"),
		APIKey:  os.Getenv("CPCB_API_KEY"),
		Logger:  log,
	})
	satelliteFeed := isro.NewClient(isro.ClientConfig{
		BaseURL: os.Getenv("ISRO_BASE_URL"),
		Logger:  log,
	})
	weatherFeed := imd.NewClient(imd.ClientConfig{
		BaseURL: os.Getenv("IMD_BASE_URL"),
		Logger:  log,
	})

	var calibrator calibration.Calibrator
	if baseURL := os.Getenv("CALIBRATION_URL"); baseURL != "" {
		calibrator = calibration.NewClient(calibration.ClientConfig{
			BaseURL: baseURL,
			Logger:  log,
		})
	}

	// Services
	ingestService := ingest.NewService(ingest.ServiceConfig{
		Stations:      stationRepo,
		Satellites:    satelliteRepo,
		Weather:       weatherRepo,
		Ground:        groundFeed,
		SatelliteFeed: satelliteFeed,
		WeatherFeed:   weatherFeed,
		Logger:        log,
	})
	maintenanceService := maintenance.NewService(maintenance.ServiceConfig{
		Satellites: satelliteRepo,
		Logger:     log,
	})
	monitoringService := monitoring.NewService(monitoring.ServiceConfig{
		Stations:   stationRepo,
		Satellites: satelliteRepo,
		Weather:    weatherRepo,
		Calibrator: calibrator,
		Logger:     log,
	})
	weatherService := weather.NewService(weather.ServiceConfig{
		Repository: weatherRepo,
		Logger:     log,
	})
	trainingBuilder := trainingset.NewBuilder(trainingset.BuilderConfig{
		Stations:   stationRepo,
		Satellites: satelliteRepo,
		Weather:    weatherService,
		Logger:     log,
	})

	runner := worker.NewRunner(worker.RunnerConfig{
		Config: worker.Config{
			TrainingSetDir: os.Getenv("TRAININGSET_DIR"),
		},
		Logger:      log,
		Ingest:      ingestService,
		Maintenance: maintenanceService,
		Monitoring:  monitoringService,
		TrainingSet: trainingBuilder,
	})

	// Health endpoint for the platform's liveness probe, with job metrics
	// for quick inspection.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"metrics": runner.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub trigger, when configured. The scheduled loop below runs
	// either way, so a missing subscription just means no on-demand jobs.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		handler, psErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Runner:           runner,
			Logger:           log,
		})
		if psErr != nil {
			log.Fatal().Err(psErr).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if recvErr := handler.Start(ctx); recvErr != nil && ctx.Err() == nil {
				log.Error().Err(recvErr).Msg("pubsub receive stopped")
			}
		}()
	} else {
		log.Warn().Msg("pubsub not configured - running on schedule only")
	}

	// Scheduled loop
	go runner.Start(ctx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
