package fusion

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vayulabs/vayu/internal/calibration"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/telemetry"
	"github.com/vayulabs/vayu/internal/weather"
)

var tracer = otel.Tracer("github.com/vayulabs/vayu/internal/fusion")

// ServiceConfig holds configuration for the fusion service.
type ServiceConfig struct {
	Stations   station.Repository
	Satellites satellite.Repository

	// Weather enriches estimates with surface conditions and feeds the
	// calibration model.
	Weather *weather.Service

	// Calibrator converts raw optical depth to PM2.5. When it fails the
	// satellite path degrades to raw optical depth.
	Calibrator calibration.Calibrator

	// Cache is the fused result cache (default: NoopCache).
	Cache Cache

	// Logger for service operations.
	Logger zerolog.Logger

	// GroundMaxAge is the ground reading freshness window (default: 6h).
	GroundMaxAge time.Duration

	// SatelliteMaxAge is the satellite observation freshness window
	// (default: 24h).
	SatelliteMaxAge time.Duration

	// SatelliteRadiusMultiplier widens the query radius for the satellite
	// search, since grid points are sparser than stations (default: 5).
	SatelliteRadiusMultiplier float64

	// MinQuality is the minimum acceptable ground reading quality score
	// (default: 3).
	MinQuality int

	// MinSatelliteTier is the minimum acceptable satellite retrieval
	// quality tier (default: 1).
	MinSatelliteTier int
}

// Service fuses ground, satellite, and weather data into point estimates.
type Service struct {
	stations   station.Repository
	satellites satellite.Repository
	weather    *weather.Service
	calibrator calibration.Calibrator
	cache      Cache
	logger     zerolog.Logger

	cacheMetrics *telemetry.CacheMetrics

	groundMaxAge    time.Duration
	satelliteMaxAge time.Duration
	satRadiusMult   float64
	minQuality      int
	minSatTier      int
}

// NewService creates a new fusion service.
func NewService(cfg ServiceConfig) *Service {
	groundMaxAge := cfg.GroundMaxAge
	if groundMaxAge == 0 {
		groundMaxAge = 6 * time.Hour
	}

	satelliteMaxAge := cfg.SatelliteMaxAge
	if satelliteMaxAge == 0 {
		satelliteMaxAge = 24 * time.Hour
	}

	satRadiusMult := cfg.SatelliteRadiusMultiplier
	if satRadiusMult == 0 {
		satRadiusMult = 5
	}

	minQuality := cfg.MinQuality
	if minQuality == 0 {
		minQuality = 3
	}

	minSatTier := cfg.MinSatelliteTier
	if minSatTier == 0 {
		minSatTier = 1
	}

	cache := cfg.Cache
	if cache == nil {
		cache = NoopCache{}
	}

	cacheMetrics, err := telemetry.NewCacheMetrics()
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("cache instruments unavailable")
	}

	return &Service{
		stations:        cfg.Stations,
		satellites:      cfg.Satellites,
		weather:         cfg.Weather,
		calibrator:      cfg.Calibrator,
		cache:           cache,
		logger:          cfg.Logger,
		cacheMetrics:    cacheMetrics,
		groundMaxAge:    groundMaxAge,
		satelliteMaxAge: satelliteMaxAge,
		satRadiusMult:   satRadiusMult,
		minQuality:      minQuality,
		minSatTier:      minSatTier,
	}
}

// Fuse resolves a query into the best available estimate. Ground stations
// take precedence over satellite data; when neither can answer, the result
// carries SourceNone rather than an error. Store failures surface as
// ErrStoreUnavailable so callers can distinguish an outage from clean air
// over an unmonitored area.
func (s *Service) Fuse(ctx context.Context, q Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "fusion.resolve")
	defer span.End()

	if cached, ok := s.cache.Get(ctx, q); ok {
		s.cacheMetrics.RecordHit(ctx, "fusion")
		span.SetAttributes(attribute.Bool("fusion.cache_hit", true))
		return cached, nil
	}
	s.cacheMetrics.RecordMiss(ctx, "fusion")

	res, err := s.fromGround(ctx, q)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res, err = s.fromSatellite(ctx, q)
		if err != nil {
			return nil, err
		}
	}
	if res == nil {
		res = &Result{Source: SourceNone, GeneratedAt: time.Now().UTC()}
	}

	s.cache.Set(ctx, q, res)
	span.SetAttributes(
		attribute.String("fusion.source", string(res.Source)),
		attribute.String("fusion.confidence", string(res.Confidence)),
	)

	s.logger.Debug().
		Float64("lat", q.Point.Lat).
		Float64("lon", q.Point.Lon).
		Float64("radius_km", q.RadiusKm).
		Str("source", string(res.Source)).
		Msg("fused estimate")

	return res, nil
}
