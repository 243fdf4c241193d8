package fusion

import (
	"context"
	"fmt"
	"time"

	"github.com/vayulabs/vayu/internal/calibration"
	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/weather"
)

// fromSatellite resolves the query against satellite optical depth,
// searching a widened radius. A fresh sample is calibrated to PM2.5 when
// the calibration endpoint answers; otherwise the raw optical depth is
// served with an explicit fallback marker.
func (s *Service) fromSatellite(ctx context.Context, q Query) (*Result, error) {
	c, err := s.satellites.NearestFresh(ctx, satellite.NearestQuery{
		Point:    q.Point,
		RadiusKm: q.RadiusKm * s.satRadiusMult,
		MaxAge:   s.satelliteMaxAge,
		MinTier:  s.minSatTier,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if c == nil {
		return nil, nil
	}

	aod := c.Sample.AOD
	res := &Result{
		AOD:         &aod,
		QualityTier: c.Sample.QualityTier,
		Satellite:   c.Sample.Satellite,
		DistanceKm:  geo.RoundKm(c.DistanceKm),
		ObservedAt:  c.Sample.ObservedAt,
		GeneratedAt: time.Now().UTC(),
	}

	var cond *weather.Conditions
	if s.weather != nil {
		cond, err = s.weather.Enrich(ctx, q.Point, q.RadiusKm, c.Sample.ObservedAt)
		if err != nil {
			s.logger.Warn().Err(err).Msg("weather enrichment failed")
			cond = nil
		}
	}
	res.Weather = cond

	in := calibration.Input{
		SatelliteAOD: aod,
		MinTemp:      calibration.DefaultMinTemp,
		MaxTemp:      calibration.DefaultMaxTemp,
		Rainfall:     calibration.DefaultRainfall,
	}
	if cond != nil {
		in.MinTemp = cond.MinTemp
		in.MaxTemp = cond.MaxTemp
		in.Rainfall = cond.Rainfall
	}

	if s.calibrator == nil {
		res.Source = SourceSatelliteRaw
		res.Confidence = ConfidenceLow
		res.CalibrationFallback = true
		return res, nil
	}

	est, err := s.calibrator.Calibrate(ctx, in)
	if err != nil {
		s.logger.Warn().Err(err).Msg("calibration unavailable, serving raw optical depth")
		res.Source = SourceSatelliteRaw
		res.Confidence = ConfidenceLow
		res.CalibrationFallback = true
		return res, nil
	}

	res.Source = SourceSatelliteCalibrated
	res.Confidence = calibratedConfidence(est.Confidence)
	res.PM25 = &est.CalibratedPM25
	res.ModelVersion = est.ModelVersion
	return res, nil
}

func calibratedConfidence(modelConfidence float64) Confidence {
	if modelConfidence >= 0.75 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}
