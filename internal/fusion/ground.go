package fusion

import (
	"context"
	"fmt"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/station"
)

// fromGround resolves the query against ground stations. Returns nil when
// no station within the radius has a fresh reading of acceptable quality.
func (s *Service) fromGround(ctx context.Context, q Query) (*Result, error) {
	c, err := s.stations.NearestQualified(ctx, station.NearestQuery{
		Point:      q.Point,
		RadiusKm:   q.RadiusKm,
		MaxAge:     s.groundMaxAge,
		MinQuality: s.minQuality,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if c == nil {
		return nil, nil
	}

	// A qualified ground reading always carries maximum confidence; the
	// quality score travels alongside so callers can still see it.
	res := &Result{
		Source:         SourceGround,
		Confidence:     ConfidenceHigh,
		PM25:           c.Reading.PM25,
		PollutantIndex: c.Reading.PollutantIndex,
		Pollutants: &Pollutants{
			PM25: c.Reading.PM25,
			PM10: c.Reading.PM10,
			NO2:  c.Reading.NO2,
			SO2:  c.Reading.SO2,
			CO:   c.Reading.CO,
			O3:   c.Reading.O3,
		},
		QualityScore: c.Reading.QualityScore,
		StationID:    c.Station.StationID,
		DistanceKm:   geo.RoundKm(c.DistanceKm),
		ObservedAt:   c.Reading.RecordedAt,
		GeneratedAt:  time.Now().UTC(),
	}

	if s.weather != nil {
		cond, err := s.weather.Enrich(ctx, q.Point, q.RadiusKm, c.Reading.RecordedAt)
		if err != nil {
			// Weather is decoration on the ground path; the reading
			// stands on its own.
			s.logger.Warn().Err(err).Msg("weather enrichment failed")
		} else {
			res.Weather = cond
		}
	}

	return res, nil
}
