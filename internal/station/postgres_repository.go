package station

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vayulabs/vayu/internal/geo"
)

// PostgresRepository implements Repository backed by PostgreSQL with PostGIS.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a PostgreSQL-backed station repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *Station) error {
	query := `
		INSERT INTO ground_stations (id, station_id, city, state, location, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, TRUE, NOW(), NOW())
		ON CONFLICT (station_id) DO UPDATE SET
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			location = EXCLUDED.location,
			active = TRUE,
			updated_at = NOW()
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		s.ID, s.StationID, s.City, s.State, s.Point.Lon, s.Point.Lat).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert station: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, stationID string) error {
	query := `UPDATE ground_stations SET active = FALSE, updated_at = NOW() WHERE station_id = $1`

	tag, err := r.pool.Exec(ctx, query, stationID)
	if err != nil {
		return fmt.Errorf("failed to deactivate station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStationNotFound
	}
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Station, error) {
	query := `
		SELECT id, station_id, city, state,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       active, created_at, updated_at
		FROM ground_stations
		WHERE active
		ORDER BY station_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()

	var stations []*Station
	for rows.Next() {
		var s Station
		if err := rows.Scan(&s.ID, &s.StationID, &s.City, &s.State,
			&s.Point.Lat, &s.Point.Lon, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, &s)
	}
	return stations, rows.Err()
}

func (r *PostgresRepository) InsertReadings(ctx context.Context, readings []*Reading) error {
	if len(readings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO station_readings
			(station_ref, pm25, pm10, no2, so2, co, o3, pollutant_index, quality_score, recorded_at, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`

	for _, rd := range readings {
		batch.Queue(query, rd.StationRef, rd.PM25, rd.PM10, rd.NO2, rd.SO2,
			rd.CO, rd.O3, rd.PollutantIndex, rd.QualityScore, rd.RecordedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range readings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert readings: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) NearestQualified(ctx context.Context, q NearestQuery) (*Candidate, error) {
	cutoff := time.Now().Add(-q.MaxAge)

	query := `
		SELECT gs.id, gs.station_id, gs.city, gs.state,
		       ST_Y(gs.location::geometry), ST_X(gs.location::geometry),
		       gs.active, gs.created_at, gs.updated_at,
		       sr.id, sr.pm25, sr.pm10, sr.no2, sr.so2, sr.co, sr.o3,
		       sr.pollutant_index, sr.quality_score, sr.recorded_at, sr.ingested_at,
		       ST_Distance(gs.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000.0 AS distance_km
		FROM ground_stations gs
		JOIN LATERAL (
			SELECT *
			FROM station_readings r
			WHERE r.station_ref = gs.id
			  AND r.recorded_at >= $3
			  AND r.quality_score >= $4
			ORDER BY r.recorded_at DESC
			LIMIT 1
		) sr ON TRUE
		WHERE gs.active
		  AND ST_DWithin(gs.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $5)
		ORDER BY distance_km ASC, sr.recorded_at DESC
		LIMIT 1`

	var c Candidate
	err := r.pool.QueryRow(ctx, query,
		q.Point.Lon, q.Point.Lat, cutoff, q.MinQuality, q.RadiusKm*1000).Scan(
		&c.Station.ID, &c.Station.StationID, &c.Station.City, &c.Station.State,
		&c.Station.Point.Lat, &c.Station.Point.Lon,
		&c.Station.Active, &c.Station.CreatedAt, &c.Station.UpdatedAt,
		&c.Reading.ID, &c.Reading.PM25, &c.Reading.PM10, &c.Reading.NO2,
		&c.Reading.SO2, &c.Reading.CO, &c.Reading.O3,
		&c.Reading.PollutantIndex, &c.Reading.QualityScore,
		&c.Reading.RecordedAt, &c.Reading.IngestedAt,
		&c.DistanceKm)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest station: %w", err)
	}
	c.Reading.StationRef = c.Station.ID
	return &c, nil
}

func (r *PostgresRepository) ReadingsInRange(ctx context.Context, stationRef string, from, to time.Time, minQuality int) ([]*Reading, error) {
	query := `
		SELECT id, station_ref, pm25, pm10, no2, so2, co, o3,
		       pollutant_index, quality_score, recorded_at, ingested_at
		FROM station_readings
		WHERE station_ref = $1
		  AND recorded_at >= $2
		  AND recorded_at < $3
		  AND quality_score >= $4
		ORDER BY recorded_at ASC`

	rows, err := r.pool.Query(ctx, query, stationRef, from, to, minQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func (r *PostgresRepository) IndexedReadingsNear(ctx context.Context, p geo.Point, radiusKm float64, since time.Time) ([]*Reading, error) {
	query := `
		SELECT sr.id, sr.station_ref, sr.pm25, sr.pm10, sr.no2, sr.so2, sr.co, sr.o3,
		       sr.pollutant_index, sr.quality_score, sr.recorded_at, sr.ingested_at
		FROM station_readings sr
		JOIN ground_stations gs ON gs.id = sr.station_ref
		WHERE gs.active
		  AND sr.pollutant_index IS NOT NULL
		  AND sr.recorded_at >= $3
		  AND ST_DWithin(gs.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $4)
		ORDER BY sr.recorded_at ASC`

	rows, err := r.pool.Query(ctx, query, p.Lon, p.Lat, since, radiusKm*1000)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexed readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func (r *PostgresRepository) Stats(ctx context.Context) (int64, time.Time, error) {
	query := `SELECT COUNT(*), COALESCE(MAX(recorded_at), 'epoch'::timestamptz) FROM station_readings`

	var count int64
	var latest time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&count, &latest); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to query reading stats: %w", err)
	}
	return count, latest, nil
}

func scanReadings(rows pgx.Rows) ([]*Reading, error) {
	var readings []*Reading
	for rows.Next() {
		var rd Reading
		if err := rows.Scan(&rd.ID, &rd.StationRef, &rd.PM25, &rd.PM10, &rd.NO2,
			&rd.SO2, &rd.CO, &rd.O3, &rd.PollutantIndex, &rd.QualityScore,
			&rd.RecordedAt, &rd.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, &rd)
	}
	return readings, rows.Err()
}
