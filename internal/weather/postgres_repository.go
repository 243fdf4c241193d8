package weather

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

// NewPostgresRepository creates a PostgreSQL-backed weather repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Insert(ctx context.Context, samples []*Sample) error {
	if len(samples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO weather_samples (station_name, location, date, min_temp, max_temp, rainfall,
		                             humidity, wind_speed, wind_direction, pressure, ingested_at)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (station_name, date) DO UPDATE SET
			min_temp = EXCLUDED.min_temp,
			max_temp = EXCLUDED.max_temp,
			rainfall = EXCLUDED.rainfall,
			humidity = EXCLUDED.humidity,
			wind_speed = EXCLUDED.wind_speed,
			wind_direction = EXCLUDED.wind_direction,
			pressure = EXCLUDED.pressure,
			ingested_at = NOW()`

	for _, s := range samples {
		batch.Queue(query, s.StationName, s.Point.Lon, s.Point.Lat,
			DayOf(s.Date), s.MinTemp, s.MaxTemp, s.Rainfall,
			s.Humidity, s.WindSpeed, s.WindDirection, s.Pressure)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range samples {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert weather samples: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Nearest(ctx context.Context, q NearestQuery) (*Candidate, error) {
	day := DayOf(q.Date)
	lag := time.Duration(q.MaxDayLag) * 24 * time.Hour

	query := `
		SELECT id, station_name,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       date, min_temp, max_temp, rainfall,
		       humidity, wind_speed, wind_direction, pressure, ingested_at,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000.0 AS distance_km
		FROM weather_samples
		WHERE date >= $3
		  AND date <= $4
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $5)
		ORDER BY distance_km ASC, ABS(EXTRACT(EPOCH FROM date - $6::timestamptz)) ASC
		LIMIT 1`

	var c Candidate
	err := r.pool.QueryRow(ctx, query,
		q.Point.Lon, q.Point.Lat, day.Add(-lag), day.Add(lag), q.RadiusKm*1000, day).Scan(
		&c.Sample.ID, &c.Sample.StationName,
		&c.Sample.Point.Lat, &c.Sample.Point.Lon,
		&c.Sample.Date, &c.Sample.MinTemp, &c.Sample.MaxTemp, &c.Sample.Rainfall,
		&c.Sample.Humidity, &c.Sample.WindSpeed, &c.Sample.WindDirection, &c.Sample.Pressure,
		&c.Sample.IngestedAt, &c.DistanceKm)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest weather sample: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) ForRange(ctx context.Context, p geo.Point, radiusKm float64, from, to time.Time) ([]*Sample, error) {
	query := `
		SELECT id, station_name,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       date, min_temp, max_temp, rainfall,
		       humidity, wind_speed, wind_direction, pressure, ingested_at
		FROM weather_samples
		WHERE date >= $3
		  AND date < $4
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $5)
		ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query, p.Lon, p.Lat, from, to, radiusKm*1000)
	if err != nil {
		return nil, fmt.Errorf("failed to query weather samples: %w", err)
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.StationName, &s.Point.Lat, &s.Point.Lon,
			&s.Date, &s.MinTemp, &s.MaxTemp, &s.Rainfall,
			&s.Humidity, &s.WindSpeed, &s.WindDirection, &s.Pressure, &s.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weather sample: %w", err)
		}
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}

func (r *PostgresRepository) Stats(ctx context.Context) (int64, time.Time, error) {
	query := `SELECT COUNT(*), COALESCE(MAX(date), 'epoch'::timestamptz) FROM weather_samples`

	var count int64
	var latest time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&count, &latest); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to query weather stats: %w", err)
	}
	return count, latest, nil
}
