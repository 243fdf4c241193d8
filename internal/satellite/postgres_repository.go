package satellite

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

// NewPostgresRepository creates a PostgreSQL-backed satellite repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) InsertBatch(ctx context.Context, samples []*Sample) error {
	if len(samples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO satellite_aod_samples (satellite, location, aod, quality_tier, observed_at, ingested_at)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, $5, $6, NOW())`

	for _, s := range samples {
		batch.Queue(query, s.Satellite, s.Point.Lon, s.Point.Lat, s.AOD, s.QualityTier, s.ObservedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range samples {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert samples: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) NearestFresh(ctx context.Context, q NearestQuery) (*Candidate, error) {
	cutoff := time.Now().Add(-q.MaxAge)

	query := `
		SELECT id, satellite,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       aod, quality_tier, observed_at, ingested_at,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000.0 AS distance_km
		FROM satellite_aod_samples
		WHERE observed_at >= $3
		  AND quality_tier >= $4
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $5)
		ORDER BY distance_km ASC, observed_at DESC
		LIMIT 1`

	var c Candidate
	err := r.pool.QueryRow(ctx, query, q.Point.Lon, q.Point.Lat, cutoff, q.MinTier, q.RadiusKm*1000).Scan(
		&c.Sample.ID, &c.Sample.Satellite,
		&c.Sample.Point.Lat, &c.Sample.Point.Lon,
		&c.Sample.AOD, &c.Sample.QualityTier, &c.Sample.ObservedAt, &c.Sample.IngestedAt,
		&c.DistanceKm)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest sample: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) SamplesNear(ctx context.Context, p geo.Point, radiusKm float64, from, to time.Time) ([]*Sample, error) {
	query := `
		SELECT id, satellite,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       aod, quality_tier, observed_at, ingested_at
		FROM satellite_aod_samples
		WHERE observed_at >= $3
		  AND observed_at < $4
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $5)
		ORDER BY observed_at ASC`

	rows, err := r.pool.Query(ctx, query, p.Lon, p.Lat, from, to, radiusKm*1000)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.Satellite, &s.Point.Lat, &s.Point.Lon,
			&s.AOD, &s.QualityTier, &s.ObservedAt, &s.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM satellite_aod_samples WHERE observed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale samples: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Analyze refreshes planner statistics after a bulk delete so radius
// queries keep choosing the spatial index.
func (r *PostgresRepository) Analyze(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `ANALYZE satellite_aod_samples`); err != nil {
		return fmt.Errorf("failed to analyze samples table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (int64, time.Time, error) {
	query := `SELECT COUNT(*), COALESCE(MAX(observed_at), 'epoch'::timestamptz) FROM satellite_aod_samples`

	var count int64
	var latest time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&count, &latest); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to query sample stats: %w", err)
	}
	return count, latest, nil
}
