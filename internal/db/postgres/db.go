// Package postgres implements db.Store on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool and applies the schema.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{pool: pool}
	if err := d.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

// Migrate creates tables and indexes that do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection pool.
func (d *DB) Close(context.Context) error {
	d.pool.Close()
	return nil
}

// Pool returns the underlying connection pool for advanced operations.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// Songs returns a SongRepository.
func (d *DB) Songs() db.SongRepository {
	return &SongRepository{pool: d.pool}
}

// Preferences returns a PreferenceRepository.
func (d *DB) Preferences() db.PreferenceRepository {
	return &PreferenceRepository{pool: d.pool}
}

// Questionnaires returns a QuestionnaireRepository.
func (d *DB) Questionnaires() db.QuestionnaireRepository {
	return &QuestionnaireRepository{pool: d.pool}
}

// Recommendations returns a RecommendationRepository.
func (d *DB) Recommendations() db.RecommendationRepository {
	return &RecommendationRepository{pool: d.pool}
}

// nullable maps "" to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// deref maps SQL NULL to "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
