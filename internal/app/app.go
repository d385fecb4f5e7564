// Package app builds the shared pieces both commands start from.
package app

import (
	"context"
	"fmt"

	"github.com/justestif/go-spotify-taste-engine/internal/config"
	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/db/memory"
	"github.com/justestif/go-spotify-taste-engine/internal/db/mongo"
	"github.com/justestif/go-spotify-taste-engine/internal/db/postgres"
	"github.com/justestif/go-spotify-taste-engine/internal/importer"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
)

// InitLogging configures the global logger from cfg.
func InitLogging(cfg config.LogConfig) {
	lc := logging.DefaultConfig()
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	lc.Caller = cfg.Caller
	logging.Init(lc)
}

// OpenStore connects to the configured backend. The caller owns the store
// and must Close it.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("opening mongo store: %w", err)
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		logging.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// ImporterOptions translates importer settings into importer options.
func ImporterOptions(cfg config.ImporterConfig) []importer.Option {
	return []importer.Option{
		importer.WithBatchSize(cfg.BatchSize),
		importer.WithDelay(cfg.Delay),
		importer.WithRetryDelay(cfg.RetryDelay),
		importer.WithMaxRetries(cfg.MaxRetries),
		importer.WithMaxEmptyBatches(cfg.MaxEmptyBatches),
	}
}

// Genres returns the configured genres, or every supported genre when none
// are configured.
func Genres(cfg config.ImporterConfig) []string {
	if len(cfg.Genres) == 0 {
		return importer.SupportedGenres()
	}
	return cfg.Genres
}
