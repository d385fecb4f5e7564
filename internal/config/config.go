// Package config loads taste-engine configuration from defaults, an optional
// YAML file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Importer  ImporterConfig  `koanf:"importer"`
	Auth      AuthConfig      `koanf:"auth"`
	ML        MLConfig        `koanf:"ml"`
	Recommend RecommendConfig `koanf:"recommend"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `koanf:"addr"`
	RateLimit int    `koanf:"rate_limit"` // requests per minute per IP
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver        string `koanf:"driver"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`
	PostgresURL   string `koanf:"postgres_url"`
}

// SpotifyConfig holds catalog API credentials.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	Market       string `koanf:"market"`
}

// ImporterConfig tunes the catalog importer.
type ImporterConfig struct {
	Quota           int           `koanf:"quota"`
	BatchSize       int           `koanf:"batch_size"`
	Delay           time.Duration `koanf:"delay"`
	RetryDelay      time.Duration `koanf:"retry_delay"`
	MaxRetries      int           `koanf:"max_retries"`
	MaxEmptyBatches int           `koanf:"max_empty_batches"`
	Genres          []string      `koanf:"genres"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Audience  string `koanf:"audience"`
}

// MLConfig points at the external ML service. An empty URL disables it.
type MLConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// RecommendConfig tunes recommendation generation.
type RecommendConfig struct {
	MinLiked int `koanf:"min_liked"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			RateLimit: 120,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:        DriverMongo,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "spotify_tracker",
		},
		Spotify: SpotifyConfig{
			Market: "US",
		},
		Importer: ImporterConfig{
			Quota:           500,
			BatchSize:       50,
			Delay:           time.Second,
			RetryDelay:      5 * time.Second,
			MaxRetries:      5,
			MaxEmptyBatches: 5,
		},
		Auth: AuthConfig{
			Audience: "authenticated",
		},
		ML: MLConfig{
			Timeout: 10 * time.Second,
		},
		Recommend: RecommendConfig{
			MinLiked: 50,
		},
	}
}

// Validate checks settings every command needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo store"))
		}
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	if c.Importer.BatchSize <= 0 || c.Importer.BatchSize > 50 {
		errs = append(errs, fmt.Errorf("IMPORT_BATCH_SIZE must be between 1 and 50, got %d", c.Importer.BatchSize))
	}
	if c.Importer.Quota <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_QUOTA must be positive, got %d", c.Importer.Quota))
	}
	if c.Importer.MaxRetries < 0 || c.Importer.MaxEmptyBatches <= 0 {
		errs = append(errs, errors.New("IMPORT_MAX_RETRIES must be >= 0 and IMPORT_MAX_EMPTY_BATCHES > 0"))
	}
	if c.Recommend.MinLiked < 0 {
		errs = append(errs, fmt.Errorf("RECOMMEND_MIN_LIKED must be >= 0, got %d", c.Recommend.MinLiked))
	}

	return errors.Join(errs...)
}

// ValidateServer checks settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	return nil
}

// ValidateImporter checks settings only the importer needs.
func (c *Config) ValidateImporter() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return errors.New("please set SPOTIFY_ID and SPOTIFY_SECRET environment variables")
	}
	return nil
}
