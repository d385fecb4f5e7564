package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names a YAML config file explicitly.
const ConfigPathEnvVar = "TASTE_CONFIG_PATH"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"/etc/taste-engine/config.yaml",
}

// DotEnvFiles are loaded into the process environment before the env layer.
// Variables already set are not overwritten.
var DotEnvFiles = []string{".env.local", ".env"}

// envMappings maps environment variable names to koanf paths.
var envMappings = map[string]string{
	"server_addr":       "server.addr",
	"server_rate_limit": "server.rate_limit",

	"log_level":  "log.level",
	"log_format": "log.format",
	"log_caller": "log.caller",

	"store_driver":     "store.driver",
	"mongodb_uri":      "store.mongo_uri",
	"mongodb_database": "store.mongo_database",
	"database_url":     "store.postgres_url",

	"spotify_id":     "spotify.client_id",
	"spotify_secret": "spotify.client_secret",
	"spotify_market": "spotify.market",

	"import_quota":             "importer.quota",
	"import_batch_size":        "importer.batch_size",
	"import_delay":             "importer.delay",
	"import_retry_delay":       "importer.retry_delay",
	"import_max_retries":       "importer.max_retries",
	"import_max_empty_batches": "importer.max_empty_batches",
	"import_genres":            "importer.genres",

	"auth_jwt_secret": "auth.jwt_secret",
	"auth_audience":   "auth.audience",

	"ml_service_url": "ml.url",
	"ml_timeout":     "ml.timeout",

	"recommend_min_liked": "recommend.min_liked",
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"importer.genres",
}

// Load builds the configuration: defaults, then the optional YAML file, then
// environment variables.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDotEnv() error {
	for _, name := range DotEnvFiles {
		err := godotenv.Load(name)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("loading %s: %w", name, err)
	}
	return nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unknown variables map to "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}
