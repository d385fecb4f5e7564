package app

import (
	"context"
	"slices"
	"testing"

	"github.com/justestif/go-spotify-taste-engine/internal/config"
	"github.com/justestif/go-spotify-taste-engine/internal/db/memory"
	"github.com/justestif/go-spotify-taste-engine/internal/importer"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, config.StoreConfig{Driver: config.DriverMemory})
	if err != nil {
		t.Fatalf("memory driver: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Errorf("got %T, want *memory.Store", store)
	}
	if err := store.Close(ctx); err != nil {
		t.Errorf("Close() = %v", err)
	}

	if _, err := OpenStore(ctx, config.StoreConfig{Driver: "sqlite"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestGenres(t *testing.T) {
	if got := Genres(config.ImporterConfig{}); !slices.Equal(got, importer.SupportedGenres()) {
		t.Errorf("Genres() = %v, want supported genres", got)
	}
	want := []string{"jazz", "rock"}
	if got := Genres(config.ImporterConfig{Genres: want}); !slices.Equal(got, want) {
		t.Errorf("Genres() = %v, want %v", got, want)
	}
}

func TestImporterOptions(t *testing.T) {
	opts := ImporterOptions(config.ImporterConfig{BatchSize: 10, MaxRetries: 1, MaxEmptyBatches: 2})
	if len(opts) != 5 {
		t.Errorf("got %d options, want 5", len(opts))
	}
}
