package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	zspotify "github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/db/memory"
	"github.com/justestif/go-spotify-taste-engine/internal/spotify"
)

// mockCatalog implements Catalog for testing.
type mockCatalog struct {
	calls   atomic.Int32
	mu      sync.Mutex
	offsets []int
	search  func(genre string, limit, offset int) ([]spotify.Track, error)
}

func (m *mockCatalog) SearchGenre(_ context.Context, genre string, limit, offset int) ([]spotify.Track, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.offsets = append(m.offsets, offset)
	m.mu.Unlock()
	return m.search(genre, limit, offset)
}

// pages returns tracks "<genre>-<n>" for n in [offset, offset+limit), up to total.
func pages(total int) func(genre string, limit, offset int) ([]spotify.Track, error) {
	return func(genre string, limit, offset int) ([]spotify.Track, error) {
		var tracks []spotify.Track
		for i := offset; i < offset+limit && i < total; i++ {
			tracks = append(tracks, track(fmt.Sprintf("%s-%d", genre, i), 50))
		}
		return tracks, nil
	}
}

func track(id string, popularity int) spotify.Track {
	return spotify.Track{
		ID:         id,
		Name:       "Song " + id,
		Artists:    []spotify.Artist{{ID: "artist-" + id, Name: "Artist"}},
		Album:      spotify.Album{ID: "album", Name: "Album", Images: []spotify.Image{{URL: "https://img/" + id, Height: 64, Width: 64}}},
		Popularity: popularity,
	}
}

func newTestService(store db.Store, catalog Catalog, opts ...Option) *Service {
	base := []Option{WithDelay(0), WithRetryDelay(0)}
	return New(store, catalog, append(base, opts...)...)
}

func TestImportGenre_TrimsLastPageToQuota(t *testing.T) {
	store := memory.New()
	catalog := &mockCatalog{search: pages(100)}
	svc := newTestService(store, catalog, WithBatchSize(4))

	result, err := svc.ImportGenre(context.Background(), "pop", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Fetches != 3 {
		t.Errorf("Fetches = %d, want 3", result.Fetches)
	}
	if result.Imported != 10 {
		t.Errorf("Imported = %d, want 10", result.Imported)
	}
	count, _ := store.Songs().CountByGenre(context.Background(), "pop")
	if count != 10 {
		t.Errorf("stored pop songs = %d, want 10", count)
	}
	if want := []int{0, 4, 8}; fmt.Sprint(catalog.offsets) != fmt.Sprint(want) {
		t.Errorf("offsets = %v, want %v", catalog.offsets, want)
	}
}

func TestImportGenre_StoresGenreFeatures(t *testing.T) {
	store := memory.New()
	imported := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, &mockCatalog{search: pages(1)},
		WithClock(func() time.Time { return imported }),
		WithMaxEmptyBatches(1))

	if _, err := svc.ImportGenre(context.Background(), "techno", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	songs, err := store.Songs().GetMany(context.Background(), []string{"techno-0"})
	if err != nil || len(songs) != 1 {
		t.Fatalf("GetMany = %v, %v", songs, err)
	}
	song := songs[0]
	if song.Genre != "techno" || !song.ImportedAt.Equal(imported) {
		t.Errorf("genre = %q importedAt = %v", song.Genre, song.ImportedAt)
	}
	if song.AudioFeatures != FeaturesForGenre("techno") {
		t.Errorf("features = %+v, want techno profile", song.AudioFeatures)
	}
	if song.CoverURL() != "https://img/techno-0" {
		t.Errorf("CoverURL() = %q", song.CoverURL())
	}
}

func TestImportGenre_QuotaAlreadyMet(t *testing.T) {
	store := memory.New()
	existing := make([]db.Song, 10)
	for i := range existing {
		existing[i] = db.Song{ID: fmt.Sprintf("old-%d", i), Genre: "pop"}
	}
	if _, err := store.Songs().InsertMany(context.Background(), existing); err != nil {
		t.Fatal(err)
	}

	catalog := &mockCatalog{search: pages(100)}
	svc := newTestService(store, catalog)

	result, err := svc.ImportGenre(context.Background(), "pop", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Skipped || result.Existing != 10 {
		t.Errorf("result = %+v, want skipped with 10 existing", result)
	}
	if got := catalog.calls.Load(); got != 0 {
		t.Errorf("catalog calls = %d, want 0", got)
	}
}

func TestImportGenre_ClientErrorAbandonsGenre(t *testing.T) {
	catalog := &mockCatalog{search: func(string, int, int) ([]spotify.Track, error) {
		return nil, fmt.Errorf("searching: %w", zspotify.Error{Status: 400, Message: "bad genre"})
	}}
	svc := newTestService(memory.New(), catalog, WithMaxRetries(3))

	_, err := svc.ImportGenre(context.Background(), "not-a-genre", 10)
	if !errors.Is(err, ErrGenreRejected) {
		t.Fatalf("err = %v, want ErrGenreRejected", err)
	}
	if got := catalog.calls.Load(); got != 1 {
		t.Errorf("catalog calls = %d, want 1", got)
	}
}

func TestImportGenre_TransientErrors(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		maxRetries   int
		wantErr      error
		wantCalls    int32
		wantImported int
	}{
		{
			name:         "recovers within retry cap",
			failures:     2,
			maxRetries:   3,
			wantCalls:    3,
			wantImported: 5,
		},
		{
			name:       "gives up after retry cap",
			failures:   100,
			maxRetries: 2,
			wantErr:    ErrRetriesExhausted,
			wantCalls:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &mockCatalog{}
			catalog.search = func(genre string, limit, offset int) ([]spotify.Track, error) {
				if catalog.calls.Load() <= tt.failures {
					return nil, zspotify.Error{Status: 503, Message: "unavailable"}
				}
				return pages(100)(genre, limit, offset)
			}
			svc := newTestService(memory.New(), catalog, WithMaxRetries(tt.maxRetries))

			result, err := svc.ImportGenre(context.Background(), "jazz", 5)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := catalog.calls.Load(); got != tt.wantCalls {
				t.Errorf("catalog calls = %d, want %d", got, tt.wantCalls)
			}
			if result.Imported != tt.wantImported {
				t.Errorf("Imported = %d, want %d", result.Imported, tt.wantImported)
			}
			for _, off := range catalog.offsets {
				if off != 0 {
					t.Errorf("retried at offset %d, want 0", off)
				}
			}
		})
	}
}

func TestImportGenre_StopsAfterEmptyBatches(t *testing.T) {
	// The same page forever: only the first fetch yields anything new.
	catalog := &mockCatalog{search: func(genre string, limit, offset int) ([]spotify.Track, error) {
		return pages(4)(genre, limit, 0)
	}}
	svc := newTestService(memory.New(), catalog, WithMaxEmptyBatches(5))

	result, err := svc.ImportGenre(context.Background(), "blues", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Exhausted {
		t.Error("expected Exhausted")
	}
	if result.Imported != 4 {
		t.Errorf("Imported = %d, want 4", result.Imported)
	}
	if result.Fetches != 6 {
		t.Errorf("Fetches = %d, want 6", result.Fetches)
	}
}

func TestImportGenre_StopsAtSearchDepth(t *testing.T) {
	tests := []struct {
		name        string
		batchSize   int
		wantFetches int
	}{
		{"batches divide the depth", 50, 20},
		{"last batch is shortened", 30, 34},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only the first page is new; the catalog rejects pages past its depth.
			catalog := &mockCatalog{search: func(genre string, limit, offset int) ([]spotify.Track, error) {
				if offset+limit > spotify.MaxSearchOffset {
					return nil, zspotify.Error{Status: 400, Message: "invalid offset"}
				}
				return pages(4)(genre, min(limit, 4), 0)
			}}
			svc := newTestService(memory.New(), catalog, WithBatchSize(tt.batchSize), WithMaxEmptyBatches(100))

			result, err := svc.ImportGenre(context.Background(), "ambient", 500)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Exhausted {
				t.Error("expected Exhausted")
			}
			if result.Imported != 4 {
				t.Errorf("Imported = %d, want 4", result.Imported)
			}
			if result.Fetches != tt.wantFetches || int(catalog.calls.Load()) != tt.wantFetches {
				t.Errorf("Fetches = %d, calls = %d, want %d", result.Fetches, catalog.calls.Load(), tt.wantFetches)
			}
		})
	}
}

func TestImportGenre_EmptyPagesAdvanceOffset(t *testing.T) {
	catalog := &mockCatalog{search: pages(0)}
	svc := newTestService(memory.New(), catalog, WithBatchSize(10), WithMaxEmptyBatches(3))

	result, err := svc.ImportGenre(context.Background(), "soul", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Imported != 0 || !result.Exhausted {
		t.Errorf("result = %+v", result)
	}
	if want := []int{0, 10, 20}; fmt.Sprint(catalog.offsets) != fmt.Sprint(want) {
		t.Errorf("offsets = %v, want %v", catalog.offsets, want)
	}
}

func TestImportGenre_SkipsSongsOwnedByOtherGenre(t *testing.T) {
	store := memory.New()
	if _, err := store.Songs().InsertMany(context.Background(), []db.Song{{ID: "shared", Genre: "rock"}}); err != nil {
		t.Fatal(err)
	}

	catalog := &mockCatalog{search: func(_ string, _ int, offset int) ([]spotify.Track, error) {
		if offset > 0 {
			return nil, nil
		}
		return []spotify.Track{track("shared", 90), track("p1", 40), track("p1", 40)}, nil
	}}
	svc := newTestService(store, catalog, WithMaxEmptyBatches(2))

	result, err := svc.ImportGenre(context.Background(), "punk", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}

	songs, _ := store.Songs().GetMany(context.Background(), []string{"shared"})
	if len(songs) != 1 || songs[0].Genre != "rock" {
		t.Errorf("shared song = %+v, want genre rock", songs)
	}
}

func TestImportAll_ContinuesAfterFailure(t *testing.T) {
	store := memory.New()
	catalog := &mockCatalog{search: func(genre string, limit, offset int) ([]spotify.Track, error) {
		if genre == "bad" {
			return nil, zspotify.Error{Status: 404, Message: "not found"}
		}
		return pages(100)(genre, limit, offset)
	}}
	svc := newTestService(store, catalog)

	results, err := svc.ImportAll(context.Background(), []string{"bad", "jazz"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Imported != 0 || results[1].Imported != 3 {
		t.Errorf("results = %+v", results)
	}
}

func TestImportAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog := &mockCatalog{search: pages(100)}
	svc := newTestService(memory.New(), catalog)

	results, err := svc.ImportAll(ctx, []string{"jazz", "pop"}, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
	if got := catalog.calls.Load(); got != 0 {
		t.Errorf("catalog calls = %d, want 0", got)
	}
}

func TestFeaturesForGenre(t *testing.T) {
	tests := []struct {
		genre      string
		wantTempo  float64
		wantEnergy float64
	}{
		{"techno", 128, 0.9},
		{"classical", 120, 0.3},
		{"metal", 140, 0.9},
		{"hip-hop", 95, 0.7},
		{"deep-house", 120, 0.5}, // no profile
		{"", 120, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			f := FeaturesForGenre(tt.genre)
			if f.Tempo != tt.wantTempo || f.Energy != tt.wantEnergy {
				t.Errorf("tempo = %v energy = %v, want %v %v", f.Tempo, f.Energy, tt.wantTempo, tt.wantEnergy)
			}
			if f.TimeSignature != 4 || f.DurationMs != 210000 {
				t.Errorf("defaults not applied: %+v", f)
			}
		})
	}
}

func TestSupportedGenres(t *testing.T) {
	genres := SupportedGenres()
	if len(genres) != 30 {
		t.Errorf("got %d genres, want 30", len(genres))
	}
	for i := 1; i < len(genres); i++ {
		if genres[i-1] >= genres[i] {
			t.Errorf("genres not sorted at %d: %q >= %q", i, genres[i-1], genres[i])
		}
	}

	genres[0] = "mutated"
	if SupportedGenres()[0] != "acoustic" {
		t.Error("SupportedGenres returned shared slice")
	}
}
