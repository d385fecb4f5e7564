// Package importer populates the song catalog from the Spotify search API,
// one genre at a time, up to a per-genre quota.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/metrics"
	"github.com/justestif/go-spotify-taste-engine/internal/spotify"
)

// Common errors.
var (
	// ErrGenreRejected is returned when the catalog answers a genre search
	// with a client error. The genre is abandoned without retrying.
	ErrGenreRejected = errors.New("catalog rejected genre")

	// ErrRetriesExhausted is returned when transient failures at the same
	// offset exceed the retry cap.
	ErrRetriesExhausted = errors.New("catalog retries exhausted")
)

// Defaults.
const (
	DefaultQuota           = 500
	DefaultBatchSize       = 50
	DefaultDelay           = time.Second
	DefaultRetryDelay      = 5 * time.Second
	DefaultMaxRetries      = 5
	DefaultMaxEmptyBatches = 5
)

// Catalog searches tracks by genre.
type Catalog interface {
	SearchGenre(ctx context.Context, genre string, limit, offset int) ([]spotify.Track, error)
}

// Service imports catalog songs into the store.
type Service struct {
	store           db.Store
	catalog         Catalog
	batchSize       int
	delay           time.Duration
	retryDelay      time.Duration
	maxRetries      int
	maxEmptyBatches int
	now             func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets the page size of each catalog search.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		s.batchSize = n
	}
}

// WithDelay sets the minimum time between catalog searches.
func WithDelay(d time.Duration) Option {
	return func(s *Service) {
		s.delay = d
	}
}

// WithRetryDelay sets the wait after a transient catalog failure.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

// WithMaxRetries caps consecutive transient failures at one offset.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		s.maxRetries = n
	}
}

// WithMaxEmptyBatches sets how many consecutive batches without a new track
// end a genre.
func WithMaxEmptyBatches(n int) Option {
	return func(s *Service) {
		s.maxEmptyBatches = n
	}
}

// WithClock sets the time source used for import timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a new import service.
func New(store db.Store, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		store:           store,
		catalog:         catalog,
		batchSize:       DefaultBatchSize,
		delay:           DefaultDelay,
		retryDelay:      DefaultRetryDelay,
		maxRetries:      DefaultMaxRetries,
		maxEmptyBatches: DefaultMaxEmptyBatches,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.batchSize <= 0 || s.batchSize > spotify.MaxSearchLimit {
		s.batchSize = DefaultBatchSize
	}
	if s.maxEmptyBatches <= 0 {
		s.maxEmptyBatches = DefaultMaxEmptyBatches
	}
	return s
}

// ImportResult contains the result of importing one genre.
type ImportResult struct {
	Genre     string
	Existing  int64 // songs tagged with the genre before the run
	Imported  int
	Fetches   int
	Skipped   bool // quota was already met, nothing fetched
	Exhausted bool // stopped on consecutive empty batches or at the search depth limit
}

// ImportGenre fetches tracks for genre until the genre holds quota songs.
//
// Tracks already in the catalog under any genre are skipped, so a track is
// owned by the first genre that imported it. A client error from the catalog
// abandons the genre with ErrGenreRejected. Transient errors are retried at
// the same offset after the retry delay, up to the retry cap. The returned
// result is valid even when err is non-nil.
func (s *Service) ImportGenre(ctx context.Context, genre string, quota int) (*ImportResult, error) {
	if quota <= 0 {
		quota = DefaultQuota
	}
	result := &ImportResult{Genre: genre}
	log := logging.Ctx(ctx).With().Str("genre", genre).Logger()

	count, err := s.store.Songs().CountByGenre(ctx, genre)
	if err != nil {
		return result, fmt.Errorf("counting genre songs: %w", err)
	}
	result.Existing = count
	if count >= int64(quota) {
		result.Skipped = true
		log.Debug().Int64("count", count).Msg("genre quota already met")
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Every(s.delay), 1)
	seen := make(map[string]bool)
	offset := 0
	retries := 0
	emptyBatches := 0

	for count < int64(quota) {
		limit := min(s.batchSize, spotify.MaxSearchOffset-offset)
		if limit <= 0 {
			result.Exhausted = true
			log.Info().Int("offset", offset).Msg("reached the catalog search depth, stopping genre")
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		tracks, err := s.catalog.SearchGenre(ctx, genre, limit, offset)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if spotify.IsClientError(err) {
				metrics.CatalogFetches.WithLabelValues("client_error").Inc()
				return result, fmt.Errorf("%w %q: %w", ErrGenreRejected, genre, err)
			}

			metrics.CatalogFetches.WithLabelValues("transient_error").Inc()
			retries++
			if retries > s.maxRetries {
				return result, fmt.Errorf("%w for %q at offset %d: %w", ErrRetriesExhausted, genre, offset, err)
			}
			log.Warn().Err(err).Int("offset", offset).Int("attempt", retries).Msg("catalog search failed, retrying")
			if err := sleepWithContext(ctx, s.retryDelay); err != nil {
				return result, err
			}
			continue
		}

		metrics.CatalogFetches.WithLabelValues("ok").Inc()
		retries = 0
		result.Fetches++
		offset += limit

		fresh, err := s.newTracks(ctx, tracks, seen)
		if err != nil {
			return result, err
		}
		if remaining := quota - int(count); len(fresh) > remaining {
			fresh = fresh[:remaining]
		}

		if len(fresh) == 0 {
			emptyBatches++
			if emptyBatches >= s.maxEmptyBatches {
				result.Exhausted = true
				log.Info().Int("offset", offset).Msg("no new tracks in consecutive batches, stopping genre")
				break
			}
			continue
		}
		emptyBatches = 0

		inserted, err := s.store.Songs().InsertMany(ctx, s.toSongs(genre, fresh))
		if err != nil {
			return result, fmt.Errorf("inserting songs: %w", err)
		}
		count += int64(inserted)
		result.Imported += inserted
		metrics.SongsImported.WithLabelValues(genre).Add(float64(inserted))

		log.Info().Int("inserted", inserted).Int64("total", count).Int("quota", quota).Msg("imported batch")
	}

	return result, nil
}

// newTracks drops tracks already seen this run and tracks already stored
// under any genre. Every track in page is marked seen.
func (s *Service) newTracks(ctx context.Context, page []spotify.Track, seen map[string]bool) ([]spotify.Track, error) {
	var candidates []spotify.Track
	ids := make([]string, 0, len(page))
	for _, t := range page {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		candidates = append(candidates, t)
		ids = append(ids, t.ID)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	existing, err := s.store.Songs().ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("checking existing songs: %w", err)
	}

	fresh := candidates[:0]
	for _, t := range candidates {
		if !existing[t.ID] {
			fresh = append(fresh, t)
		}
	}
	return fresh, nil
}

// toSongs converts catalog tracks to song documents for genre.
func (s *Service) toSongs(genre string, tracks []spotify.Track) []db.Song {
	features := FeaturesForGenre(genre)
	importedAt := s.now().UTC()

	songs := make([]db.Song, len(tracks))
	for i, t := range tracks {
		artists := make([]db.Artist, len(t.Artists))
		for j, a := range t.Artists {
			artists[j] = db.Artist{ID: a.ID, Name: a.Name}
		}
		images := make([]db.Image, len(t.Album.Images))
		for j, img := range t.Album.Images {
			images[j] = db.Image{URL: img.URL, Height: img.Height, Width: img.Width}
		}

		songs[i] = db.Song{
			ID:      t.ID,
			Name:    t.Name,
			Artists: artists,
			Album: db.Album{
				ID:          t.Album.ID,
				Name:        t.Album.Name,
				ReleaseDate: t.Album.ReleaseDate,
				Images:      images,
			},
			Popularity:    t.Popularity,
			Genre:         genre,
			AudioFeatures: features,
			ImportedAt:    importedAt,
		}
	}
	return songs
}

// ImportAll imports each genre in order. A failing genre is logged and the
// run moves on; only context cancellation stops the run early.
func (s *Service) ImportAll(ctx context.Context, genres []string, quota int) ([]ImportResult, error) {
	results := make([]ImportResult, 0, len(genres))
	for _, genre := range genres {
		result, err := s.ImportGenre(ctx, genre, quota)
		results = append(results, *result)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("genre", genre).Msg("genre import failed")
			continue
		}
		logging.Ctx(ctx).Info().
			Str("genre", genre).
			Int("imported", result.Imported).
			Int("fetches", result.Fetches).
			Bool("skipped", result.Skipped).
			Msg("genre import finished")
	}
	return results, nil
}

// sleepWithContext waits for d or until ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
