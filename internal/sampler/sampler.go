// Package sampler picks unrated catalog songs to present to a user for
// rating. The mix of strategies depends on how many ratings the user has
// given so far: popular songs across genres for new users, songs close to
// their likes once a profile exists, and a standing share of unexplored
// genres for established users.
package sampler

import (
	"context"
	"fmt"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/metrics"
)

// Tier names the strategy mix used for a request.
type Tier string

const (
	TierColdStart Tier = "cold_start"
	TierBlended   Tier = "blended"
	TierMature    Tier = "mature"
)

const (
	DefaultCount = 10
	MaxCount     = 50

	// BlendedThreshold and MatureThreshold are preference counts.
	BlendedThreshold = 10
	MatureThreshold  = 30

	coldStartGenres = 5
)

// Sampler selects songs for rating.
type Sampler struct {
	store db.Store
}

// New creates a sampler backed by store.
func New(store db.Store) *Sampler {
	return &Sampler{store: store}
}

// Result is one sampling response.
type Result struct {
	Tier  Tier      `json:"tier"`
	Songs []db.Song `json:"songs"`
}

// TierFor returns the tier used for a user with count preferences.
func TierFor(count int) Tier {
	switch {
	case count < BlendedThreshold:
		return TierColdStart
	case count < MatureThreshold:
		return TierBlended
	default:
		return TierMature
	}
}

// Sample returns up to n songs the user has not rated. n <= 0 means
// DefaultCount and n is capped at MaxCount. Fewer than n songs are returned
// only when the catalog has no more unrated songs.
func (s *Sampler) Sample(ctx context.Context, userID string, n int) (*Result, error) {
	if n <= 0 {
		n = DefaultCount
	}
	n = min(n, MaxCount)

	h, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	tier := TierFor(h.count)
	var first, second []db.Song
	switch tier {
	case TierColdStart:
		first, err = s.coldStart(ctx, h.rated, n)
	case TierBlended:
		first, err = s.coldStart(ctx, h.rated, (n*70+50)/100)
		if err == nil {
			second, err = s.preferenceBased(ctx, h, withSongs(h.rated, first), n-len(first))
		}
	case TierMature:
		first, err = s.preferenceBased(ctx, h, h.rated, (n*60+50)/100)
		if err == nil {
			second, err = s.exploration(ctx, h, withSongs(h.rated, first), n-len(first))
		}
	}
	if err != nil {
		return nil, err
	}

	songs := append(first, second...)
	songs, err = s.topUp(ctx, songs, h.rated, n)
	if err != nil {
		return nil, err
	}

	metrics.SamplesServed.WithLabelValues(string(tier)).Inc()
	if len(songs) < n {
		metrics.SampleShortfall.Inc()
	}
	logging.Ctx(ctx).Debug().
		Str("user_id", userID).
		Str("tier", string(tier)).
		Int("preferences", h.count).
		Int("requested", n).
		Int("returned", len(songs)).
		Msg("sampled songs")

	return &Result{Tier: tier, Songs: songs}, nil
}

// history summarizes a user's ratings.
type history struct {
	count        int      // preference records, duplicates included
	rated        []string // distinct rated song ids
	likedGenres  []string
	likedArtists []string
	exposed      map[string]bool // genres of every rated song
}

func (s *Sampler) loadHistory(ctx context.Context, userID string) (*history, error) {
	prefs, err := s.store.Preferences().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}

	h := &history{count: len(prefs), exposed: make(map[string]bool)}
	liked := make(map[string]bool)
	seen := make(map[string]bool)
	for _, p := range prefs {
		if p.Liked {
			liked[p.SongID] = true
		}
		if !seen[p.SongID] {
			seen[p.SongID] = true
			h.rated = append(h.rated, p.SongID)
		}
	}
	if len(h.rated) == 0 {
		return h, nil
	}

	songs, err := s.store.Songs().GetMany(ctx, h.rated)
	if err != nil {
		return nil, fmt.Errorf("loading rated songs: %w", err)
	}

	genres := make(map[string]bool)
	artists := make(map[string]bool)
	for _, song := range songs {
		if song.Genre != "" {
			h.exposed[song.Genre] = true
		}
		if !liked[song.ID] {
			continue
		}
		if song.Genre != "" && !genres[song.Genre] {
			genres[song.Genre] = true
			h.likedGenres = append(h.likedGenres, song.Genre)
		}
		for _, id := range song.ArtistIDs() {
			if !artists[id] {
				artists[id] = true
				h.likedArtists = append(h.likedArtists, id)
			}
		}
	}
	return h, nil
}

// coldStart takes the most popular unrated songs of the first few catalog
// genres, then tops up from the whole catalog.
func (s *Sampler) coldStart(ctx context.Context, exclude []string, n int) ([]db.Song, error) {
	if n <= 0 {
		return nil, nil
	}
	genres, err := s.store.Songs().Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing genres: %w", err)
	}
	if len(genres) > coldStartGenres {
		genres = genres[:coldStartGenres]
	}

	perGenre := (n + coldStartGenres - 1) / coldStartGenres
	var songs []db.Song
	for _, genre := range genres {
		found, err := s.store.Songs().Find(ctx, db.ByGenreExcluding([]string{genre}, exclude, perGenre))
		if err != nil {
			return nil, fmt.Errorf("finding %s songs: %w", genre, err)
		}
		songs = append(songs, found...)
	}
	if len(songs) > n {
		songs = songs[:n]
	}
	return s.topUp(ctx, songs, exclude, n)
}

// preferenceBased takes unrated songs sharing a genre or an artist with the
// user's liked songs. Without likes it is the cold start strategy.
func (s *Sampler) preferenceBased(ctx context.Context, h *history, exclude []string, n int) ([]db.Song, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(h.likedGenres) == 0 && len(h.likedArtists) == 0 {
		return s.coldStart(ctx, exclude, n)
	}

	songs, err := s.store.Songs().Find(ctx, db.ByGenreOrArtistExcluding(h.likedGenres, h.likedArtists, exclude, n))
	if err != nil {
		return nil, fmt.Errorf("finding songs like preferences: %w", err)
	}
	return s.topUp(ctx, songs, exclude, n)
}

// exploration takes unrated songs from genres the user has never rated.
// With no ratings, or no unexplored genre left, it is the cold start
// strategy.
func (s *Sampler) exploration(ctx context.Context, h *history, exclude []string, n int) ([]db.Song, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(h.rated) == 0 {
		return s.coldStart(ctx, exclude, n)
	}

	genres, err := s.store.Songs().Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing genres: %w", err)
	}
	var unexplored []string
	for _, g := range genres {
		if !h.exposed[g] {
			unexplored = append(unexplored, g)
		}
	}
	if len(unexplored) == 0 {
		return s.coldStart(ctx, exclude, n)
	}

	songs, err := s.store.Songs().Find(ctx, db.ByGenreExcluding(unexplored, exclude, n))
	if err != nil {
		return nil, fmt.Errorf("finding unexplored songs: %w", err)
	}
	return s.topUp(ctx, songs, exclude, n)
}

// topUp fills songs up to n with the most popular songs catalog-wide that
// are neither excluded nor already picked.
func (s *Sampler) topUp(ctx context.Context, songs []db.Song, exclude []string, n int) ([]db.Song, error) {
	if len(songs) >= n {
		return songs, nil
	}
	more, err := s.store.Songs().Find(ctx, db.ByPopularityExcluding(withSongs(exclude, songs), n-len(songs)))
	if err != nil {
		return nil, fmt.Errorf("finding popular songs: %w", err)
	}
	return append(songs, more...), nil
}

// withSongs returns a new slice holding ids followed by the ids of songs.
func withSongs(ids []string, songs []db.Song) []string {
	out := make([]string, 0, len(ids)+len(songs))
	out = append(out, ids...)
	for _, song := range songs {
		out = append(out, song.ID)
	}
	return out
}
