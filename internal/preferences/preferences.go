// Package preferences records like and dislike judgments on catalog songs.
package preferences

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/metrics"
	"github.com/justestif/go-spotify-taste-engine/internal/validation"
)

// Rating is a user's reaction to a presented song.
type Rating string

const (
	Like    Rating = "like"
	Dislike Rating = "dislike"
	// Skip records nothing, so the song can be sampled again later.
	Skip Rating = "skip"
)

// Valid reports whether r is a known rating.
func (r Rating) Valid() bool {
	switch r {
	case Like, Dislike, Skip:
		return true
	}
	return false
}

// Service records preferences.
type Service struct {
	store db.Store
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for preference timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a preference service.
func New(store db.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record stores the user's rating of songID and returns the user's total
// preference count. The song must exist in the catalog. Repeated ratings of
// the same song are all kept.
func (s *Service) Record(ctx context.Context, userID, songID string, rating Rating) (int64, error) {
	if songID == "" {
		return 0, &validation.Error{Field: "songId", Reason: "is required"}
	}
	if !rating.Valid() {
		return 0, &validation.Error{Field: "rating", Reason: "must be one of: like dislike skip"}
	}

	songs, err := s.store.Songs().GetMany(ctx, []string{songID})
	if err != nil {
		return 0, fmt.Errorf("looking up song: %w", err)
	}
	if len(songs) == 0 {
		return 0, fmt.Errorf("song %s: %w", songID, db.ErrNotFound)
	}

	if rating != Skip {
		p := &db.Preference{
			ID:        uuid.NewString(),
			UserID:    userID,
			SongID:    songID,
			Liked:     rating == Like,
			CreatedAt: s.now().UTC(),
		}
		if err := s.store.Preferences().Insert(ctx, p); err != nil {
			return 0, fmt.Errorf("saving preference: %w", err)
		}
	}
	metrics.PreferencesRecorded.WithLabelValues(string(rating)).Inc()

	return s.Count(ctx, userID)
}

// Count returns the number of preferences the user has recorded.
func (s *Service) Count(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.Preferences().CountByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting preferences: %w", err)
	}
	return n, nil
}

// CountLiked returns the number of liked songs the user has recorded.
func (s *Service) CountLiked(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.Preferences().CountLiked(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting liked songs: %w", err)
	}
	return n, nil
}
