// Package db defines the persistence contract for the taste engine: the
// catalog, user preferences, questionnaires and recommendations.
//
// Backends live in subpackages (mongo, postgres, memory). A Store is created
// once at startup, injected into the services that need it and closed on
// shutdown.
package db

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// Store is an open handle to one backend.
type Store interface {
	Songs() SongRepository
	Preferences() PreferenceRepository
	Questionnaires() QuestionnaireRepository
	Recommendations() RecommendationRepository

	// Close releases the backend's connections.
	Close(ctx context.Context) error
}

// SongRepository handles catalog operations.
type SongRepository interface {
	// Count returns the catalog size.
	Count(ctx context.Context) (int64, error)
	// CountByGenre returns the number of songs tagged with genre.
	CountByGenre(ctx context.Context, genre string) (int64, error)
	// ExistingIDs returns the subset of ids already present, under any genre.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	// InsertMany stores songs, skipping any whose id already exists, and
	// returns how many were written.
	InsertMany(ctx context.Context, songs []Song) (int, error)
	// Genres returns the distinct non-empty genres, sorted ascending.
	Genres(ctx context.Context) ([]string, error)
	// Find returns songs matching q ordered by popularity descending, then
	// import time and id ascending.
	Find(ctx context.Context, q SongQuery) ([]Song, error)
	// GetMany returns the songs with the given ids. Unknown ids are ignored.
	GetMany(ctx context.Context, ids []string) ([]Song, error)
}

// PreferenceRepository handles preference operations.
type PreferenceRepository interface {
	Insert(ctx context.Context, p *Preference) error
	CountByUser(ctx context.Context, userID string) (int64, error)
	CountLiked(ctx context.Context, userID string) (int64, error)
	// ListByUser returns all of a user's preferences, oldest first.
	ListByUser(ctx context.Context, userID string) ([]Preference, error)
}

// QuestionnaireRepository handles questionnaire operations.
type QuestionnaireRepository interface {
	Insert(ctx context.Context, q *Questionnaire) error
	// Get returns ErrNotFound unless the questionnaire belongs to userID.
	Get(ctx context.Context, id, userID string) (*Questionnaire, error)
	// Latest returns the user's newest questionnaire or ErrNotFound.
	Latest(ctx context.Context, userID string) (*Questionnaire, error)
	// ListByUser returns up to limit questionnaires, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Questionnaire, error)
}

// RecommendationRepository handles recommendation operations.
type RecommendationRepository interface {
	Insert(ctx context.Context, r *Recommendation) error
	// Get returns ErrNotFound unless the recommendation belongs to userID.
	Get(ctx context.Context, id, userID string) (*Recommendation, error)
	// ListByUser returns up to limit recommendations, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Recommendation, error)
	// Rename sets the playlist name. It returns ErrNotFound when no
	// recommendation matches both id and userID.
	Rename(ctx context.Context, id, userID, name string) error
}
