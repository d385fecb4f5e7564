// Package recommend generates named playlist recommendations for users who
// have rated enough songs, and lets them rename the result.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/metrics"
	"github.com/justestif/go-spotify-taste-engine/internal/mlservice"
	"github.com/justestif/go-spotify-taste-engine/internal/validation"
)

// Defaults.
const (
	DefaultMinLiked   = 50
	DefaultTrackLimit = 30
	MaxNameLength     = 100
)

// Recommender scores catalog songs for a request.
type Recommender interface {
	Recommend(ctx context.Context, req mlservice.RecommendRequest) ([]mlservice.ScoredSong, error)
}

// Service generates recommendations.
type Service struct {
	store       db.Store
	recommender Recommender
	minLiked    int64
	trackLimit  int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecommender sets the track scorer. Without one recommendations are
// created with no tracks.
func WithRecommender(r Recommender) Option {
	return func(s *Service) {
		s.recommender = r
	}
}

// WithMinLiked sets how many liked songs a user needs before generating.
func WithMinLiked(n int) Option {
	return func(s *Service) {
		s.minLiked = int64(n)
	}
}

// WithTrackLimit sets how many tracks are requested from the recommender.
func WithTrackLimit(n int) Option {
	return func(s *Service) {
		s.trackLimit = n
	}
}

// WithClock sets the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a recommendation service.
func New(store db.Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		minLiked:   DefaultMinLiked,
		trackLimit: DefaultTrackLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params describes the playlist a user asks for.
type Params struct {
	// QuestionnaireID optionally ties the recommendation to a submission.
	// When empty the user's latest questionnaire, if any, is used.
	QuestionnaireID string `json:"questionnaireId"`
	Mood            string `json:"mood" validate:"required,max=32"`
	Activity        string `json:"activity" validate:"required,max=32"`
	Tempo           string `json:"tempo" validate:"required,max=32"`
	Discovery       string `json:"discovery" validate:"required,max=32"`
}

// Generate creates and stores a recommendation for the user.
//
// The user must have at least the configured number of liked songs. Track
// selection is delegated to the recommender; when it fails or is not
// configured the recommendation is stored without tracks.
func (s *Service) Generate(ctx context.Context, userID string, p Params) (*db.Recommendation, error) {
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	liked, err := s.store.Preferences().CountLiked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting liked songs: %w", err)
	}
	if liked < s.minLiked {
		return nil, validation.Newf("at least %d liked songs are needed for a recommendation, have %d", s.minLiked, liked)
	}

	questionnaireID, err := s.questionnaireFor(ctx, userID, p.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	songs, err := s.tracks(ctx, userID, questionnaireID, p)
	if err != nil {
		return nil, err
	}

	rec := &db.Recommendation{
		ID:              uuid.NewString(),
		UserID:          userID,
		QuestionnaireID: questionnaireID,
		Name:            PlaylistName(p.Mood, p.Activity),
		Description:     Description(p.Mood, p.Activity, p.Tempo),
		Mood:            p.Mood,
		Activity:        p.Activity,
		Tempo:           p.Tempo,
		Discovery:       p.Discovery,
		Songs:           songs,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.Recommendations().Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving recommendation: %w", err)
	}
	metrics.RecordRecommendation(len(songs))

	logging.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("recommendation_id", rec.ID).
		Int("tracks", len(songs)).
		Msg("recommendation generated")
	return rec, nil
}

func (s *Service) questionnaireFor(ctx context.Context, userID, id string) (string, error) {
	if id != "" {
		q, err := s.store.Questionnaires().Get(ctx, id, userID)
		if err != nil {
			return "", fmt.Errorf("questionnaire %s: %w", id, err)
		}
		return q.ID, nil
	}

	q, err := s.store.Questionnaires().Latest(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading latest questionnaire: %w", err)
	}
	return q.ID, nil
}

// tracks asks the recommender for scored songs and joins them with the
// catalog. Songs the catalog does not know are dropped.
func (s *Service) tracks(ctx context.Context, userID, questionnaireID string, p Params) ([]db.RecommendedSong, error) {
	songs := []db.RecommendedSong{}
	if s.recommender == nil {
		return songs, nil
	}

	scored, err := s.recommender.Recommend(ctx, mlservice.RecommendRequest{
		UserID:          userID,
		QuestionnaireID: questionnaireID,
		Mood:            p.Mood,
		Activity:        p.Activity,
		Tempo:           p.Tempo,
		Discovery:       p.Discovery,
		Limit:           s.trackLimit,
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("recommender unavailable, storing recommendation without tracks")
		return songs, nil
	}
	if len(scored) == 0 {
		return songs, nil
	}

	ids := make([]string, len(scored))
	for i, sc := range scored {
		ids[i] = sc.SongID
	}
	found, err := s.store.Songs().GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading recommended songs: %w", err)
	}
	byID := make(map[string]db.Song, len(found))
	for _, song := range found {
		byID[song.ID] = song
	}

	for _, sc := range scored {
		song, ok := byID[sc.SongID]
		if !ok {
			continue
		}
		songs = append(songs, db.RecommendedSong{
			SongID:   song.ID,
			Name:     song.Name,
			Artists:  song.ArtistNames(),
			Score:    sc.Score,
			ImageURL: song.CoverURL(),
		})
	}
	return songs, nil
}

// Rename sets the user-assigned playlist name. It fails with db.ErrNotFound
// when the recommendation does not exist or belongs to another user.
func (s *Service) Rename(ctx context.Context, id, userID, name string) (*db.Recommendation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &validation.Error{Field: "playlistName", Reason: "is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, &validation.Error{Field: "playlistName", Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)}
	}

	if err := s.store.Recommendations().Rename(ctx, id, userID, name); err != nil {
		return nil, fmt.Errorf("renaming recommendation %s: %w", id, err)
	}
	return s.Get(ctx, id, userID)
}

// Get returns one of the user's recommendations.
func (s *Service) Get(ctx context.Context, id, userID string) (*db.Recommendation, error) {
	rec, err := s.store.Recommendations().Get(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("loading recommendation %s: %w", id, err)
	}
	return rec, nil
}

// List returns the user's recommendations, newest first. limit <= 0 returns
// all of them.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]db.Recommendation, error) {
	list, err := s.store.Recommendations().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}
	return list, nil
}
