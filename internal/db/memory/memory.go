// Package memory provides an in-process db.Store for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// Store keeps every collection in memory behind a single lock.
type Store struct {
	mu              sync.RWMutex
	songs           []db.Song
	songIndex       map[string]int
	preferences     []db.Preference
	questionnaires  []db.Questionnaire
	recommendations []db.Recommendation
}

// New creates an empty store.
func New() *Store {
	return &Store{songIndex: make(map[string]int)}
}

// Songs returns the song repository.
func (s *Store) Songs() db.SongRepository { return songRepo{s} }

// Preferences returns the preference repository.
func (s *Store) Preferences() db.PreferenceRepository { return preferenceRepo{s} }

// Questionnaires returns the questionnaire repository.
func (s *Store) Questionnaires() db.QuestionnaireRepository { return questionnaireRepo{s} }

// Recommendations returns the recommendation repository.
func (s *Store) Recommendations() db.RecommendationRepository { return recommendationRepo{s} }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

type songRepo struct{ s *Store }

func (r songRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.songs)), nil
}

func (r songRepo) CountByGenre(_ context.Context, genre string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, song := range r.s.songs {
		if song.Genre == genre {
			n++
		}
	}
	return n, nil
}

func (r songRepo) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	existing := make(map[string]bool)
	for _, id := range ids {
		if _, ok := r.s.songIndex[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

func (r songRepo) InsertMany(_ context.Context, songs []db.Song) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inserted := 0
	for _, song := range songs {
		if _, ok := r.s.songIndex[song.ID]; ok {
			continue
		}
		r.s.songIndex[song.ID] = len(r.s.songs)
		r.s.songs = append(r.s.songs, song)
		inserted++
	}
	return inserted, nil
}

func (r songRepo) Genres(context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var genres []string
	for _, song := range r.s.songs {
		if song.Genre != "" && !slices.Contains(genres, song.Genre) {
			genres = append(genres, song.Genre)
		}
	}
	slices.Sort(genres)
	return genres, nil
}

func (r songRepo) Find(_ context.Context, q db.SongQuery) ([]db.Song, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	r.s.mu.RLock()
	var matched []db.Song
	for _, song := range r.s.songs {
		if q.Matches(song) {
			matched = append(matched, song)
		}
	}
	r.s.mu.RUnlock()

	slices.SortStableFunc(matched, db.ComparePopularity)
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (r songRepo) GetMany(_ context.Context, ids []string) ([]db.Song, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var songs []db.Song
	for _, id := range ids {
		if i, ok := r.s.songIndex[id]; ok {
			songs = append(songs, r.s.songs[i])
		}
	}
	return songs, nil
}

type preferenceRepo struct{ s *Store }

func (r preferenceRepo) Insert(_ context.Context, p *db.Preference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.preferences = append(r.s.preferences, *p)
	return nil
}

func (r preferenceRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, p := range r.s.preferences {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r preferenceRepo) CountLiked(_ context.Context, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, p := range r.s.preferences {
		if p.UserID == userID && p.Liked {
			n++
		}
	}
	return n, nil
}

func (r preferenceRepo) ListByUser(_ context.Context, userID string) ([]db.Preference, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var prefs []db.Preference
	for _, p := range r.s.preferences {
		if p.UserID == userID {
			prefs = append(prefs, p)
		}
	}
	return prefs, nil
}

type questionnaireRepo struct{ s *Store }

func (r questionnaireRepo) Insert(_ context.Context, q *db.Questionnaire) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.questionnaires = append(r.s.questionnaires, *q)
	return nil
}

func (r questionnaireRepo) Get(_ context.Context, id, userID string) (*db.Questionnaire, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, q := range r.s.questionnaires {
		if q.ID == id && q.UserID == userID {
			return &q, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r questionnaireRepo) Latest(ctx context.Context, userID string) (*db.Questionnaire, error) {
	list, err := r.ListByUser(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, db.ErrNotFound
	}
	return &list[0], nil
}

// ListByUser walks the slice backwards so equal timestamps keep insertion order.
func (r questionnaireRepo) ListByUser(_ context.Context, userID string, limit int) ([]db.Questionnaire, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []db.Questionnaire
	for i := len(r.s.questionnaires) - 1; i >= 0; i-- {
		if q := r.s.questionnaires[i]; q.UserID == userID {
			list = append(list, q)
		}
	}
	slices.SortStableFunc(list, func(a, b db.Questionnaire) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type recommendationRepo struct{ s *Store }

func (r recommendationRepo) Insert(_ context.Context, rec *db.Recommendation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.recommendations = append(r.s.recommendations, *rec)
	return nil
}

func (r recommendationRepo) Get(_ context.Context, id, userID string) (*db.Recommendation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rec := range r.s.recommendations {
		if rec.ID == id && rec.UserID == userID {
			return &rec, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r recommendationRepo) ListByUser(_ context.Context, userID string, limit int) ([]db.Recommendation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []db.Recommendation
	for i := len(r.s.recommendations) - 1; i >= 0; i-- {
		if rec := r.s.recommendations[i]; rec.UserID == userID {
			list = append(list, rec)
		}
	}
	slices.SortStableFunc(list, func(a, b db.Recommendation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r recommendationRepo) Rename(_ context.Context, id, userID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.recommendations {
		if rec := &r.s.recommendations[i]; rec.ID == id && rec.UserID == userID {
			rec.PlaylistName = name
			return nil
		}
	}
	return db.ErrNotFound
}
