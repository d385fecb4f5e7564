package preferences

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/db/memory"
	"github.com/justestif/go-spotify-taste-engine/internal/validation"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	songs := []db.Song{{ID: "s1", Genre: "pop"}, {ID: "s2", Genre: "rock"}}
	if _, err := store.Songs().InsertMany(context.Background(), songs); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return New(store, WithClock(func() time.Time { return now })), store
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name      string
		songID    string
		rating    Rating
		wantCount int64
		wantLiked int64
		wantErr   func(error) bool
	}{
		{name: "like", songID: "s1", rating: Like, wantCount: 1, wantLiked: 1},
		{name: "dislike", songID: "s2", rating: Dislike, wantCount: 1, wantLiked: 0},
		{name: "skip is not stored", songID: "s1", rating: Skip, wantCount: 0, wantLiked: 0},
		{
			name:    "unknown song",
			songID:  "missing",
			rating:  Like,
			wantErr: func(err error) bool { return errors.Is(err, db.ErrNotFound) },
		},
		{name: "unknown rating", songID: "s1", rating: "love", wantErr: validation.Is},
		{name: "missing song id", songID: "", rating: Like, wantErr: validation.Is},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()

			count, err := svc.Record(ctx, "u1", tt.songID, tt.rating)
			if tt.wantErr != nil {
				if err == nil || !tt.wantErr(err) {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if count != tt.wantCount {
				t.Errorf("count = %d, want %d", count, tt.wantCount)
			}
			liked, _ := svc.CountLiked(ctx, "u1")
			if liked != tt.wantLiked {
				t.Errorf("liked = %d, want %d", liked, tt.wantLiked)
			}
		})
	}
}

func TestRecord_KeepsRepeatedRatings(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for _, r := range []Rating{Like, Dislike, Like} {
		if _, err := svc.Record(ctx, "u1", "s1", r); err != nil {
			t.Fatal(err)
		}
	}
	count, err := svc.Record(ctx, "u2", "s1", Like)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("u2 count = %d, want 1", count)
	}

	prefs, _ := store.Preferences().ListByUser(ctx, "u1")
	if len(prefs) != 3 {
		t.Fatalf("got %d preferences, want 3", len(prefs))
	}
	if prefs[0].ID == prefs[1].ID {
		t.Error("preferences share an id")
	}
	if !prefs[0].Liked || prefs[1].Liked {
		t.Errorf("liked flags = %v %v, want true false", prefs[0].Liked, prefs[1].Liked)
	}
	if prefs[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}
