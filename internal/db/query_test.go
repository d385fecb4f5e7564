package db

import (
	"slices"
	"testing"
	"time"
)

func TestSongQueryMatches(t *testing.T) {
	pop := Song{ID: "a", Genre: "pop", Artists: []Artist{{ID: "art1"}}}
	untagged := Song{ID: "b", Artists: []Artist{{ID: "art2"}}}

	tests := []struct {
		name  string
		query SongQuery
		song  Song
		want  bool
	}{
		{"popularity matches anything", ByPopularityExcluding(nil, 5), untagged, true},
		{"excluded id never matches", ByPopularityExcluding([]string{"b"}, 5), untagged, false},
		{"genre match", ByGenreExcluding([]string{"pop"}, nil, 5), pop, true},
		{"genre mismatch", ByGenreExcluding([]string{"rock"}, nil, 5), pop, false},
		{"untagged song never matches a genre", ByGenreExcluding([]string{""}, nil, 5), untagged, false},
		{"artist match", ByGenreOrArtistExcluding([]string{"rock"}, []string{"art2"}, nil, 5), untagged, true},
		{"genre or artist, neither", ByGenreOrArtistExcluding([]string{"rock"}, []string{"art9"}, nil, 5), pop, false},
		{"artist match but excluded", ByGenreOrArtistExcluding(nil, []string{"art1"}, []string{"a"}, 5), pop, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(tt.song); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComparePopularity(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	songs := []Song{
		{ID: "c", Popularity: 50, ImportedAt: base},
		{ID: "b", Popularity: 50, ImportedAt: base},
		{ID: "a", Popularity: 50, ImportedAt: base.Add(time.Second)},
		{ID: "d", Popularity: 90, ImportedAt: base.Add(time.Hour)},
	}

	slices.SortFunc(songs, ComparePopularity)

	var got []string
	for _, s := range songs {
		got = append(got, s.ID)
	}
	want := []string{"d", "b", "c", "a"}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
