package db

import "slices"

// SongQuery selects unrated catalog songs. A song matches when its genre is
// in Genres or any of its artists is in ArtistIDs; with both empty every
// song matches. Songs in ExcludeIDs never match.
type SongQuery struct {
	Genres     []string
	ArtistIDs  []string
	ExcludeIDs []string
	Limit      int
}

// ByGenreExcluding selects the most popular songs of the given genres.
func ByGenreExcluding(genres, exclude []string, limit int) SongQuery {
	return SongQuery{Genres: genres, ExcludeIDs: exclude, Limit: limit}
}

// ByGenreOrArtistExcluding selects the most popular songs that share a genre
// or an artist with the given sets.
func ByGenreOrArtistExcluding(genres, artistIDs, exclude []string, limit int) SongQuery {
	return SongQuery{Genres: genres, ArtistIDs: artistIDs, ExcludeIDs: exclude, Limit: limit}
}

// ByPopularityExcluding selects the most popular songs catalog-wide.
func ByPopularityExcluding(exclude []string, limit int) SongQuery {
	return SongQuery{ExcludeIDs: exclude, Limit: limit}
}

// MatchesAll reports whether the query has no genre or artist filter.
func (q SongQuery) MatchesAll() bool {
	return len(q.Genres) == 0 && len(q.ArtistIDs) == 0
}

// Matches reports whether s satisfies the query filter. It ignores Limit.
func (q SongQuery) Matches(s Song) bool {
	if slices.Contains(q.ExcludeIDs, s.ID) {
		return false
	}
	if q.MatchesAll() {
		return true
	}
	if s.Genre != "" && slices.Contains(q.Genres, s.Genre) {
		return true
	}
	for _, a := range s.Artists {
		if slices.Contains(q.ArtistIDs, a.ID) {
			return true
		}
	}
	return false
}

// ComparePopularity orders songs the way Find returns them.
func ComparePopularity(a, b Song) int {
	if a.Popularity != b.Popularity {
		return b.Popularity - a.Popularity
	}
	if c := a.ImportedAt.Compare(b.ImportedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
