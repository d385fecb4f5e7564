package importer

import (
	"slices"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// Spotify no longer serves audio features to new applications, so imported
// songs carry a per-genre approximation instead.
var defaultFeatures = db.AudioFeatures{
	Danceability:     0.5,
	Energy:           0.5,
	Key:              0,
	Loudness:         -8,
	Mode:             1,
	Speechiness:      0.1,
	Acousticness:     0.5,
	Instrumentalness: 0,
	Liveness:         0.1,
	Valence:          0.5,
	Tempo:            120,
	DurationMs:       210000,
	TimeSignature:    4,
}

type featureGroup struct {
	genres []string
	apply  func(*db.AudioFeatures)
}

var featureGroups = []featureGroup{
	{
		genres: []string{"dance", "edm", "electro", "electronic", "house", "techno", "trance", "drum-and-bass", "dubstep"},
		apply: func(f *db.AudioFeatures) {
			f.Danceability, f.Energy, f.Tempo = 0.8, 0.9, 128
			f.Instrumentalness, f.Acousticness = 0.4, 0.2
		},
	},
	{
		genres: []string{"classical", "ambient"},
		apply: func(f *db.AudioFeatures) {
			f.Acousticness, f.Energy, f.Instrumentalness = 0.9, 0.3, 0.8
			f.Valence, f.Loudness = 0.4, -14
		},
	},
	{
		genres: []string{"rock", "metal", "alt-rock", "punk"},
		apply: func(f *db.AudioFeatures) {
			f.Energy, f.Loudness, f.Tempo = 0.9, -5, 140
			f.Acousticness, f.Valence = 0.3, 0.6
		},
	},
	{
		genres: []string{"jazz", "blues", "soul"},
		apply: func(f *db.AudioFeatures) {
			f.Acousticness, f.Instrumentalness, f.Energy = 0.7, 0.4, 0.5
			f.Tempo, f.Valence = 100, 0.4
		},
	},
	{
		genres: []string{"hip-hop", "r-n-b"},
		apply: func(f *db.AudioFeatures) {
			f.Speechiness, f.Danceability, f.Energy = 0.4, 0.7, 0.7
			f.Acousticness, f.Tempo = 0.3, 95
		},
	},
	{
		genres: []string{"pop", "k-pop"},
		apply: func(f *db.AudioFeatures) {
			f.Danceability, f.Energy, f.Valence = 0.7, 0.8, 0.7
			f.Loudness, f.Speechiness = -6, 0.2
		},
	},
	{
		genres: []string{"folk", "acoustic", "country"},
		apply: func(f *db.AudioFeatures) {
			f.Acousticness, f.Instrumentalness, f.Energy = 0.8, 0.2, 0.4
			f.Danceability, f.Tempo = 0.4, 110
		},
	},
	{
		genres: []string{"latin", "reggae", "afrobeat"},
		apply: func(f *db.AudioFeatures) {
			f.Danceability, f.Energy, f.Valence = 0.8, 0.6, 0.7
			f.Tempo, f.Speechiness = 105, 0.2
		},
	},
	{
		genres: []string{"indie", "indie-pop", "alternative"},
		apply: func(f *db.AudioFeatures) {
			f.Energy, f.Danceability = 0.6, 0.5
			f.Valence, f.Acousticness = 0.5, 0.4
		},
	},
	{
		genres: []string{"disco", "funk"},
		apply: func(f *db.AudioFeatures) {
			f.Danceability, f.Energy, f.Valence = 0.9, 0.7, 0.8
			f.Tempo, f.Speechiness, f.Acousticness = 115, 0.1, 0.3
		},
	},
}

var genreFeatures = func() map[string]func(*db.AudioFeatures) {
	m := make(map[string]func(*db.AudioFeatures))
	for _, g := range featureGroups {
		for _, genre := range g.genres {
			m[genre] = g.apply
		}
	}
	return m
}()

// FeaturesForGenre returns the approximate audio features assigned to songs
// imported under genre. Unknown genres get neutral defaults.
func FeaturesForGenre(genre string) db.AudioFeatures {
	f := defaultFeatures
	if apply, ok := genreFeatures[genre]; ok {
		apply(&f)
	}
	return f
}

// supportedGenres is the default import list.
var supportedGenres = []string{
	"acoustic", "afrobeat", "alt-rock", "alternative", "ambient",
	"blues", "classical", "country", "dance", "deep-house",
	"disco", "drum-and-bass", "dubstep", "edm", "electronic",
	"folk", "funk", "hip-hop", "house", "indie",
	"indie-pop", "jazz", "latin", "metal", "pop",
	"punk", "r-n-b", "reggae", "rock", "soul",
}

// SupportedGenres returns the genres imported when none are configured,
// sorted ascending.
func SupportedGenres() []string {
	return slices.Clone(supportedGenres)
}
