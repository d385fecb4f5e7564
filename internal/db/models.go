package db

import (
	"time"
)

// Artist is a catalog artist reference.
type Artist struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Image is an album cover in one resolution.
type Image struct {
	URL    string `bson:"url" json:"url"`
	Height int    `bson:"height" json:"height"`
	Width  int    `bson:"width" json:"width"`
}

// Album describes the album a song was released on.
type Album struct {
	ID          string  `bson:"id" json:"id"`
	Name        string  `bson:"name" json:"name"`
	ReleaseDate string  `bson:"releaseDate,omitempty" json:"releaseDate,omitempty"`
	Images      []Image `bson:"images" json:"images"`
}

// AudioFeatures is the synthesized feature vector stored with every song.
type AudioFeatures struct {
	Danceability     float64 `bson:"danceability" json:"danceability"`
	Energy           float64 `bson:"energy" json:"energy"`
	Key              int     `bson:"key" json:"key"`
	Loudness         float64 `bson:"loudness" json:"loudness"`
	Mode             int     `bson:"mode" json:"mode"`
	Speechiness      float64 `bson:"speechiness" json:"speechiness"`
	Acousticness     float64 `bson:"acousticness" json:"acousticness"`
	Instrumentalness float64 `bson:"instrumentalness" json:"instrumentalness"`
	Liveness         float64 `bson:"liveness" json:"liveness"`
	Valence          float64 `bson:"valence" json:"valence"`
	Tempo            float64 `bson:"tempo" json:"tempo"`
	DurationMs       int     `bson:"duration_ms" json:"duration_ms"`
	TimeSignature    int     `bson:"time_signature" json:"time_signature"`
}

// Song is a catalog track. ID is the catalog-assigned track id and is unique
// across all genres.
type Song struct {
	ID            string        `bson:"_id" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Artists       []Artist      `bson:"artists" json:"artists"`
	Album         Album         `bson:"album" json:"album"`
	Popularity    int           `bson:"popularity" json:"popularity"`
	Genre         string        `bson:"genre,omitempty" json:"genre,omitempty"` // empty when unknown
	AudioFeatures AudioFeatures `bson:"audioFeatures" json:"audioFeatures"`
	ImportedAt    time.Time     `bson:"importDate" json:"importDate"`
}

// ArtistIDs returns the ids of the song's artists in credit order.
func (s Song) ArtistIDs() []string {
	ids := make([]string, len(s.Artists))
	for i, a := range s.Artists {
		ids[i] = a.ID
	}
	return ids
}

// ArtistNames returns the names of the song's artists in credit order.
func (s Song) ArtistNames() []string {
	names := make([]string, len(s.Artists))
	for i, a := range s.Artists {
		names[i] = a.Name
	}
	return names
}

// CoverURL returns the first album image URL, or "" if the album has none.
func (s Song) CoverURL() string {
	if len(s.Album.Images) == 0 {
		return ""
	}
	return s.Album.Images[0].URL
}

// Preference is a single like/dislike judgment. Ratings of the same song by
// the same user are all retained.
type Preference struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	SongID    string    `bson:"songId" json:"songId"`
	Liked     bool      `bson:"liked" json:"liked"`
	CreatedAt time.Time `bson:"timestamp" json:"timestamp"`
}

// Answer is one selected option of a questionnaire.
type Answer struct {
	QuestionID string `bson:"questionId" json:"questionId"`
	OptionID   string `bson:"optionId" json:"optionId"`
}

// Questionnaire is an immutable questionnaire submission.
type Questionnaire struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	Answers   []Answer  `bson:"answers" json:"answers"`
	CreatedAt time.Time `bson:"timestamp" json:"timestamp"`
}

// RecommendedSong is one scored entry of a recommendation.
type RecommendedSong struct {
	SongID   string   `bson:"songId" json:"songId"`
	Name     string   `bson:"name" json:"name"`
	Artists  []string `bson:"artists" json:"artists"`
	Score    float64  `bson:"score" json:"score"`
	ImageURL string   `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

// Recommendation is a generated playlist-like record.
type Recommendation struct {
	ID              string            `bson:"_id" json:"id"`
	UserID          string            `bson:"userId" json:"userId"`
	QuestionnaireID string            `bson:"questionnaireId,omitempty" json:"questionnaireId,omitempty"`
	Name            string            `bson:"name" json:"name"`
	Description     string            `bson:"description" json:"description"`
	PlaylistName    string            `bson:"playlistName,omitempty" json:"playlistName,omitempty"` // user-assigned
	Mood            string            `bson:"mood" json:"mood"`
	Activity        string            `bson:"activity" json:"activity"`
	Tempo           string            `bson:"tempo" json:"tempo"`
	Discovery       string            `bson:"discovery" json:"discovery"`
	Songs           []RecommendedSong `bson:"recommendations" json:"recommendations"`
	CreatedAt       time.Time         `bson:"timestamp" json:"timestamp"`
}

// DisplayName returns the user-assigned name if set, else the generated one.
func (r Recommendation) DisplayName() string {
	if r.PlaylistName != "" {
		return r.PlaylistName
	}
	return r.Name
}
