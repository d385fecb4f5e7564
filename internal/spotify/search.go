package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// MaxSearchLimit is the largest page the search endpoint accepts.
const MaxSearchLimit = 50

// MaxSearchOffset bounds offset+limit; deeper pages are rejected with a 400.
const MaxSearchOffset = 1000

// Artist is an artist credit on a catalog track.
type Artist struct {
	ID   string
	Name string
}

// Image is one album cover resolution.
type Image struct {
	URL    string
	Height int
	Width  int
}

// Album is the album a catalog track appears on.
type Album struct {
	ID          string
	Name        string
	ReleaseDate string
	Images      []Image
}

// Track contains the catalog metadata returned by a search.
type Track struct {
	ID         string
	Name       string
	Artists    []Artist
	Album      Album
	Popularity int
}

// SearchGenre returns one page of tracks tagged with genre. An empty slice
// means the page had no tracks; it does not mean the genre is exhausted.
func (c *Client) SearchGenre(ctx context.Context, genre string, limit, offset int) ([]Track, error) {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	result, err := c.api.Search(ctx, "genre:"+genre, spotify.SearchTypeTrack,
		spotify.Limit(limit),
		spotify.Offset(offset),
		spotify.Market(c.market),
	)
	if err != nil {
		return nil, fmt.Errorf("searching genre %s at offset %d: %w", genre, offset, err)
	}
	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(ft))
	}
	return tracks, nil
}

// convertTrack converts a Spotify FullTrack to a catalog Track.
func convertTrack(ft spotify.FullTrack) Track {
	artists := make([]Artist, len(ft.Artists))
	for i, a := range ft.Artists {
		artists[i] = Artist{ID: a.ID.String(), Name: a.Name}
	}

	images := make([]Image, len(ft.Album.Images))
	for i, img := range ft.Album.Images {
		images[i] = Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)}
	}

	return Track{
		ID:      ft.ID.String(),
		Name:    ft.Name,
		Artists: artists,
		Album: Album{
			ID:          ft.Album.ID.String(),
			Name:        ft.Album.Name,
			ReleaseDate: ft.Album.ReleaseDate,
			Images:      images,
		},
		Popularity: int(ft.Popularity),
	}
}

// StatusCode extracts the HTTP status from an API or token error, or 0 if
// err carries none.
func StatusCode(err error) int {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil {
		return tokenErr.Response.StatusCode
	}
	return 0
}

// IsClientError reports whether err is a 4xx response that retrying cannot
// fix. Rate limiting (429) is not a client error.
func IsClientError(err error) bool {
	status := StatusCode(err)
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
