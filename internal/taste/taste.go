// Package taste summarizes what a user likes by clustering the audio
// features of their liked songs into mood groups.
package taste

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
)

// Config holds clustering parameters.
type Config struct {
	NumClusters int // upper bound; fewer liked songs mean fewer clusters
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{NumClusters: 3}
}

// Cluster is a group of liked songs with a similar feel.
type Cluster struct {
	Mood      MoodCategory       `json:"mood"`
	Centroid  map[string]float64 `json:"centroid"`
	SongIDs   []string           `json:"songIds"`
	Genres    []GenreCount       `json:"genres"`
	Period    string             `json:"period"` // when the songs were liked
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
}

// GenreCount is the number of liked songs of one genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Profile is a user's taste summary.
type Profile struct {
	UserID     string       `json:"userId"`
	LikedSongs int          `json:"likedSongs"`
	TopGenres  []GenreCount `json:"topGenres"`
	Clusters   []Cluster    `json:"clusters"`
}

// LikedSong is a liked catalog song and when it was liked.
type LikedSong struct {
	Song    db.Song
	LikedAt time.Time
}

// Service builds taste profiles.
type Service struct {
	store db.Store
	cfg   Config
}

// New creates a taste service.
func New(store db.Store, cfg Config) *Service {
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}
	return &Service{store: store, cfg: cfg}
}

// Profile returns the taste profile of the user's liked songs. A song liked
// more than once counts once, at its first like.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	prefs, err := s.store.Preferences().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}

	likedAt := make(map[string]time.Time)
	var ids []string
	for _, p := range prefs {
		if !p.Liked {
			continue
		}
		if _, ok := likedAt[p.SongID]; !ok {
			likedAt[p.SongID] = p.CreatedAt
			ids = append(ids, p.SongID)
		}
	}

	profile := &Profile{UserID: userID, TopGenres: []GenreCount{}, Clusters: []Cluster{}}
	if len(ids) == 0 {
		return profile, nil
	}

	songs, err := s.store.Songs().GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading liked songs: %w", err)
	}
	liked := make([]LikedSong, len(songs))
	for i, song := range songs {
		liked[i] = LikedSong{Song: song, LikedAt: likedAt[song.ID]}
	}

	profile.LikedSongs = len(liked)
	profile.TopGenres = countGenres(liked)
	profile.Clusters, err = ClusterSongs(liked, s.cfg.NumClusters)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("clustering liked songs failed")
		profile.Clusters = []Cluster{}
	}
	return profile, nil
}

// songObservation wraps a liked song to implement clusters.Observation.
type songObservation struct {
	song   *LikedSong
	coords clusters.Coordinates
}

func (o songObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o songObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// featureNames defines the audio features used for clustering.
var featureNames = []string{"energy", "valence", "danceability", "acousticness"}

func extractFeatures(f db.AudioFeatures) clusters.Coordinates {
	return clusters.Coordinates{f.Energy, f.Valence, f.Danceability, f.Acousticness}
}

// ClusterSongs groups songs into at most k clusters with k-means. Empty
// clusters are dropped; the rest are ordered largest first.
func ClusterSongs(songs []LikedSong, k int) ([]Cluster, error) {
	if len(songs) == 0 {
		return []Cluster{}, nil
	}
	var obs clusters.Observations
	distinct := make(map[[4]float64]bool)
	for i := range songs {
		coords := extractFeatures(songs[i].Song.AudioFeatures)
		distinct[[4]float64(coords)] = true
		obs = append(obs, songObservation{song: &songs[i], coords: coords})
	}
	// Songs of one genre share a feature vector; k-means needs k distinct points.
	k = max(1, min(k, len(distinct)))
	if k == 1 {
		members := make([]*LikedSong, len(songs))
		for i := range songs {
			members[i] = &songs[i]
		}
		return []Cluster{buildCluster(members)}, nil
	}

	result, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("k-means: %w", err)
	}

	out := make([]Cluster, 0, len(result))
	for _, c := range result {
		var members []*LikedSong
		for _, o := range c.Observations {
			if so, ok := o.(songObservation); ok {
				members = append(members, so.song)
			}
		}
		if len(members) == 0 {
			continue
		}
		out = append(out, buildCluster(members))
	}

	slices.SortStableFunc(out, func(a, b Cluster) int {
		if c := cmp.Compare(len(b.SongIDs), len(a.SongIDs)); c != 0 {
			return c
		}
		return a.StartDate.Compare(b.StartDate)
	})
	return out, nil
}

// buildCluster summarizes members. The centroid is the members' mean, not
// the k-means center, which is left at its random seed when no point moves.
func buildCluster(members []*LikedSong) Cluster {
	slices.SortFunc(members, func(a, b *LikedSong) int {
		return a.LikedAt.Compare(b.LikedAt)
	})

	centroid := meanFeatures(members)

	ids := make([]string, len(members))
	liked := make([]LikedSong, len(members))
	for i, m := range members {
		ids[i] = m.Song.ID
		liked[i] = *m
	}

	start := members[0].LikedAt
	end := members[len(members)-1].LikedAt
	return Cluster{
		Mood:      GetMoodCategory(centroid),
		Centroid:  centroid,
		SongIDs:   ids,
		Genres:    countGenres(liked),
		Period:    formatPeriod(start, end),
		StartDate: start,
		EndDate:   end,
	}
}

func meanFeatures(members []*LikedSong) map[string]float64 {
	sums := make([]float64, len(featureNames))
	for _, m := range members {
		for i, v := range extractFeatures(m.Song.AudioFeatures) {
			sums[i] += v
		}
	}
	centroid := make(map[string]float64, len(featureNames))
	for i, name := range featureNames {
		centroid[name] = sums[i] / float64(len(members))
	}
	return centroid
}

// countGenres counts songs per genre, most common first.
func countGenres(songs []LikedSong) []GenreCount {
	counts := make(map[string]int)
	for _, s := range songs {
		if s.Song.Genre != "" {
			counts[s.Song.Genre]++
		}
	}
	out := make([]GenreCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, GenreCount{Genre: g, Count: n})
	}
	slices.SortFunc(out, func(a, b GenreCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Genre, b.Genre)
	})
	return out
}

// formatPeriod renders a date range.
func formatPeriod(start, end time.Time) string {
	const dateFormat = "Jan 2, 2006"
	startStr := start.Format(dateFormat)
	endStr := end.Format(dateFormat)

	if startStr == endStr {
		return startStr
	}
	return fmt.Sprintf("%s - %s", startStr, endStr)
}
