package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// SongRepository handles song collection operations.
type SongRepository struct {
	coll *mongo.Collection
}

// popularitySort is the stable ordering shared by every song listing.
var popularitySort = bson.D{
	{Key: "popularity", Value: -1},
	{Key: "importDate", Value: 1},
	{Key: "_id", Value: 1},
}

// Count returns the number of songs in the catalog.
func (r *SongRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting songs: %w", err)
	}
	return n, nil
}

// CountByGenre returns the number of songs tagged with genre.
func (r *SongRepository) CountByGenre(ctx context.Context, genre string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"genre": genre})
	if err != nil {
		return 0, fmt.Errorf("counting songs for genre %s: %w", genre, err)
	}
	return n, nil
}

// ExistingIDs returns which of ids are already stored.
func (r *SongRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying existing songs: %w", err)
	}

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding existing songs: %w", err)
	}
	for _, d := range docs {
		existing[d.ID] = true
	}
	return existing, nil
}

// InsertMany inserts songs unordered. Duplicate ids are skipped; any other
// write error fails the call.
func (r *SongRepository) InsertMany(ctx context.Context, songs []db.Song) (int, error) {
	if len(songs) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(songs))
	for i, s := range songs {
		docs[i] = s
	}

	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(songs), nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return 0, fmt.Errorf("inserting songs: %w", err)
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return 0, fmt.Errorf("inserting songs: %w", err)
		}
	}
	return len(songs) - len(bwe.WriteErrors), nil
}

// Genres returns the distinct non-empty genres, sorted.
func (r *SongRepository) Genres(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "genre", bson.M{"genre": bson.M{"$nin": bson.A{nil, ""}}})
	if err != nil {
		return nil, fmt.Errorf("listing genres: %w", err)
	}

	genres := make([]string, 0, len(values))
	for _, v := range values {
		if g, ok := v.(string); ok && g != "" {
			genres = append(genres, g)
		}
	}
	slices.Sort(genres)
	return genres, nil
}

// Find runs a typed song query.
func (r *SongRepository) Find(ctx context.Context, q db.SongQuery) ([]db.Song, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(popularitySort).SetLimit(int64(q.Limit))
	cur, err := r.coll.Find(ctx, songFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("querying songs: %w", err)
	}

	var songs []db.Song
	if err := cur.All(ctx, &songs); err != nil {
		return nil, fmt.Errorf("decoding songs: %w", err)
	}
	return songs, nil
}

// songFilter translates a SongQuery into a MongoDB filter document.
func songFilter(q db.SongQuery) bson.M {
	filter := bson.M{}
	if len(q.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": q.ExcludeIDs}
	}

	var or bson.A
	if len(q.Genres) > 0 {
		or = append(or, bson.M{"genre": bson.M{"$in": q.Genres}})
	}
	if len(q.ArtistIDs) > 0 {
		or = append(or, bson.M{"artists.id": bson.M{"$in": q.ArtistIDs}})
	}
	if len(or) > 0 {
		filter["$or"] = or
	}
	return filter
}

// GetMany returns the songs with the given ids.
func (r *SongRepository) GetMany(ctx context.Context, ids []string) ([]db.Song, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("querying songs by id: %w", err)
	}

	var songs []db.Song
	if err := cur.All(ctx, &songs); err != nil {
		return nil, fmt.Errorf("decoding songs: %w", err)
	}
	return songs, nil
}
