// Package mongo implements db.Store on MongoDB, the primary document store.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// Collection names.
const (
	SongsCollection           = "songs"
	PreferencesCollection     = "preferences"
	QuestionnairesCollection  = "questionnaires"
	RecommendationsCollection = "recommendations"
)

// duplicateKeyCode is the server error code for a unique index violation.
const duplicateKeyCode = 11000

// Store wraps a MongoDB client bound to one database.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// Open connects to uri, verifies the connection and ensures indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := &Store{client: client, database: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the indexes the query patterns rely on. Song ids are
// stored as _id, which is unique by construction.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		SongsCollection: {
			{Keys: bson.D{{Key: "genre", Value: 1}}},
			{Keys: bson.D{{Key: "popularity", Value: -1}, {Key: "importDate", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "artists.id", Value: 1}}},
		},
		PreferencesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		QuestionnairesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		RecommendationsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting from mongodb: %w", err)
	}
	return nil
}

// Songs returns a SongRepository.
func (s *Store) Songs() db.SongRepository {
	return &SongRepository{coll: s.database.Collection(SongsCollection)}
}

// Preferences returns a PreferenceRepository.
func (s *Store) Preferences() db.PreferenceRepository {
	return &PreferenceRepository{coll: s.database.Collection(PreferencesCollection)}
}

// Questionnaires returns a QuestionnaireRepository.
func (s *Store) Questionnaires() db.QuestionnaireRepository {
	return &QuestionnaireRepository{coll: s.database.Collection(QuestionnairesCollection)}
}

// Recommendations returns a RecommendationRepository.
func (s *Store) Recommendations() db.RecommendationRepository {
	return &RecommendationRepository{coll: s.database.Collection(RecommendationsCollection)}
}
