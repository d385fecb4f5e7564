package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// PreferenceRepository handles preference collection operations.
type PreferenceRepository struct {
	coll *mongo.Collection
}

// Insert stores a preference.
func (r *PreferenceRepository) Insert(ctx context.Context, p *db.Preference) error {
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("inserting preference: %w", err)
	}
	return nil
}

// CountByUser returns the number of preferences recorded by a user.
func (r *PreferenceRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("counting preferences: %w", err)
	}
	return n, nil
}

// CountLiked returns the number of liked preferences recorded by a user.
func (r *PreferenceRepository) CountLiked(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID, "liked": true})
	if err != nil {
		return 0, fmt.Errorf("counting liked preferences: %w", err)
	}
	return n, nil
}

// ListByUser returns a user's preferences, oldest first.
func (r *PreferenceRepository) ListByUser(ctx context.Context, userID string) ([]db.Preference, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}

	var prefs []db.Preference
	if err := cur.All(ctx, &prefs); err != nil {
		return nil, fmt.Errorf("decoding preferences: %w", err)
	}
	return prefs, nil
}

// QuestionnaireRepository handles questionnaire collection operations.
type QuestionnaireRepository struct {
	coll *mongo.Collection
}

// Insert stores a questionnaire.
func (r *QuestionnaireRepository) Insert(ctx context.Context, q *db.Questionnaire) error {
	if _, err := r.coll.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("inserting questionnaire: %w", err)
	}
	return nil
}

// Get retrieves a questionnaire owned by userID.
func (r *QuestionnaireRepository) Get(ctx context.Context, id, userID string) (*db.Questionnaire, error) {
	var q db.Questionnaire
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying questionnaire: %w", err)
	}
	return &q, nil
}

// Latest retrieves the user's most recent questionnaire.
func (r *QuestionnaireRepository) Latest(ctx context.Context, userID string) (*db.Questionnaire, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var q db.Questionnaire
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest questionnaire: %w", err)
	}
	return &q, nil
}

// ListByUser returns up to limit questionnaires, newest first.
func (r *QuestionnaireRepository) ListByUser(ctx context.Context, userID string, limit int) ([]db.Questionnaire, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying questionnaires: %w", err)
	}

	var list []db.Questionnaire
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decoding questionnaires: %w", err)
	}
	return list, nil
}

// RecommendationRepository handles recommendation collection operations.
type RecommendationRepository struct {
	coll *mongo.Collection
}

// Insert stores a recommendation.
func (r *RecommendationRepository) Insert(ctx context.Context, rec *db.Recommendation) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("inserting recommendation: %w", err)
	}
	return nil
}

// Get retrieves a recommendation owned by userID.
func (r *RecommendationRepository) Get(ctx context.Context, id, userID string) (*db.Recommendation, error) {
	var rec db.Recommendation
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recommendation: %w", err)
	}
	return &rec, nil
}

// ListByUser returns up to limit recommendations, newest first.
func (r *RecommendationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]db.Recommendation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}

	var list []db.Recommendation
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decoding recommendations: %w", err)
	}
	return list, nil
}

// Rename sets the playlist name. A match with no modification (same name)
// still counts as success.
func (r *RecommendationRepository) Rename(ctx context.Context, id, userID, name string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"playlistName": name}},
	)
	if err != nil {
		return fmt.Errorf("renaming recommendation: %w", err)
	}
	if res.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}
