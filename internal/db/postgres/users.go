package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// PreferenceRepository handles preference database operations.
type PreferenceRepository struct {
	pool *pgxpool.Pool
}

// Insert stores a preference.
func (r *PreferenceRepository) Insert(ctx context.Context, p *db.Preference) error {
	query := `
		INSERT INTO preferences (id, user_id, song_id, liked, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, p.ID, p.UserID, p.SongID, p.Liked, p.CreatedAt); err != nil {
		return fmt.Errorf("inserting preference: %w", err)
	}
	return nil
}

// CountByUser returns the number of preferences recorded by a user.
func (r *PreferenceRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM preferences WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting preferences: %w", err)
	}
	return n, nil
}

// CountLiked returns the number of liked preferences recorded by a user.
func (r *PreferenceRepository) CountLiked(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM preferences WHERE user_id = $1 AND liked`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting liked preferences: %w", err)
	}
	return n, nil
}

// ListByUser returns a user's preferences, oldest first.
func (r *PreferenceRepository) ListByUser(ctx context.Context, userID string) ([]db.Preference, error) {
	query := `
		SELECT id, user_id, song_id, liked, created_at
		FROM preferences
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	var prefs []db.Preference
	for rows.Next() {
		var p db.Preference
		if err := rows.Scan(&p.ID, &p.UserID, &p.SongID, &p.Liked, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// QuestionnaireRepository handles questionnaire database operations.
type QuestionnaireRepository struct {
	pool *pgxpool.Pool
}

const selectQuestionnaires = `
	SELECT id, user_id, answers, created_at
	FROM questionnaires
`

// Insert stores a questionnaire.
func (r *QuestionnaireRepository) Insert(ctx context.Context, q *db.Questionnaire) error {
	query := `
		INSERT INTO questionnaires (id, user_id, answers, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, q.ID, q.UserID, q.Answers, q.CreatedAt); err != nil {
		return fmt.Errorf("inserting questionnaire: %w", err)
	}
	return nil
}

// Get retrieves a questionnaire owned by userID.
func (r *QuestionnaireRepository) Get(ctx context.Context, id, userID string) (*db.Questionnaire, error) {
	row := r.pool.QueryRow(ctx, selectQuestionnaires+`WHERE id = $1 AND user_id = $2`, id, userID)
	return scanQuestionnaire(row)
}

// Latest retrieves the user's most recent questionnaire.
func (r *QuestionnaireRepository) Latest(ctx context.Context, userID string) (*db.Questionnaire, error) {
	row := r.pool.QueryRow(ctx, selectQuestionnaires+`WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	return scanQuestionnaire(row)
}

// ListByUser returns up to limit questionnaires, newest first.
func (r *QuestionnaireRepository) ListByUser(ctx context.Context, userID string, limit int) ([]db.Questionnaire, error) {
	query := selectQuestionnaires + `WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying questionnaires: %w", err)
	}
	defer rows.Close()

	var list []db.Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *q)
	}
	return list, rows.Err()
}

func scanQuestionnaire(row pgx.Row) (*db.Questionnaire, error) {
	var q db.Questionnaire
	err := row.Scan(&q.ID, &q.UserID, &q.Answers, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning questionnaire: %w", err)
	}
	return &q, nil
}

// RecommendationRepository handles recommendation database operations.
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

const selectRecommendations = `
	SELECT id, user_id, questionnaire_id, name, description, playlist_name,
		mood, activity, tempo, discovery, songs, created_at
	FROM recommendations
`

// Insert stores a recommendation.
func (r *RecommendationRepository) Insert(ctx context.Context, rec *db.Recommendation) error {
	query := `
		INSERT INTO recommendations (id, user_id, questionnaire_id, name, description, playlist_name,
			mood, activity, tempo, discovery, songs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	songs := rec.Songs
	if songs == nil {
		songs = []db.RecommendedSong{}
	}
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		nullable(rec.QuestionnaireID),
		rec.Name,
		rec.Description,
		nullable(rec.PlaylistName),
		rec.Mood,
		rec.Activity,
		rec.Tempo,
		rec.Discovery,
		songs,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting recommendation: %w", err)
	}
	return nil
}

// Get retrieves a recommendation owned by userID.
func (r *RecommendationRepository) Get(ctx context.Context, id, userID string) (*db.Recommendation, error) {
	row := r.pool.QueryRow(ctx, selectRecommendations+`WHERE id = $1 AND user_id = $2`, id, userID)
	return scanRecommendation(row)
}

// ListByUser returns up to limit recommendations, newest first.
func (r *RecommendationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]db.Recommendation, error) {
	query := selectRecommendations + `WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var list []db.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

// Rename sets the playlist name of a recommendation owned by userID.
func (r *RecommendationRepository) Rename(ctx context.Context, id, userID, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE recommendations SET playlist_name = $3 WHERE id = $1 AND user_id = $2`,
		id, userID, name,
	)
	if err != nil {
		return fmt.Errorf("renaming recommendation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func scanRecommendation(row pgx.Row) (*db.Recommendation, error) {
	var rec db.Recommendation
	var questionnaireID, playlistName *string
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&questionnaireID,
		&rec.Name,
		&rec.Description,
		&playlistName,
		&rec.Mood,
		&rec.Activity,
		&rec.Tempo,
		&rec.Discovery,
		&rec.Songs,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning recommendation: %w", err)
	}
	rec.QuestionnaireID = deref(questionnaireID)
	rec.PlaylistName = deref(playlistName)
	return &rec, nil
}
