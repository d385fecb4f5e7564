package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-taste-engine/internal/db"
)

// SongRepository handles song database operations.
type SongRepository struct {
	pool *pgxpool.Pool
}

const selectSongs = `
	SELECT id, name, artists, album, popularity, genre, audio_features, imported_at
	FROM songs
`

// Count returns the number of songs in the catalog.
func (r *SongRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM songs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting songs: %w", err)
	}
	return n, nil
}

// CountByGenre returns the number of songs tagged with genre.
func (r *SongRepository) CountByGenre(ctx context.Context, genre string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM songs WHERE genre = $1`, genre).Scan(&n); err != nil {
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

	rows, err := r.pool.Query(ctx, `SELECT id FROM songs WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying existing songs: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning existing songs: %w", err)
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// InsertMany inserts songs in one batch. Rows whose id already exists are
// left untouched.
func (r *SongRepository) InsertMany(ctx context.Context, songs []db.Song) (int, error) {
	if len(songs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO songs (id, name, artists, artist_ids, album, popularity, genre, audio_features, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, s := range songs {
		batch.Queue(query,
			s.ID,
			s.Name,
			s.Artists,
			s.ArtistIDs(),
			s.Album,
			s.Popularity,
			nullable(s.Genre),
			s.AudioFeatures,
			s.ImportedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range songs {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("batch inserting songs: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// Genres returns the distinct non-empty genres, sorted.
func (r *SongRepository) Genres(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT genre FROM songs WHERE genre IS NOT NULL AND genre <> ''`)
	if err != nil {
		return nil, fmt.Errorf("listing genres: %w", err)
	}
	genres, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning genres: %w", err)
	}
	// Collation order differs between servers; sort bytewise.
	slices.Sort(genres)
	return genres, nil
}

// Find runs a typed song query.
func (r *SongRepository) Find(ctx context.Context, q db.SongQuery) ([]db.Song, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	where, args := songWhere(q)
	args = append(args, q.Limit)
	query := selectSongs + where +
		fmt.Sprintf(" ORDER BY popularity DESC, imported_at ASC, id ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying songs: %w", err)
	}
	return collectSongs(rows)
}

// songWhere builds the WHERE clause and positional args for q.
func songWhere(q db.SongQuery) (string, []any) {
	var conds []string
	var args []any

	if len(q.ExcludeIDs) > 0 {
		args = append(args, q.ExcludeIDs)
		conds = append(conds, fmt.Sprintf("NOT (id = ANY($%d::text[]))", len(args)))
	}

	var or []string
	if len(q.Genres) > 0 {
		args = append(args, q.Genres)
		or = append(or, fmt.Sprintf("genre = ANY($%d::text[])", len(args)))
	}
	if len(q.ArtistIDs) > 0 {
		args = append(args, q.ArtistIDs)
		or = append(or, fmt.Sprintf("artist_ids && $%d::text[]", len(args)))
	}
	if len(or) > 0 {
		conds = append(conds, "("+strings.Join(or, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// GetMany returns the songs with the given ids.
func (r *SongRepository) GetMany(ctx context.Context, ids []string) ([]db.Song, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectSongs+`WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying songs by id: %w", err)
	}
	return collectSongs(rows)
}

func collectSongs(rows pgx.Rows) ([]db.Song, error) {
	defer rows.Close()

	var songs []db.Song
	for rows.Next() {
		var s db.Song
		var genre *string
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Artists,
			&s.Album,
			&s.Popularity,
			&genre,
			&s.AudioFeatures,
			&s.ImportedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		s.Genre = deref(genre)
		songs = append(songs, s)
	}
	return songs, rows.Err()
}
