package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS songs (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		artists        JSONB NOT NULL DEFAULT '[]',
		artist_ids     TEXT[] NOT NULL DEFAULT '{}',
		album          JSONB NOT NULL DEFAULT '{}',
		popularity     INT NOT NULL DEFAULT 0,
		genre          TEXT,
		audio_features JSONB NOT NULL DEFAULT '{}',
		imported_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS songs_genre_idx ON songs (genre)`,
	`CREATE INDEX IF NOT EXISTS songs_popularity_idx ON songs (popularity DESC, imported_at ASC, id ASC)`,
	`CREATE INDEX IF NOT EXISTS songs_artist_ids_idx ON songs USING GIN (artist_ids)`,

	`CREATE TABLE IF NOT EXISTS preferences (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		song_id    TEXT NOT NULL,
		liked      BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS preferences_user_idx ON preferences (user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS questionnaires (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		answers    JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS questionnaires_user_idx ON questionnaires (user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS recommendations (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		questionnaire_id TEXT,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL,
		playlist_name    TEXT,
		mood             TEXT NOT NULL,
		activity         TEXT NOT NULL,
		tempo            TEXT NOT NULL,
		discovery        TEXT NOT NULL,
		songs            JSONB NOT NULL DEFAULT '[]',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS recommendations_user_idx ON recommendations (user_id, created_at DESC)`,
}
