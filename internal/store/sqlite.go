package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sproutbook/seedscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS extract_cache (
	id           TEXT PRIMARY KEY,
	source_url   TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	identity_key TEXT,
	vendor       TEXT,
	record       TEXT NOT NULL,
	quality      TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (source_url, user_id)
);

CREATE TABLE IF NOT EXISTS search_attempts (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL,
	vendor           TEXT,
	identity_key     TEXT,
	stage            TEXT NOT NULL,
	pass_number      INTEGER NOT NULL,
	success          INTEGER NOT NULL DEFAULT 0,
	status_code      INTEGER,
	query_used       TEXT,
	result_image_url TEXT,
	at               DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_extract_cache_source_url ON extract_cache(source_url);
CREATE INDEX IF NOT EXISTS idx_extract_cache_identity_key ON extract_cache(identity_key);
CREATE INDEX IF NOT EXISTS idx_search_attempts_url ON search_attempts(url);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSelectCols = `id, source_url, user_id, identity_key, vendor, record, quality, updated_at`

func (s *SQLiteStore) FindGlobalBySourceURL(ctx context.Context, sourceURL string) ([]model.CacheRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSelectCols+` FROM extract_cache WHERE source_url = ? AND user_id = '' ORDER BY updated_at DESC`,
		sourceURL)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find global by source url")
	}
	return scanSQLiteRows(rows)
}

func (s *SQLiteStore) FindUserBySourceURL(ctx context.Context, userID, sourceURL string) ([]model.CacheRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSelectCols+` FROM extract_cache WHERE user_id = ? AND source_url = ? ORDER BY updated_at DESC`,
		userID, sourceURL)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find user by source url")
	}
	return scanSQLiteRows(rows)
}

func (s *SQLiteStore) FindByIdentityKey(ctx context.Context, key string, limit int) ([]model.CacheRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSelectCols+` FROM extract_cache WHERE identity_key = ? ORDER BY updated_at DESC LIMIT ?`,
		key, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find by identity key")
	}
	return scanSQLiteRows(rows)
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, row *model.CacheRow) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	recordJSON, err := json.Marshal(row.Record)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extract_cache (id, source_url, user_id, identity_key, vendor, record, quality, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_url, user_id) DO UPDATE SET
			identity_key = excluded.identity_key,
			vendor       = excluded.vendor,
			record       = excluded.record,
			quality      = excluded.quality,
			updated_at   = excluded.updated_at`,
		row.ID, row.SourceURL, row.UserID, nullEmpty(row.IdentityKey), row.Vendor,
		string(recordJSON), string(row.Quality), row.UpdatedAt)
	return eris.Wrap(err, "sqlite: save record")
}

func (s *SQLiteStore) SaveAttempt(ctx context.Context, att *model.SearchAttempt) error {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	if att.At.IsZero() {
		att.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_attempts (id, url, vendor, identity_key, stage, pass_number, success, status_code, query_used, result_image_url, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		att.ID, att.URL, att.Vendor, nullEmpty(att.IdentityKey), att.Stage, att.PassNumber,
		att.Success, att.StatusCode, att.QueryUsed, att.ResultImageURL, att.At)
	return eris.Wrap(err, "sqlite: save attempt")
}

func scanSQLiteRows(rows *sql.Rows) ([]model.CacheRow, error) {
	defer rows.Close()
	var out []model.CacheRow
	for rows.Next() {
		var (
			row         model.CacheRow
			identityKey sql.NullString
			recordJSON  string
			quality     string
		)
		if err := rows.Scan(&row.ID, &row.SourceURL, &row.UserID, &identityKey,
			&row.Vendor, &recordJSON, &quality, &row.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cache row")
		}
		row.IdentityKey = identityKey.String
		row.Quality = model.Quality(quality)
		if err := json.Unmarshal([]byte(recordJSON), &row.Record); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate cache rows")
}

func nullEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
