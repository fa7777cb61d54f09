package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sproutbook/seedscan/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. It exists so tests
// can substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS extract_cache (
	id           UUID PRIMARY KEY,
	source_url   TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	identity_key TEXT,
	vendor       TEXT,
	record       JSONB NOT NULL,
	quality      TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source_url, user_id)
);

CREATE TABLE IF NOT EXISTS search_attempts (
	id               UUID PRIMARY KEY,
	url              TEXT NOT NULL,
	vendor           TEXT,
	identity_key     TEXT,
	stage            TEXT NOT NULL,
	pass_number      INT NOT NULL,
	success          BOOLEAN NOT NULL DEFAULT false,
	status_code      INT,
	query_used       TEXT,
	result_image_url TEXT,
	at               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_extract_cache_source_url ON extract_cache(source_url);
CREATE INDEX IF NOT EXISTS idx_extract_cache_identity_key ON extract_cache(identity_key);
CREATE INDEX IF NOT EXISTS idx_search_attempts_url ON search_attempts(url);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresSelectCols = `id, source_url, user_id, identity_key, vendor, record, quality, updated_at`

func (s *PostgresStore) FindGlobalBySourceURL(ctx context.Context, sourceURL string) ([]model.CacheRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresSelectCols+` FROM extract_cache WHERE source_url = $1 AND user_id = '' ORDER BY updated_at DESC`,
		sourceURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find global by source url")
	}
	return scanPostgresRows(rows)
}

func (s *PostgresStore) FindUserBySourceURL(ctx context.Context, userID, sourceURL string) ([]model.CacheRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresSelectCols+` FROM extract_cache WHERE user_id = $1 AND source_url = $2 ORDER BY updated_at DESC`,
		userID, sourceURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find user by source url")
	}
	return scanPostgresRows(rows)
}

func (s *PostgresStore) FindByIdentityKey(ctx context.Context, key string, limit int) ([]model.CacheRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresSelectCols+` FROM extract_cache WHERE identity_key = $1 ORDER BY updated_at DESC LIMIT $2`,
		key, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find by identity key")
	}
	return scanPostgresRows(rows)
}

func (s *PostgresStore) SaveRecord(ctx context.Context, row *model.CacheRow) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	recordJSON, err := json.Marshal(row.Record)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO extract_cache (id, source_url, user_id, identity_key, vendor, record, quality, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_url, user_id) DO UPDATE SET
			identity_key = EXCLUDED.identity_key,
			vendor       = EXCLUDED.vendor,
			record       = EXCLUDED.record,
			quality      = EXCLUDED.quality,
			updated_at   = EXCLUDED.updated_at`,
		row.ID, row.SourceURL, row.UserID, nullEmpty(row.IdentityKey), row.Vendor,
		recordJSON, string(row.Quality), row.UpdatedAt)
	return eris.Wrap(err, "postgres: save record")
}

func (s *PostgresStore) SaveAttempt(ctx context.Context, att *model.SearchAttempt) error {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	if att.At.IsZero() {
		att.At = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_attempts (id, url, vendor, identity_key, stage, pass_number, success, status_code, query_used, result_image_url, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		att.ID, att.URL, att.Vendor, nullEmpty(att.IdentityKey), att.Stage, att.PassNumber,
		att.Success, att.StatusCode, att.QueryUsed, att.ResultImageURL, att.At)
	return eris.Wrap(err, "postgres: save attempt")
}

func scanPostgresRows(rows pgx.Rows) ([]model.CacheRow, error) {
	defer rows.Close()
	var out []model.CacheRow
	for rows.Next() {
		var (
			row         model.CacheRow
			identityKey *string
			recordJSON  []byte
			quality     string
		)
		if err := rows.Scan(&row.ID, &row.SourceURL, &row.UserID, &identityKey,
			&row.Vendor, &recordJSON, &quality, &row.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cache row")
		}
		if identityKey != nil {
			row.IdentityKey = *identityKey
		}
		row.Quality = model.Quality(quality)
		if err := json.Unmarshal(recordJSON, &row.Record); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate cache rows")
}
