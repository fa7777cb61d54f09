// Package store persists extraction results and search attempt audits.
// Two backends are provided: SQLite for single-user CLI runs and
// Postgres for shared deployments.
package store

import (
	"context"

	"github.com/sproutbook/seedscan/internal/model"
)

// Store is the persistence interface used by the cache resolver and the
// pipeline. Find methods return an empty slice (not an error) when
// nothing matches.
type Store interface {
	// FindGlobalBySourceURL returns shared cache rows (no owner) for a
	// source URL, newest first.
	FindGlobalBySourceURL(ctx context.Context, sourceURL string) ([]model.CacheRow, error)

	// FindUserBySourceURL returns cached rows for a source URL owned by
	// one user, newest first.
	FindUserBySourceURL(ctx context.Context, userID, sourceURL string) ([]model.CacheRow, error)

	// FindByIdentityKey returns up to limit rows sharing an identity
	// key, newest first.
	FindByIdentityKey(ctx context.Context, key string, limit int) ([]model.CacheRow, error)

	// SaveRecord upserts a cache row keyed by (source_url, user_id).
	// A missing ID is filled in with a fresh UUID.
	SaveRecord(ctx context.Context, row *model.CacheRow) error

	// SaveAttempt appends one search attempt audit record.
	SaveAttempt(ctx context.Context, att *model.SearchAttempt) error

	Migrate(ctx context.Context) error
	Close() error
}
