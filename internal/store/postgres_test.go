package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutbook/seedscan/internal/model"
)

func TestPostgres_FindGlobalBySourceURL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	key := "okra::clemson spineless"
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM extract_cache WHERE source_url = \$1`).
		WithArgs("https://vendor.example/products/okra").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_url", "user_id", "identity_key", "vendor", "record", "quality", "updated_at",
		}).AddRow(
			"11111111-1111-1111-1111-111111111111",
			"https://vendor.example/products/okra", "", &key, "Vendor",
			[]byte(`{"vendor":"Vendor","plant_type":"Okra","variety":"Clemson Spineless","source_url":"https://vendor.example/products/okra","growing_specs":{}}`),
			"full", now,
		))

	s := NewPostgresWithPool(mock)
	got, err := s.FindGlobalBySourceURL(context.TODO(), "https://vendor.example/products/okra")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Clemson Spineless", got[0].Record.Variety)
	assert.Equal(t, key, got[0].IdentityKey)
	assert.Equal(t, model.QualityFull, got[0].Quality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO extract_cache`).
		WithArgs(pgxmock.AnyArg(), "https://vendor.example/products/okra", "u1",
			"okra::clemson spineless", "Vendor", pgxmock.AnyArg(), "partial", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	err = s.SaveRecord(context.TODO(), &model.CacheRow{
		SourceURL:   "https://vendor.example/products/okra",
		UserID:      "u1",
		IdentityKey: "okra::clemson spineless",
		Vendor:      "Vendor",
		Record:      model.ExtractedRecord{PlantType: "Okra", Variety: "Clemson Spineless"},
		Quality:     model.QualityPartial,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveAttempt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO search_attempts`).
		WithArgs(pgxmock.AnyArg(), "https://vendor.example/products/okra", "", pgxmock.AnyArg(),
			"rescue", 1, false, 0, "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	att := model.SearchAttempt{URL: "https://vendor.example/products/okra", Stage: "rescue", PassNumber: 1}
	require.NoError(t, s.SaveAttempt(context.TODO(), &att))
	assert.NotEmpty(t, att.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
