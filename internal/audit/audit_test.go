package audit

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sproutbook/seedscan/internal/model"
)

type captureStore struct {
	attempts []model.SearchAttempt
	err      error
}

func (c *captureStore) SaveAttempt(_ context.Context, att *model.SearchAttempt) error {
	if c.err != nil {
		return c.err
	}
	c.attempts = append(c.attempts, *att)
	return nil
}

func (c *captureStore) FindGlobalBySourceURL(context.Context, string) ([]model.CacheRow, error) {
	return nil, nil
}
func (c *captureStore) FindUserBySourceURL(context.Context, string, string) ([]model.CacheRow, error) {
	return nil, nil
}
func (c *captureStore) FindByIdentityKey(context.Context, string, int) ([]model.CacheRow, error) {
	return nil, nil
}
func (c *captureStore) SaveRecord(context.Context, *model.CacheRow) error { return nil }
func (c *captureStore) Migrate(context.Context) error                     { return nil }
func (c *captureStore) Close() error                                      { return nil }

func TestStoreSink_Records(t *testing.T) {
	cs := &captureStore{}
	sink := StoreSink{Store: cs}

	sink.Record(context.TODO(), model.SearchAttempt{URL: "https://vendor.example/x", Stage: "rescue", PassNumber: 1})
	assert.Len(t, cs.attempts, 1)
	assert.Equal(t, "rescue", cs.attempts[0].Stage)
}

func TestStoreSink_SwallowsErrors(t *testing.T) {
	sink := StoreSink{Store: &captureStore{err: eris.New("boom")}}
	// Must not panic or propagate.
	sink.Record(context.TODO(), model.SearchAttempt{URL: "https://vendor.example/x", Stage: "hero_photo"})
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &captureStore{}, &captureStore{}
	m := Multi{StoreSink{Store: a}, StoreSink{Store: b}, NopSink{}, ZapSink{}}

	m.Record(context.TODO(), model.SearchAttempt{URL: "https://vendor.example/x", Stage: "hero_photo", PassNumber: 3})
	assert.Len(t, a.attempts, 1)
	assert.Len(t, b.attempts, 1)
}
