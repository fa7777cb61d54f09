package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func fastBatchConfig() BatchConfig {
	return BatchConfig{
		GroupSize:    3,
		GroupDelay:   time.Millisecond,
		RetryBackoff: time.Millisecond,
	}
}

func TestRunBatch_AllSucceed(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, "<html><body></body></html>")

	liveGen := &fakeGen{replies: []string{
		`{"plant_type":"Okra","variety":"Clemson Spineless"}`,
		`{"plant_type":"Tomato","variety":"Roma"}`,
		`{"plant_type":"Corn","variety":"Golden Bantam"}`,
		`{"plant_type":"Beet","variety":"Detroit Dark Red"}`,
	}}
	p := newPipeline(testRules(), liveGen, &fakeGen{}, nil, nil)

	urls := []string{
		srv.URL + "/products/a",
		srv.URL + "/products/b",
		srv.URL + "/products/c",
		srv.URL + "/products/d",
	}
	items := p.RunBatch(context.TODO(), urls, "", fastBatchConfig())
	require.Len(t, items, 4)
	for _, item := range items {
		assert.NoError(t, item.Err, item.URL)
		require.NotNil(t, item.Result, item.URL)
	}
}

func TestRunBatch_RateLimitRetriedOnce(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		first := hits == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	liveGen := &fakeGen{replies: []string{
		`{"plant_type":"Okra","variety":"Clemson Spineless"}`,
		`{"plant_type":"Okra","variety":"Clemson Spineless"}`,
	}}
	p := newPipeline(testRules(), liveGen, &fakeGen{}, nil, nil)

	items := p.RunBatch(context.TODO(), []string{srv.URL + "/products/okra"}, "", fastBatchConfig())
	require.Len(t, items, 1)
	assert.NoError(t, items[0].Err, "second attempt succeeds")
}

func TestRunBatch_PersistentThrottleGivesUp(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newPipeline(testRules(), &fakeGen{}, &fakeGen{}, nil, nil)

	items := p.RunBatch(context.TODO(), []string{srv.URL + "/products/okra"}, "", fastBatchConfig())
	require.Len(t, items, 1)
	assert.True(t, eris.Is(items[0].Err, ErrRateLimited))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, hits, "exactly one retry")
}

func TestRunBatch_LimiterDeadlineRecordsError(t *testing.T) {
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, lim.Allow(), "drain the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := newPipeline(testRules(), &fakeGen{}, &fakeGen{}, nil, nil)
	cfg := fastBatchConfig()
	cfg.Limiter = lim

	// The next token is an hour away, so the limiter rejects the wait
	// up front while the context is still alive.
	items := p.RunBatch(ctx, []string{"https://vendor.example/products/okra"}, "", cfg)
	require.Len(t, items, 1)
	assert.Error(t, items[0].Err)
	assert.Nil(t, items[0].Result)
}

func TestRunBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(testRules(), &fakeGen{}, &fakeGen{}, nil, nil)
	items := p.RunBatch(ctx, []string{"https://vendor.example/a", "https://vendor.example/b"}, "", fastBatchConfig())
	require.Len(t, items, 2)
	for _, item := range items {
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
}
