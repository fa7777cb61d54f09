package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutbook/seedscan/internal/rules"
)

func serveHTML(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_OGImage(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><head>
<meta property="og:image" content="https://img.example/okra.jpg" />
<meta property="og:title" content="Clemson Spineless Okra" />
</head><body></body></html>`)

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/products/okra")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "https://img.example/okra.jpg", res.HeroImageURL)
	assert.Equal(t, "Clemson Spineless Okra", res.Title)
}

func TestFetch_RelativeImageResolved(t *testing.T) {
	srv := serveHTML(t, http.StatusOK,
		`<meta property="og:image" content="/cdn/okra.jpg">`)

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/products/okra")
	assert.Equal(t, srv.URL+"/cdn/okra.jpg", res.HeroImageURL)
}

func TestFetch_MainImageHeuristic(t *testing.T) {
	srv := serveHTML(t, http.StatusOK,
		`<img class="featured-image" src="https://img.example/hero.jpg">`)

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/p/x")
	assert.Equal(t, "https://img.example/hero.jpg", res.HeroImageURL)
}

func TestFetch_ProductImageHeuristic(t *testing.T) {
	srv := serveHTML(t, http.StatusOK,
		`<img id="product-photo" src="https://img.example/product.jpg">`)

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/p/x")
	assert.Equal(t, "https://img.example/product.jpg", res.HeroImageURL)
}

func TestFetch_JSONLDImage(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>
<script type="application/ld+json">{"@type":"Product","name":"Okra","image":"https://img.example/okra.jpg"}</script>
</body></html>`)

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/p/x")
	assert.Equal(t, "https://img.example/okra.jpg", res.HeroImageURL)
}

func TestFetch_JSONLDImageObject(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<script type="application/ld+json">
{"image":{"@type":"ImageObject","url":"https://img.example/obj.jpg"}}
</script>`)

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/p/x")
	assert.Equal(t, "https://img.example/obj.jpg", res.HeroImageURL)
}

func TestFetch_NotFound(t *testing.T) {
	srv := serveHTML(t, http.StatusNotFound, "gone")

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/p/x")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.True(t, res.LinkDead())
	assert.Empty(t, res.HeroImageURL)
}

func TestFetch_RateLimited(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		srv := serveHTML(t, status, "blocked")
		res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/p/x")
		assert.True(t, res.RateLimited(), "status %d", status)
	}
}

func TestFetch_NetworkErrorIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force connection refused

	res := NewFetcher(rules.Default()).Fetch(context.TODO(), srv.URL+"/p/x")
	assert.Equal(t, 0, res.StatusCode)
	assert.False(t, res.LinkDead())
}

func TestFetch_SendsStableUserAgent(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	f := NewFetcher(rules.Default())
	f.Fetch(context.TODO(), srv.URL+"/a")
	f.Fetch(context.TODO(), srv.URL+"/b")

	require.Len(t, agents, 2)
	assert.NotEmpty(t, agents[0])
	assert.Equal(t, agents[0], agents[1], "same host gets the same agent")
}

func TestUserAgentFor_Deterministic(t *testing.T) {
	assert.Equal(t, userAgentFor("vendor.example"), userAgentFor("vendor.example"))
}
