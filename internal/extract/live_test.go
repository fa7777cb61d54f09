package extract

import (
	"context"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutbook/seedscan/internal/rules"
)

// fakeGen scripts Generator replies for tests across this package.
type fakeGen struct {
	replies []string
	err     error
	prompts []string
	urls    []string
	search  []bool
}

func (f *fakeGen) Generate(_ context.Context, prompt, url string, searchEnabled bool) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.urls = append(f.urls, url)
	f.search = append(f.search, searchEnabled)
	if f.err != nil {
		return "", f.err
	}
	idx := len(f.prompts) - 1
	if idx >= len(f.replies) {
		return "", nil
	}
	return f.replies[idx], nil
}

func TestLiveExtract_MergesAIAndScrape(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>
<script type="application/ld+json">{"image":"https://img.example/okra.jpg"}</script>
</body></html>`)
	url := srv.URL + "/products/clemson-spineless-okra"

	gen := &fakeGen{replies: []string{
		`{"plant_type":"Okra","variety":"Clemson Spineless Okra 2024","vendor":"","tags":[]}`,
	}}
	e := NewLive(NewFetcher(rules.Default()), gen, rules.Default())

	res, err := e.Extract(context.TODO(), url)
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, http.StatusOK, res.PageStatus)
	assert.Equal(t, "Okra", res.Record.PlantType)
	assert.Equal(t, "Clemson Spineless Okra 2024", res.Record.Variety)
	assert.Equal(t, "https://img.example/okra.jpg", res.Record.HeroImageURL)
	assert.Equal(t, url, res.Record.SourceURL)
	require.Len(t, gen.search, 1)
	assert.True(t, gen.search[0])
}

func TestLiveExtract_ScrapeImageWinsOverAI(t *testing.T) {
	srv := serveHTML(t, http.StatusOK,
		`<meta property="og:image" content="https://img.example/page.jpg">`)

	gen := &fakeGen{replies: []string{
		`{"variety":"Roma","hero_image_url":"https://img.example/ai-guess.jpg"}`,
	}}
	e := NewLive(NewFetcher(rules.Default()), gen, rules.Default())

	res, err := e.Extract(context.TODO(), srv.URL+"/products/roma")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/page.jpg", res.Record.HeroImageURL)
}

func TestLiveExtract_LinkDead(t *testing.T) {
	srv := serveHTML(t, http.StatusNotFound, "gone")

	gen := &fakeGen{replies: []string{`{"variety":"Roma"}`}}
	e := NewLive(NewFetcher(rules.Default()), gen, rules.Default())

	res, err := e.Extract(context.TODO(), srv.URL+"/products/roma")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.PageStatus)
	assert.Empty(t, res.Record.Variety, "no record is assembled for a dead link")
}

func TestLiveExtract_RateLimited(t *testing.T) {
	srv := serveHTML(t, http.StatusTooManyRequests, "slow down")

	e := NewLive(NewFetcher(rules.Default()), &fakeGen{}, rules.Default())
	res, err := e.Extract(context.TODO(), srv.URL+"/products/roma")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.PageStatus)
}

func TestLiveExtract_AIAbsentFallsBackToURL(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, "<html><body>plain page</body></html>")

	gen := &fakeGen{err: eris.New("model unavailable")}
	e := NewLive(NewFetcher(rules.Default()), gen, rules.Default())

	res, err := e.Extract(context.TODO(), srv.URL+"/products/golden-bantam-corn")
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, "Golden Bantam Corn", res.Record.Variety)
}

func TestLiveExtract_UnparseableAIFallsBack(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, "<html><body></body></html>")

	gen := &fakeGen{replies: []string{"I cannot access that page."}}
	e := NewLive(NewFetcher(rules.Default()), gen, rules.Default())

	res, err := e.Extract(context.TODO(), srv.URL+"/products/golden-bantam-corn")
	require.NoError(t, err)
	assert.True(t, res.Failed)
}

func TestLiveExtract_PageTitlePassedThrough(t *testing.T) {
	srv := serveHTML(t, http.StatusOK,
		`<meta property="og:title" content="Detroit Dark Red Beet">`)

	gen := &fakeGen{replies: []string{`{"plant_type":"Beet","variety":"Detroit"}`}}
	e := NewLive(NewFetcher(rules.Default()), gen, rules.Default())

	res, err := e.Extract(context.TODO(), srv.URL+"/products/detroit-dark-red")
	require.NoError(t, err)
	assert.Equal(t, "Detroit Dark Red Beet", res.PageTitle)
}
