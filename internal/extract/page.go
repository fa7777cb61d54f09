package extract

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/normalize"
	"github.com/sproutbook/seedscan/internal/rules"
)

const (
	defaultPageTimeout = 8 * time.Second
	maxBodyBytes       = 2 << 20
	maxJSONLDBlocks    = 5
)

// userAgents are realistic desktop browser strings. One is selected per
// hostname so repeated requests to the same vendor look consistent.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7; rv:126.0) Gecko/20100101 Firefox/126.0",
}

// userAgentFor hashes the hostname into the agent list.
func userAgentFor(host string) string {
	h := fnv.New32a()
	h.Write([]byte(host))
	return userAgents[h.Sum32()%uint32(len(userAgents))]
}

// PageResult is the outcome of one product page fetch. StatusCode 0
// means the page was never reached (network error or timeout).
type PageResult struct {
	StatusCode   int
	HeroImageURL string
	Title        string
}

// LinkDead reports a hard 404.
func (p *PageResult) LinkDead() bool { return p.StatusCode == http.StatusNotFound }

// RateLimited reports a 403 or 429, both treated as vendor throttling.
func (p *PageResult) RateLimited() bool {
	return p.StatusCode == http.StatusForbidden || p.StatusCode == http.StatusTooManyRequests
}

// Fetcher retrieves product pages and scrapes hero image and title.
type Fetcher struct {
	client  *http.Client
	rules   *rules.Rules
	timeout time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchClient overrides the HTTP client.
func WithFetchClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithFetchTimeout overrides the per-page timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// NewFetcher creates a page fetcher.
func NewFetcher(r *rules.Rules, opts ...FetcherOption) *Fetcher {
	if r == nil {
		r = rules.Default()
	}
	f := &Fetcher{
		client:  &http.Client{Timeout: defaultPageTimeout},
		rules:   r,
		timeout: defaultPageTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the page and scrapes it. It never returns an error:
// network failures and timeouts degrade to a zero StatusCode so the
// caller can treat the scrape branch as absent.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) *PageResult {
	result := &PageResult{}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return result
	}
	host := normalize.Host(sourceURL)
	req.Header.Set("User-Agent", userAgentFor(host))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("fetch: request failed", zap.String("url", sourceURL), zap.Error(err))
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		zap.L().Debug("fetch: read body failed", zap.String("url", sourceURL), zap.Error(err))
		return result
	}

	doc := string(body)
	result.HeroImageURL = f.extractHeroImage(doc, sourceURL, host)
	result.Title = normalize.ExtractTitle(doc, f.rules)
	return result
}

var (
	ogImageRe     = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)["']`)
	ogImageAltRe  = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']+)["'][^>]+property=["']og:image["']`)
	mainImageRe   = regexp.MustCompile(`(?is)<img[^>]+(?:class|id)=["'][^"']*(?:main|featured|hero)[^"']*["'][^>]*\bsrc=["']([^"']+)["']`)
	mainImageSrc  = regexp.MustCompile(`(?is)<img[^>]+\bsrc=["']([^"']+)["'][^>]*(?:class|id)=["'][^"']*(?:main|featured|hero)[^"']*["']`)
	productImgRe  = regexp.MustCompile(`(?is)<img[^>]+(?:class|id)=["'][^"']*product[^"']*["'][^>]*\bsrc=["']([^"']+)["']`)
	productImgSrc = regexp.MustCompile(`(?is)<img[^>]+\bsrc=["']([^"']+)["'][^>]*(?:class|id)=["'][^"']*product[^"']*["']`)
	jsonLDRe      = regexp.MustCompile(`(?is)<script[^>]+type=["']application/ld\+json["'][^>]*>(.*?)</script>`)
)

// extractHeroImage tries each scrape strategy in order and returns the
// first candidate that resolves to an absolute URL.
func (f *Fetcher) extractHeroImage(doc, baseURL, host string) string {
	if img := firstMatch(doc, ogImageRe, ogImageAltRe); img != "" {
		return absoluteImage(img, baseURL)
	}

	for _, pattern := range f.rules.SelectorsForHost(host) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			zap.L().Warn("fetch: bad image selector", zap.String("host", host), zap.Error(err))
			continue
		}
		if m := re.FindStringSubmatch(doc); len(m) > 1 {
			if img := absoluteImage(m[1], baseURL); img != "" {
				return img
			}
		}
	}

	if img := firstMatch(doc, mainImageRe, mainImageSrc); img != "" {
		return absoluteImage(img, baseURL)
	}
	if img := firstMatch(doc, productImgRe, productImgSrc); img != "" {
		return absoluteImage(img, baseURL)
	}
	if img := jsonLDImage(doc); img != "" {
		return absoluteImage(img, baseURL)
	}
	return ""
}

func firstMatch(doc string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(doc); len(m) > 1 {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// jsonLDImage scans a bounded number of structured-data blocks for an
// image field. Shapes seen in the wild: a string, an array of strings,
// or an ImageObject with a url key.
func jsonLDImage(doc string) string {
	matches := jsonLDRe.FindAllStringSubmatch(doc, maxJSONLDBlocks)
	for _, m := range matches {
		var data map[string]any
		if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
			continue
		}
		if img := jsonLDImageValue(data["image"]); img != "" {
			return img
		}
	}
	return ""
}

func jsonLDImageValue(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []any:
		for _, item := range img {
			if s := jsonLDImageValue(item); s != "" {
				return s
			}
		}
	case map[string]any:
		if s, ok := img["url"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// absoluteImage resolves a scraped image reference against the page URL
// and returns "" unless the result has an absolute http(s) scheme.
func absoluteImage(img, baseURL string) string {
	img = strings.TrimSpace(img)
	if img == "" {
		return ""
	}
	if model.IsAbsoluteURL(img) {
		return img
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(img)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref).String()
	if !model.IsAbsoluteURL(resolved) {
		return ""
	}
	return resolved
}
