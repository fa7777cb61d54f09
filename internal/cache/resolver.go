// Package cache resolves previously extracted records before any live
// work happens. Lookups run in a strict tier order: global exact URL,
// user exact URL, then identity key derived from URL heuristics.
package cache

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/normalize"
	"github.com/sproutbook/seedscan/internal/rules"
	"github.com/sproutbook/seedscan/internal/store"
)

const defaultLivenessTimeout = 5 * time.Second

// Resolver answers pipeline lookups from the record store.
type Resolver struct {
	store           store.Store
	rules           *rules.Rules
	httpClient      *http.Client
	livenessTimeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for image liveness checks.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// WithLivenessTimeout overrides the image liveness check timeout.
func WithLivenessTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.livenessTimeout = d }
}

// New creates a Resolver backed by the given store.
func New(s store.Store, r *rules.Rules, opts ...Option) *Resolver {
	if r == nil {
		r = rules.Default()
	}
	res := &Resolver{
		store:           s,
		rules:           r,
		httpClient:      &http.Client{Timeout: defaultLivenessTimeout},
		livenessTimeout: defaultLivenessTimeout,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Resolve checks the three cache tiers in order and returns the first
// hit, or (nil, nil) when all tiers miss. userID is empty for
// unauthenticated callers, which skips the user-scoped tier.
func (r *Resolver) Resolve(ctx context.Context, sourceURL, userID string) (*model.Result, error) {
	rows, err := r.store.FindGlobalBySourceURL(ctx, sourceURL)
	if err != nil {
		return nil, eris.Wrap(err, "cache: global url lookup")
	}
	if best := pickBest(rows); best != nil {
		return r.hit(best, model.TierGlobalURL), nil
	}

	if userID != "" {
		rows, err = r.store.FindUserBySourceURL(ctx, userID, sourceURL)
		if err != nil {
			return nil, eris.Wrap(err, "cache: user url lookup")
		}
		if best := pickBest(rows); best != nil {
			return r.hit(best, model.TierUserURL), nil
		}
	}

	return r.resolveByIdentity(ctx, sourceURL)
}

// resolveByIdentity guesses (vendor, identity key) from the URL alone
// and looks for prior extractions of the same plant+variety from any
// source URL.
func (r *Resolver) resolveByIdentity(ctx context.Context, sourceURL string) (*model.Result, error) {
	vendor := normalize.VendorFromURL(sourceURL, r.rules)
	guess := normalize.New(r.rules).Apply(normalize.Input{
		SourceURL: sourceURL,
		Vendor:    vendor,
		PlantType: normalize.PlantHintFromPath(sourceURL),
		Variety:   normalize.VarietyFromSlug(sourceURL),
	})
	if guess.Generic {
		return nil, nil
	}
	key, ok := normalize.IdentityKey(guess.PlantType, guess.Variety)
	if !ok {
		return nil, nil
	}

	rows, err := r.store.FindByIdentityKey(ctx, key, 20)
	if err != nil {
		return nil, eris.Wrap(err, "cache: identity lookup")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Prefer rows from the same vendor; fall back to the full set when
	// the filter leaves nothing.
	if len(rows) > 1 && vendor != "" {
		filtered := rows[:0:0]
		for _, row := range rows {
			if strings.EqualFold(strings.TrimSpace(row.Vendor), vendor) {
				filtered = append(filtered, row)
			}
		}
		if len(filtered) > 0 {
			rows = filtered
		}
	}

	best := pickBest(rows)
	if best == nil {
		return nil, nil
	}
	if best.Record.HasImage() && !r.imageAlive(ctx, best.Record.HeroImageURL) {
		zap.L().Debug("cache: dropping dead hero image",
			zap.String("url", sourceURL),
			zap.String("image", best.Record.HeroImageURL))
		best.Record.HeroImageURL = ""
	}
	return r.hit(best, model.TierIdentity), nil
}

func (r *Resolver) hit(row *model.CacheRow, tier model.CacheTier) *model.Result {
	rec := row.Record
	normalize.CoerceSpecs(&rec)
	if rec.SourceURL == "" {
		rec.SourceURL = row.SourceURL
	}
	zap.L().Debug("cache: hit",
		zap.String("url", row.SourceURL),
		zap.String("tier", string(tier)),
		zap.String("quality", string(row.Quality)))
	return &model.Result{
		Record:    rec,
		FromCache: true,
		CacheTier: tier,
	}
}

// imageAlive issues a HEAD request with a short timeout. A timeout or
// transport error counts as dead.
func (r *Resolver) imageAlive(ctx context.Context, imageURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.livenessTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// pickBest sorts by quality rank descending, then updated_at
// descending, and returns a copy of the winner.
func pickBest(rows []model.CacheRow) *model.CacheRow {
	if len(rows) == 0 {
		return nil
	}
	sorted := make([]model.CacheRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Quality.Rank(), sorted[j].Quality.Rank()
		if ri != rj {
			return ri > rj
		}
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	best := sorted[0]
	return &best
}
