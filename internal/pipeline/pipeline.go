// Package pipeline sequences cache lookup, live extraction, rescue, and
// hero photo search into the end-to-end flow for one listing URL.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/cache"
	"github.com/sproutbook/seedscan/internal/extract"
	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/normalize"
	"github.com/sproutbook/seedscan/internal/rules"
)

// Pipeline owns orchestration and failure policy. The stages themselves
// never propagate errors past it; only terminal states surface to the
// caller as sentinel errors.
type Pipeline struct {
	resolver *cache.Resolver
	live     *extract.LiveExtractor
	rescuer  *extract.Rescuer
	photos   *extract.PhotoResolver
	norm     *normalize.Normalizer
}

// Config wires the pipeline stages. Resolver and Photos may be nil to
// disable cache lookup and photo search respectively.
type Config struct {
	Resolver *cache.Resolver
	Live     *extract.LiveExtractor
	Rescuer  *extract.Rescuer
	Photos   *extract.PhotoResolver
	Rules    *rules.Rules
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	r := cfg.Rules
	if r == nil {
		r = rules.Default()
	}
	return &Pipeline{
		resolver: cfg.Resolver,
		live:     cfg.Live,
		rescuer:  cfg.Rescuer,
		photos:   cfg.Photos,
		norm:     normalize.New(r),
	}
}

func trackStage(url, stage string) func() {
	start := time.Now()
	return func() {
		zap.L().Debug("stage complete",
			zap.String("url", url),
			zap.String("stage", stage),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// Run processes one URL through the state machine. The returned Result
// is non-nil even alongside an error so callers can surface partial
// diagnostics (the page status, the prefilled record).
func (p *Pipeline) Run(ctx context.Context, sourceURL, userID string) (*model.Result, error) {
	if p.resolver != nil {
		done := trackStage(sourceURL, "cache_lookup")
		hit, err := p.resolver.Resolve(ctx, sourceURL, userID)
		done()
		if err != nil {
			// A broken cache never blocks live extraction.
			zap.L().Warn("cache lookup failed", zap.String("url", sourceURL), zap.Error(err))
		} else if hit != nil {
			return hit, nil
		}
	}

	done := trackStage(sourceURL, "live_extract")
	live, err := p.live.Extract(ctx, sourceURL)
	done()
	if err != nil {
		return &model.Result{Failed: true}, eris.Wrap(err, "pipeline: live extract")
	}

	result := &model.Result{PageStatusCode: live.PageStatus}
	switch {
	case live.PageStatus == http.StatusNotFound:
		result.Failed = true
		return result, ErrLinkDead
	case live.PageStatus == http.StatusForbidden || live.PageStatus == http.StatusTooManyRequests:
		result.Failed = true
		return result, ErrRateLimited
	}

	rec := live.Record
	rescued := false
	if live.Failed {
		done := trackStage(sourceURL, "rescue")
		rescuedRec, ok := p.rescue(ctx, sourceURL)
		done()
		if !ok {
			result.Record = rec
			result.Failed = true
			return result, ErrRescueFailed
		}
		rec = *rescuedRec
		rescued = true
	}

	pageTitle := live.PageTitle
	if rescued {
		// Rescue never saw the page; a scraped title would have come
		// from the blocked response.
		pageTitle = ""
	}

	norm := p.norm.Apply(normalize.Input{
		SourceURL: sourceURL,
		Vendor:    rec.Vendor,
		PlantType: rec.PlantType,
		Variety:   rec.Variety,
		Tags:      rec.Tags,
		PageTitle: pageTitle,
	})
	rec.Vendor = norm.Vendor
	rec.PlantType = norm.PlantType
	rec.Variety = norm.Variety
	rec.Tags = norm.Tags
	rec.SourceURL = sourceURL
	normalize.CoerceSpecs(&rec)

	if norm.Generic {
		// The plant type may still be usable, so the record goes back
		// with advisory flags rather than an error.
		rec.Quality = model.QualityFailed
		rec.Failed = true
		result.Record = rec
		result.Failed = true
		result.TriggerRescueHint = true
		return result, nil
	}

	if p.photos != nil && !rec.HasImage() {
		done := trackStage(sourceURL, "hero_search")
		if img := p.photos.Find(ctx, &rec); img != "" {
			rec.HeroImageURL = img
		}
		done()
	}

	switch {
	case rescued:
		rec.Quality = model.QualityAIOnly
	case rec.HasImage():
		rec.Quality = model.QualityFull
	default:
		rec.Quality = model.QualityPartial
	}

	result.Record = rec
	return result, nil
}

func (p *Pipeline) rescue(ctx context.Context, sourceURL string) (*model.ExtractedRecord, bool) {
	if p.rescuer == nil {
		return nil, false
	}
	return p.rescuer.Rescue(ctx, sourceURL)
}
