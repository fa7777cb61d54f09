// Package extract runs the live extraction stages: page scrape, AI
// extraction, rescue, and hero photo search.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sproutbook/seedscan/internal/ai"
	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/normalize"
	"github.com/sproutbook/seedscan/internal/rules"
)

const (
	defaultAITimeout      = 20 * time.Second
	defaultOverallTimeout = 25 * time.Second
)

const livePrompt = `You are a horticultural data specialist extracting product metadata from a seed vendor listing.

Product page URL: %s

Find this exact page and return one valid JSON object with exactly these keys:
{"vendor": "", "plant_type": "", "variety": "", "scientific_name": "", "tags": [], "growing_specs": {"sowing_depth": "", "spacing": "", "sun": "", "days_to_germination": "", "days_to_maturity": "", "water": "", "description": ""}, "hero_image_url": "", "source_url": "%s"}

plant_type is the crop or species name (e.g. "Tomato", "Okra"), variety is the cultivar name. Use empty strings for anything the page does not state. Do not invent values. Return only the JSON object.`

// LiveResult carries the merged outcome of the scrape/AI race.
type LiveResult struct {
	Record     model.ExtractedRecord
	PageStatus int
	PageTitle  string

	// Failed is set when the AI branch produced nothing and the record
	// was prefilled from URL heuristics alone.
	Failed bool
}

// LiveExtractor races a page scrape against an AI extraction and merges
// the two results.
type LiveExtractor struct {
	fetcher        *Fetcher
	gen            ai.Generator
	rules          *rules.Rules
	aiTimeout      time.Duration
	overallTimeout time.Duration
}

// LiveOption configures a LiveExtractor.
type LiveOption func(*LiveExtractor)

// WithAITimeout overrides the AI extraction timeout.
func WithAITimeout(d time.Duration) LiveOption {
	return func(e *LiveExtractor) { e.aiTimeout = d }
}

// WithOverallTimeout overrides the umbrella budget for the whole phase.
func WithOverallTimeout(d time.Duration) LiveOption {
	return func(e *LiveExtractor) { e.overallTimeout = d }
}

// NewLive creates a LiveExtractor.
func NewLive(fetcher *Fetcher, gen ai.Generator, r *rules.Rules, opts ...LiveOption) *LiveExtractor {
	if r == nil {
		r = rules.Default()
	}
	e := &LiveExtractor{
		fetcher:        fetcher,
		gen:            gen,
		rules:          r,
		aiTimeout:      defaultAITimeout,
		overallTimeout: defaultOverallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// errPageTerminal aborts the AI branch once the page itself reports a
// dead link or throttling; the group context cancellation carries it.
var errPageTerminal = eris.New("extract: terminal page status")

// Extract runs both branches concurrently under independent timeouts
// plus an umbrella budget. Either branch timing out degrades to absent.
func (e *LiveExtractor) Extract(ctx context.Context, sourceURL string) (*LiveResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.overallTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var (
		page  *PageResult
		aiRec *model.ExtractedRecord
	)

	g.Go(func() error {
		page = e.fetcher.Fetch(gctx, sourceURL)
		if page.LinkDead() || page.RateLimited() {
			return errPageTerminal
		}
		return nil
	})

	g.Go(func() error {
		actx, acancel := context.WithTimeout(gctx, e.aiTimeout)
		defer acancel()

		text, err := e.gen.Generate(actx, fmt.Sprintf(livePrompt, sourceURL, sourceURL), sourceURL, true)
		if err != nil {
			zap.L().Debug("extract: ai branch absent", zap.String("url", sourceURL), zap.Error(err))
			return nil
		}
		if rec, ok := ParseRecord(text); ok {
			aiRec = rec
		} else {
			zap.L().Debug("extract: ai reply unparseable", zap.String("url", sourceURL))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !eris.Is(err, errPageTerminal) {
		return nil, eris.Wrap(err, "extract: live phase")
	}

	result := &LiveResult{PageStatus: page.StatusCode, PageTitle: page.Title}
	if page.LinkDead() || page.RateLimited() {
		return result, nil
	}

	if aiRec == nil {
		// URL-heuristic fallback: enough shape to drive a rescue pass.
		result.Record = model.ExtractedRecord{
			Vendor:    normalize.VendorFromURL(sourceURL, e.rules),
			Variety:   normalize.VarietyFromSlug(sourceURL),
			SourceURL: sourceURL,
		}
		result.Failed = true
	} else {
		result.Record = *aiRec
	}
	result.Record.SourceURL = sourceURL

	// The scrape owns the hero image when it found one.
	if page.HeroImageURL != "" {
		result.Record.HeroImageURL = page.HeroImageURL
	}

	return result, nil
}
