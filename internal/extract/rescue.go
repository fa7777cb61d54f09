package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/ai"
	"github.com/sproutbook/seedscan/internal/audit"
	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/normalize"
	"github.com/sproutbook/seedscan/internal/rules"
)

const rescuePrompt = `You are a horticultural data specialist. The product page below is blocked or unreadable, so you CANNOT browse it. Answer from general seed catalog knowledge instead.

Product page URL: %s
Known vendor: %s
Known variety: %s

The vendor and variety above were derived from the URL itself and are ground truth; keep them exactly as given where non-empty. Fill in the rest from what you know about this listing and return one valid JSON object:
{"vendor": "", "plant_type": "", "variety": "", "scientific_name": "", "tags": [], "growing_specs": {"sowing_depth": "", "spacing": "", "sun": "", "days_to_germination": "", "days_to_maturity": "", "water": "", "description": ""}, "hero_image_url": "", "source_url": "%s"}

Use empty strings for anything you are not confident about. Return only the JSON object.`

// Rescuer recovers a record from URL hints plus model knowledge when
// live extraction failed.
type Rescuer struct {
	gen     ai.Generator
	rules   *rules.Rules
	sink    audit.Sink
	timeout time.Duration
}

// NewRescuer creates a Rescuer. A nil sink disables audit records.
func NewRescuer(gen ai.Generator, r *rules.Rules, sink audit.Sink) *Rescuer {
	if r == nil {
		r = rules.Default()
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Rescuer{gen: gen, rules: r, sink: sink, timeout: defaultAITimeout}
}

// Rescue derives vendor/variety hints from the URL and asks the model
// to complete the record. Returns (nil, false) when no hint could be
// derived or the model yielded nothing usable.
func (r *Rescuer) Rescue(ctx context.Context, sourceURL string) (*model.ExtractedRecord, bool) {
	vendorHint := normalize.VendorFromURL(sourceURL, r.rules)
	varietyHint := normalize.VarietyFromSlug(sourceURL)
	if vendorHint == "" && varietyHint == "" {
		zap.L().Debug("rescue: no url hints", zap.String("url", sourceURL))
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt := fmt.Sprintf(rescuePrompt, sourceURL, vendorHint, varietyHint, sourceURL)
	text, err := r.gen.Generate(ctx, prompt, "", false)

	att := model.SearchAttempt{
		URL:        sourceURL,
		Vendor:     vendorHint,
		Stage:      "rescue",
		PassNumber: 1,
		QueryUsed:  varietyHint,
	}

	if err != nil {
		zap.L().Warn("rescue: generation failed", zap.String("url", sourceURL), zap.Error(err))
		r.sink.Record(ctx, att)
		return nil, false
	}

	rec, ok := ParseRecord(text)
	if !ok {
		zap.L().Warn("rescue: reply unparseable", zap.String("url", sourceURL))
		r.sink.Record(ctx, att)
		return nil, false
	}

	rec.SourceURL = sourceURL
	if rec.Vendor == "" {
		rec.Vendor = vendorHint
	}
	if rec.Variety == "" {
		rec.Variety = varietyHint
	}

	// Blocked vendors serve the model no page content, so a wrong
	// catalog-wide name is likelier than a right one. The URL slug wins.
	if varietyHint != "" && r.rules.IsBlockedVendor(rec.Vendor) {
		rec.Variety = varietyHint
	}

	att.Success = true
	if key, ok := normalize.IdentityKey(rec.PlantType, rec.Variety); ok {
		att.IdentityKey = key
	}
	r.sink.Record(ctx, att)
	return rec, true
}
