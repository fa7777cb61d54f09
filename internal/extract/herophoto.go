package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/ai"
	"github.com/sproutbook/seedscan/internal/audit"
	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/normalize"
)

const photoPrompt = `Find a product or plant photograph for this seed catalog listing: %s

Search the web and return one valid JSON object, nothing else:
{"hero_image_url": ""}

The value must be a direct, publicly reachable image URL (jpg/png/webp). Use an empty string if you cannot find one.`

const maxPhotoPasses = 4

// PhotoResolver runs the escalating photo search ladder. Each rung
// drops one qualifier from the query; the ladder stops on the first
// rung returning an absolute image URL.
type PhotoResolver struct {
	gen     ai.Generator
	sink    audit.Sink
	timeout time.Duration
}

// NewPhotoResolver creates a PhotoResolver. A nil sink disables audits.
func NewPhotoResolver(gen ai.Generator, sink audit.Sink) *PhotoResolver {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &PhotoResolver{gen: gen, sink: sink, timeout: defaultAITimeout}
}

// queries builds the rung queries for a record, most specific first.
// A rung whose distinguishing qualifier is missing is skipped outright,
// never collapsed into a less specific rung ahead of its turn, so the
// ladder may be shorter than four passes.
func queries(rec *model.ExtractedRecord) []string {
	plantType := strings.TrimSpace(rec.PlantType)
	if plantType == model.DefaultPlantType {
		plantType = ""
	}
	vendor := strings.TrimSpace(rec.Vendor)
	variety := strings.TrimSpace(rec.Variety)

	var candidates []string
	if vendor != "" && variety != "" {
		candidates = append(candidates, joinQuery(vendor, variety, plantType))
	}
	if variety != "" {
		candidates = append(candidates, joinQuery(variety, plantType))
	}
	if plantType != "" {
		candidates = append(candidates, joinQuery(plantType, "plant"), plantType)
	}

	var out []string
	seen := map[string]struct{}{}
	for _, q := range candidates {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	if len(out) > maxPhotoPasses {
		out = out[:maxPhotoPasses]
	}
	return out
}

func joinQuery(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Find walks the ladder and returns the first live-looking image URL,
// or "" after all rungs fail. Every rung is audited individually.
func (p *PhotoResolver) Find(ctx context.Context, rec *model.ExtractedRecord) string {
	identityKey := ""
	if key, ok := normalize.IdentityKey(rec.PlantType, rec.Variety); ok {
		identityKey = key
	}

	for pass, query := range queries(rec) {
		att := model.SearchAttempt{
			URL:         rec.SourceURL,
			Vendor:      rec.Vendor,
			IdentityKey: identityKey,
			Stage:       "hero_photo",
			PassNumber:  pass + 1,
			QueryUsed:   query,
		}

		img := p.searchOnce(ctx, query)
		if model.IsAbsoluteURL(img) {
			att.Success = true
			att.ResultImageURL = img
			p.sink.Record(ctx, att)
			return img
		}
		p.sink.Record(ctx, att)
	}
	return ""
}

func (p *PhotoResolver) searchOnce(ctx context.Context, query string) string {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.gen.Generate(ctx, fmt.Sprintf(photoPrompt, query), "", true)
	if err != nil {
		zap.L().Debug("hero photo: search failed", zap.String("query", query), zap.Error(err))
		return ""
	}
	return ParseImageAnswer(text)
}
