package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/ai"
	"github.com/sproutbook/seedscan/internal/audit"
	"github.com/sproutbook/seedscan/internal/cache"
	"github.com/sproutbook/seedscan/internal/extract"
	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/normalize"
	"github.com/sproutbook/seedscan/internal/pipeline"
	"github.com/sproutbook/seedscan/internal/rules"
	"github.com/sproutbook/seedscan/internal/store"
	anthropicpkg "github.com/sproutbook/seedscan/pkg/anthropic"
	"github.com/sproutbook/seedscan/pkg/perplexity"
)

// pipelineEnv holds the initialized store, rules, and pipeline needed by
// the extract/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Rules    *rules.Rules
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// loadRules returns the configured rules file, or the built-in defaults
// when no path is set.
func loadRules() (*rules.Rules, error) {
	if cfg.Rules.Path == "" {
		return rules.Default(), nil
	}
	return rules.Load(cfg.Rules.Path)
}

// initPipeline sets up the store, rules, AI clients, and all pipeline
// stages. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	r, err := loadRules()
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load rules")
	}

	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model))
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	gen := ai.NewRouter(perplexityClient, anthropicClient,
		ai.WithDirectModel(cfg.Anthropic.Model),
		ai.WithMaxTokens(cfg.Anthropic.MaxTokens))

	sink := audit.Multi{audit.ZapSink{}, audit.StoreSink{Store: st}}

	fetcher := extract.NewFetcher(r, extract.WithFetchTimeout(cfg.Extract.ScrapeTimeout()))
	live := extract.NewLive(fetcher, gen, r,
		extract.WithAITimeout(cfg.Extract.AITimeout()),
		extract.WithOverallTimeout(cfg.Extract.OverallTimeout()))

	pcfg := pipeline.Config{
		Live:    live,
		Rescuer: extract.NewRescuer(gen, r, sink),
		Photos:  extract.NewPhotoResolver(gen, sink),
		Rules:   r,
	}
	if cfg.Cache.Enabled {
		pcfg.Resolver = cache.New(st, r,
			cache.WithLivenessTimeout(cfg.Cache.LivenessTimeout()))
	}

	return &pipelineEnv{
		Store:    st,
		Rules:    r,
		Pipeline: pipeline.New(pcfg),
	}, nil
}

// persistResult writes a freshly extracted record back to the cache.
// Cache hits are never rewritten. Persistence failures are logged, not
// returned; the caller already holds the result.
func persistResult(ctx context.Context, st store.Store, res *model.Result, userID string) {
	if res == nil || res.FromCache {
		return
	}
	rec := res.Record
	key, _ := normalize.IdentityKey(rec.PlantType, rec.Variety)
	row := &model.CacheRow{
		SourceURL:   rec.SourceURL,
		UserID:      userID,
		IdentityKey: key,
		Vendor:      rec.Vendor,
		Record:      rec,
		Quality:     rec.Quality,
	}
	if err := st.SaveRecord(ctx, row); err != nil {
		zap.L().Warn("persist record failed",
			zap.String("url", rec.SourceURL),
			zap.Error(err))
	}
}
