// Package ai exposes the single generation capability the extraction
// stages depend on. A Router picks the backing vendor based on whether
// the caller needs live web search.
package ai

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/normalize"
	"github.com/sproutbook/seedscan/pkg/anthropic"
	"github.com/sproutbook/seedscan/pkg/perplexity"
)

// Generator produces text from a prompt. When searchEnabled is true the
// backing model may browse the web; url, when non-empty, scopes that
// search to the page's domain. The returned text is raw model output
// and callers own all parsing leniency.
type Generator interface {
	Generate(ctx context.Context, prompt, url string, searchEnabled bool) (string, error)
}

const (
	defaultDirectModel = "claude-haiku-4-5-20251001"
	defaultMaxTokens   = 1024
)

// Router routes search-enabled generations to Perplexity and everything
// else to Anthropic.
type Router struct {
	search      perplexity.Client
	direct      anthropic.Client
	directModel string
	maxTokens   int
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithDirectModel overrides the model used for non-search generation.
func WithDirectModel(model string) RouterOption {
	return func(r *Router) { r.directModel = model }
}

// WithMaxTokens overrides the completion token cap.
func WithMaxTokens(n int) RouterOption {
	return func(r *Router) { r.maxTokens = n }
}

// NewRouter creates a Router over the two vendor clients.
func NewRouter(search perplexity.Client, direct anthropic.Client, opts ...RouterOption) *Router {
	r := &Router{
		search:      search,
		direct:      direct,
		directModel: defaultDirectModel,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Generate(ctx context.Context, prompt, url string, searchEnabled bool) (string, error) {
	if searchEnabled {
		return r.generateSearch(ctx, prompt, url)
	}
	return r.generateDirect(ctx, prompt)
}

func (r *Router) generateSearch(ctx context.Context, prompt, url string) (string, error) {
	if r.search == nil {
		return "", eris.New("ai: no search-capable client configured")
	}
	req := perplexity.ChatCompletionRequest{
		Messages:  []perplexity.Message{{Role: "user", Content: prompt}},
		MaxTokens: &r.maxTokens,
	}
	if host := normalize.Host(url); host != "" {
		req.SearchDomainFilter = []string{host}
	}
	resp, err := r.search.ChatCompletion(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "ai: search generation")
	}
	zap.L().Debug("ai: search generation done",
		zap.String("url", url),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Text(), nil
}

func (r *Router) generateDirect(ctx context.Context, prompt string) (string, error) {
	if r.direct == nil {
		return "", eris.New("ai: no direct client configured")
	}
	resp, err := r.direct.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.directModel,
		MaxTokens: int64(r.maxTokens),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "ai: direct generation")
	}
	resp.Usage.LogCost(r.directModel, "rescue")
	return resp.Text(), nil
}
