package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/resilience"
)

// BatchItem is the outcome for one URL in a batch run.
type BatchItem struct {
	URL    string
	Result *model.Result
	Err    error
}

// BatchConfig tunes the batch driver.
type BatchConfig struct {
	// GroupSize is how many URLs run concurrently. Default: 3.
	GroupSize int

	// GroupDelay is the base pause between groups; actual delay is
	// jittered to avoid tripping vendor rate limits. Default: 2s.
	GroupDelay time.Duration

	// RetryBackoff is the pause before the single retry granted to a
	// rate-limited URL. Default: 10s.
	RetryBackoff time.Duration

	// Limiter optionally paces group starts on top of GroupDelay.
	Limiter *rate.Limiter
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.GroupSize <= 0 {
		c.GroupSize = 3
	}
	if c.GroupDelay <= 0 {
		c.GroupDelay = 2 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 10 * time.Second
	}
	return c
}

// RunBatch processes URLs in fixed-size concurrent groups with a
// jittered delay between groups. A rate-limited URL is retried exactly
// once after a backoff. Cancelling ctx aborts in-flight work; items
// never started report the context error.
func (p *Pipeline) RunBatch(ctx context.Context, urls []string, userID string, cfg BatchConfig) []BatchItem {
	cfg = cfg.withDefaults()
	items := make([]BatchItem, len(urls))
	for i, u := range urls {
		items[i] = BatchItem{URL: u, Err: ctx.Err()}
	}

	for start := 0; start < len(urls); start += cfg.GroupSize {
		if ctx.Err() != nil {
			for i := start; i < len(urls); i++ {
				items[i].Err = ctx.Err()
			}
			return items
		}

		end := min(start+cfg.GroupSize, len(urls))

		if start > 0 {
			if !sleepJittered(ctx, cfg.GroupDelay) {
				for i := start; i < len(urls); i++ {
					items[i].Err = ctx.Err()
				}
				return items
			}
		}
		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				// Wait can fail while ctx is still alive when the next
				// reservation cannot fit the remaining deadline. The
				// skipped group reports the error instead of nil/nil.
				for i := start; i < end; i++ {
					items[i].Err = eris.Wrap(err, "batch: rate limiter")
				}
				continue
			}
		}
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				items[i].Result, items[i].Err = p.runWithRetry(gctx, urls[i], userID, cfg)
				return nil
			})
		}
		g.Wait()
	}

	return items
}

// runWithRetry grants one extra attempt when the vendor throttles. The
// last partial result is kept even when both attempts fail so callers
// still see the page status.
func (p *Pipeline) runWithRetry(ctx context.Context, url, userID string, cfg BatchConfig) (*model.Result, error) {
	var res *model.Result
	err := resilience.Do(ctx, resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: cfg.RetryBackoff,
		JitterFraction: 0.25,
		ShouldRetry: func(err error) bool {
			return eris.Is(err, ErrRateLimited)
		},
		OnRetry: func(attempt int, err error) {
			zap.L().Info("batch: retrying after throttle",
				zap.String("url", url),
				zap.Int("attempt", attempt))
		},
	}, func(ctx context.Context) error {
		var runErr error
		res, runErr = p.Run(ctx, url, userID)
		return runErr
	})
	return res, err
}

// sleepJittered pauses for delay ±50%, returning false when ctx ends
// first.
func sleepJittered(ctx context.Context, delay time.Duration) bool {
	jittered := time.Duration(float64(delay) * (0.5 + rand.Float64()))
	timer := time.NewTimer(jittered)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
