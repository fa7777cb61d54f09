// Package audit records one entry per rescue or photo-search attempt.
// Sinks are write-only; the pipeline never reads attempts back.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/store"
)

// Sink accepts search attempt records. Implementations must tolerate
// being called from concurrent pipeline invocations.
type Sink interface {
	Record(ctx context.Context, att model.SearchAttempt)
}

// NopSink discards all attempts.
type NopSink struct{}

func (NopSink) Record(context.Context, model.SearchAttempt) {}

// ZapSink logs each attempt as a structured entry.
type ZapSink struct{}

func (ZapSink) Record(_ context.Context, att model.SearchAttempt) {
	zap.L().Info("search attempt",
		zap.String("url", att.URL),
		zap.String("stage", att.Stage),
		zap.Int("pass", att.PassNumber),
		zap.Bool("success", att.Success),
		zap.String("vendor", att.Vendor),
		zap.String("identity_key", att.IdentityKey),
		zap.Int("status_code", att.StatusCode),
		zap.String("query", att.QueryUsed),
		zap.String("result_image_url", att.ResultImageURL),
	)
}

// StoreSink persists attempts through the record store. Persistence
// failures are logged and swallowed so diagnostics never break a run.
type StoreSink struct {
	Store store.Store
}

func (s StoreSink) Record(ctx context.Context, att model.SearchAttempt) {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveAttempt(ctx, &att); err != nil {
		zap.L().Warn("audit: save attempt failed",
			zap.String("url", att.URL),
			zap.String("stage", att.Stage),
			zap.Error(err))
	}
}

// Multi fans one attempt out to several sinks.
type Multi []Sink

func (m Multi) Record(ctx context.Context, att model.SearchAttempt) {
	for _, s := range m {
		s.Record(ctx, att)
	}
}
