package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
)

// Option configures a Sweeper.
type Option func(*options)

type options struct {
	interval    time.Duration
	batchSize   int
	concurrency int
	callOpts    []lifecycle.CallOption
	logger      *slog.Logger
	now         func() time.Time
}

func (o options) manage(ctx context.Context, m Manager, id uuid.UUID) (*cartitem.Item, bool, error) {
	return m.ManageState(ctx, id, o.callOpts...)
}

// WithInterval sets how often Start sweeps.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithBatchSize caps how many items one sweep looks at.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithConcurrency caps how many items are expired in parallel.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithCallOptions passes options to every ManageState call.
func WithCallOptions(opts ...lifecycle.CallOption) Option {
	return func(o *options) {
		o.callOpts = append(o.callOpts, opts...)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
