package sweeper

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/logger"
)

// Lister finds items that may need expiring.
type Lister interface {
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// Manager expires a single item when due. *lifecycle.Controller satisfies it.
type Manager interface {
	ManageState(ctx context.Context, id uuid.UUID, opts ...lifecycle.CallOption) (*cartitem.Item, bool, error)
}

// Stats summarises one sweep.
type Stats struct {
	Listed  int
	Expired int
	Skipped int
	Failed  int
}

// Sweeper periodically expires cart items whose checkout lock has lapsed.
type Sweeper struct {
	lister  Lister
	manager Manager
	opts    options
}

func New(lister Lister, manager Manager, opts ...Option) (*Sweeper, error) {
	if lister == nil {
		return nil, ErrListerNil
	}
	if manager == nil {
		return nil, ErrManagerNil
	}

	o := options{
		interval:    time.Minute,
		batchSize:   100,
		concurrency: 4,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(logger.Component("cart_sweeper"))

	return &Sweeper{lister: lister, manager: manager, opts: o}, nil
}

// Start sweeps once right away and then on every tick until ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			s.opts.logger.Info("sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	ctx = withRunID(ctx)
	start := time.Now()
	stats, err := s.Sweep(ctx)
	if err != nil {
		s.opts.logger.ErrorContext(ctx, "sweep failed", logger.Error(err))
		return
	}
	if stats.Listed == 0 {
		return
	}
	s.opts.logger.InfoContext(ctx, "sweep finished",
		slog.Int("listed", stats.Listed),
		slog.Int("expired", stats.Expired),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		logger.Duration(time.Since(start)),
	)
}

// withRunID tags a pass with a request id so its log lines and audit records
// can be grouped. An id already on ctx is kept.
func withRunID(ctx context.Context) context.Context {
	if _, ok := logger.RequestIDFromContext(ctx); ok {
		return ctx
	}
	return logger.WithRequestID(ctx, "sweep-"+uuid.NewString())
}

// Sweep lists one batch of candidates and runs ManageState on each with
// bounded concurrency. Per-item failures are logged and counted; only a
// listing failure is returned.
func (s *Sweeper) Sweep(ctx context.Context) (Stats, error) {
	ctx = withRunID(ctx)
	ids, err := s.lister.ListExpirable(ctx, s.opts.now(), s.opts.batchSize)
	if err != nil {
		return Stats{}, err
	}

	var expired, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			_, changed, err := s.opts.manage(gctx, s.manager, id)
			switch {
			case err != nil:
				failed.Add(1)
				s.opts.logger.WarnContext(gctx, "expiring cart item failed",
					logger.ItemID(id),
					logger.Error(err),
				)
			case changed:
				expired.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Stats{
		Listed:  len(ids),
		Expired: int(expired.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}, nil
}
