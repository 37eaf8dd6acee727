package lifecycle

import (
	"log/slog"
	"time"
)

// Controller defaults.
const (
	DefaultLockTimeout = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 50 * time.Millisecond
)

// ConflictPolicy decides what an optimistic write does after losing a version race.
type ConflictPolicy int

const (
	// PolicyRetry reloads and re-runs the operation up to the retry budget,
	// sleeping base delay times the retry number in between.
	PolicyRetry ConflictPolicy = iota
	// PolicyRaise returns ConcurrencyConflictError at once.
	PolicyRaise
	// PolicyMerge reconciles the lost write onto the latest version with a
	// MergeFunc and tries once more.
	PolicyMerge
)

func (p ConflictPolicy) String() string {
	switch p {
	case PolicyRetry:
		return "retry"
	case PolicyRaise:
		return "raise"
	case PolicyMerge:
		return "merge"
	default:
		return "unknown"
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithAuditSink records every committed change.
func WithAuditSink(sink AuditSink) Option {
	return func(c *Controller) {
		c.audit = sink
	}
}

// WithPublisher announces every committed change.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithAsyncEmission moves audit records and events onto a background worker
// with a queue of size entries, so a slow sink never holds up the caller.
// Changes that do not fit in the queue are committed but not emitted. Call
// Controller.Close to drain the queue on shutdown.
func WithAsyncEmission(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithLockTimeout bounds how long exclusive mode waits for a lease.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithMaxRetries sets how many re-attempts PolicyRetry makes after the first try.
func WithMaxRetries(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

type mode int

const (
	modeDefault mode = iota
	modeExclusive
	modeOptimistic
)

// CallOption tunes a single controller call.
type CallOption func(*callConfig)

type callConfig struct {
	mode        mode
	policy      ConflictPolicy
	merge       MergeFunc
	lockTimeout time.Duration
	actor       string
	attempt     []AttemptOption
}

// Exclusive runs the call under an exclusive lease. A zero timeout uses the
// controller's lock timeout.
func Exclusive(timeout time.Duration) CallOption {
	return func(c *callConfig) {
		c.mode = modeExclusive
		c.lockTimeout = timeout
	}
}

// Optimistic runs the call without a lease and resolves conflicts with policy.
func Optimistic(policy ConflictPolicy) CallOption {
	return func(c *callConfig) {
		c.mode = modeOptimistic
		c.policy = policy
	}
}

// MergeWith selects PolicyMerge with fn as the reconciliation step.
func MergeWith(fn MergeFunc) CallOption {
	return func(c *callConfig) {
		c.mode = modeOptimistic
		c.policy = PolicyMerge
		c.merge = fn
	}
}

// ByActor names who requested the change.
func ByActor(actor string) CallOption {
	return func(c *callConfig) {
		if actor != "" {
			c.actor = actor
		}
	}
}

// WithAttemptOptions passes options through to Engine.Attempt for transitions.
func WithAttemptOptions(opts ...AttemptOption) CallOption {
	return func(c *callConfig) {
		c.attempt = append(c.attempt, opts...)
	}
}

func newCallConfig(defaultMode mode, opts []CallOption) callConfig {
	cfg := callConfig{mode: defaultMode, policy: PolicyRetry, actor: DefaultActor}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.mode == modeDefault {
		cfg.mode = modeOptimistic
	}
	return cfg
}
