package audit

import (
	"context"
	"time"
)

// Option configures Recorder behavior during initialization
type Option func(*Recorder)

// Context extractors populate events from request context when the caller
// did not set the field explicitly. If extraction fails the field stays empty.

func WithActorExtractor(fn func(context.Context) (string, bool)) Option {
	return func(r *Recorder) {
		r.actorExtractor = fn
	}
}

func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(r *Recorder) {
		r.requestIDExtractor = fn
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}
