package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
	Query(ctx context.Context, criteria Criteria) ([]Event, error)
}

// contextExtractor extracts string values from context.
// It returns (value, found) where found indicates if extraction succeeded.
type contextExtractor func(context.Context) (string, bool)

// Recorder stamps and stores audit events.
type Recorder struct {
	storage            Storage
	actorExtractor     contextExtractor
	requestIDExtractor contextExtractor
	now                func() time.Time
}

// NewRecorder creates a Recorder writing to storage. Panics on nil storage.
func NewRecorder(storage Storage, opts ...Option) *Recorder {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	r := &Recorder{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record fills ID, timestamp, result and context-derived fields that the caller
// left empty, validates the event and stores it.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}
	if event.Result == "" {
		event.Result = ResultSuccess
	}
	if event.Actor == "" && r.actorExtractor != nil {
		if actor, ok := r.actorExtractor(ctx); ok {
			event.Actor = actor
		}
	}
	if event.RequestID == "" && r.requestIDExtractor != nil {
		if requestID, ok := r.requestIDExtractor(ctx); ok {
			event.RequestID = requestID
		}
	}

	if err := event.Validate(); err != nil {
		return err
	}

	return r.storage.Store(ctx, event)
}
