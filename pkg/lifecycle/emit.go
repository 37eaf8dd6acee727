package lifecycle

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/events"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/logger"
)

// emitQueue hands sink calls to a single worker so callers do not wait on
// the audit store or the broker. One worker keeps the per-item order.
type emitQueue struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan func()
	wg     sync.WaitGroup
}

func newEmitQueue(size int) *emitQueue {
	q := &emitQueue{jobs: make(chan func(), size)}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for job := range q.jobs {
			job()
		}
	}()
	return q
}

// offer enqueues job without blocking. It reports false when the queue is
// full or closed.
func (q *emitQueue) offer(job func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

func (q *emitQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the emission worker after it has delivered what is queued.
// It is a no-op for a controller that emits synchronously.
func (c *Controller) Close(ctx context.Context) error {
	if c.queue == nil {
		return nil
	}
	return c.queue.close(ctx)
}

// dispatch runs job on the emission worker, or inline when there is none.
// A full or closed queue drops the job.
func (c *Controller) dispatch(ctx context.Context, id uuid.UUID, job func()) {
	if c.queue == nil {
		job()
		return
	}
	if !c.queue.offer(job) {
		c.metrics.emissionFailed("queue")
		c.logger.WarnContext(ctx, "emission queue unavailable, dropping audit and event",
			logger.ItemID(id),
		)
	}
}

// emit records and announces a committed change. Failures are logged and
// counted; the commit is never undone because of them.
func (c *Controller) emit(ctx context.Context, before, after *cartitem.Item, actor string) {
	ctx = context.WithoutCancel(ctx)

	action := audit.ActionQuantityUpdate
	topic := events.TopicQuantityUpdated
	if before.State != after.State {
		action = audit.ActionTransition
		topic = events.TopicForState(string(after.State))
		if n := len(after.History); n > 0 {
			actor = after.History[n-1].Actor
		}
		c.metrics.transition(before.State, after.State)
	}

	c.logger.InfoContext(ctx, "cart item updated",
		logger.ItemID(after.ID),
		logger.Transition(string(before.State), string(after.State)),
		logger.Version(after.Version),
		logger.Actor(actor),
	)

	// Built now so the worker never reads the item handed back to the caller.
	record := audit.Event{
		ItemID:    after.ID,
		UserID:    after.UserID,
		Action:    action,
		FromState: string(before.State),
		ToState:   string(after.State),
		Actor:     actor,
		Version:   after.Version,
		Result:    audit.ResultSuccess,
		CreatedAt: after.UpdatedAt,
	}
	change := events.ItemChanged{
		ItemID:     after.ID,
		UserID:     after.UserID,
		ProductID:  after.ProductID,
		FromState:  string(before.State),
		ToState:    string(after.State),
		Version:    after.Version,
		Quantity:   after.Quantity,
		Actor:      actor,
		OccurredAt: after.UpdatedAt,
	}
	c.dispatch(ctx, after.ID, func() {
		c.deliver(ctx, record, topic, change)
	})
}

func (c *Controller) deliver(ctx context.Context, record audit.Event, topic string, change events.ItemChanged) {
	if c.audit != nil {
		if err := c.audit.Record(ctx, record); err != nil {
			c.metrics.emissionFailed("audit")
			c.logger.WarnContext(ctx, "audit record failed after commit",
				logger.ItemID(record.ItemID),
				logger.Version(record.Version),
				logger.Error(err),
			)
		}
	}

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, topic, change); err != nil {
			c.metrics.emissionFailed("publisher")
			c.logger.WarnContext(ctx, "event publish failed after commit",
				logger.ItemID(change.ItemID),
				logger.Topic(topic),
				logger.Error(err),
			)
		}
	}
}
