package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Subscriber receives messages for the topics it subscribed to.
type Subscriber interface {
	// Receive returns the message channel. It is closed when the subscriber
	// is closed, its context is cancelled, or it falls behind.
	Receive() <-chan Message
	Close() error
}

type subscriber struct {
	ch     chan Message
	topics map[string]struct{}
	closed bool
	mu     sync.RWMutex
}

func newSubscriber(bufferSize int, topics []string) *subscriber {
	s := &subscriber{ch: make(chan Message, bufferSize)}
	if len(topics) > 0 {
		s.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}
	return s
}

func (s *subscriber) Receive() <-chan Message {
	return s.ch
}

func (s *subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *subscriber) wants(topic string) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

func (s *subscriber) send(msg Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// MemoryPublisher fans messages out to in-process subscribers. Slow subscribers
// are dropped instead of blocking Publish. Safe for concurrent use.
type MemoryPublisher struct {
	subscribers map[*subscriber]struct{}
	bufferSize  int
	closed      bool
	done        chan struct{}
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
}

// NewMemoryPublisher creates a publisher whose subscribers buffer up to bufferSize
// messages (minimum 1).
func NewMemoryPublisher(bufferSize int) *MemoryPublisher {
	return &MemoryPublisher{
		subscribers: make(map[*subscriber]struct{}),
		bufferSize:  max(bufferSize, 1),
		done:        make(chan struct{}),
	}
}

// Subscribe registers a subscriber for the given topics, or for all topics
// when none are given. The subscription ends when ctx is cancelled.
func (p *MemoryPublisher) Subscribe(ctx context.Context, topics ...string) Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := newSubscriber(p.bufferSize, topics)
	if p.closed {
		_ = sub.Close()
		return sub
	}

	p.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		p.cleanupWg.Add(1)
		go func() {
			defer p.cleanupWg.Done()
			select {
			case <-ctx.Done():
				p.unsubscribe(sub)
			case <-p.done:
			}
		}()
	}

	return sub
}

// Publish encodes payload as JSON and delivers it to matching subscribers.
func (p *MemoryPublisher) Publish(_ context.Context, topic string, payload any) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ErrEncodePayload{Topic: topic, Err: err}
	}
	msg := Message{Topic: topic, Payload: raw, PublishedAt: time.Now()}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	for sub := range p.subscribers {
		if !sub.wants(topic) {
			continue
		}
		if !sub.send(msg) {
			go p.unsubscribe(sub)
		}
	}

	return nil
}

// Close closes every subscriber. Safe to call more than once.
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)

	for sub := range p.subscribers {
		_ = sub.Close()
	}
	clear(p.subscribers)
	p.mu.Unlock()

	p.cleanupWg.Wait()
	return nil
}

func (p *MemoryPublisher) unsubscribe(sub *subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.subscribers, sub)
	_ = sub.Close()
}
