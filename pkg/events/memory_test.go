package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/events"
)

func receive(t *testing.T, sub events.Subscriber) (events.Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive():
		return msg, ok
	case <-time.After(100 * time.Millisecond):
		return events.Message{}, false
	}
}

func TestMemoryPublisher_Publish(t *testing.T) {
	t.Parallel()

	t.Run("delivers to matching topics only", func(t *testing.T) {
		t.Parallel()

		pub := events.NewMemoryPublisher(4)
		defer pub.Close()

		ctx := context.Background()
		lockedSub := pub.Subscribe(ctx, events.TopicForState("locked"))
		allSub := pub.Subscribe(ctx)

		change := events.ItemChanged{ItemID: uuid.New(), FromState: "active", ToState: "locked", Version: 1}
		require.NoError(t, pub.Publish(ctx, events.TopicForState("locked"), change))
		require.NoError(t, pub.Publish(ctx, events.TopicQuantityUpdated, change))

		msg, ok := receive(t, lockedSub)
		require.True(t, ok)
		assert.Equal(t, "cart_item.locked", msg.Topic)

		var decoded events.ItemChanged
		require.NoError(t, msg.Decode(&decoded))
		assert.Equal(t, change.ItemID, decoded.ItemID)

		_, ok = receive(t, lockedSub)
		assert.False(t, ok, "quantity topic must not reach the locked subscriber")

		_, ok = receive(t, allSub)
		assert.True(t, ok)
		msg, ok = receive(t, allSub)
		assert.True(t, ok)
		assert.Equal(t, events.TopicQuantityUpdated, msg.Topic)
	})

	t.Run("rejects empty topic and bad payloads", func(t *testing.T) {
		t.Parallel()

		pub := events.NewMemoryPublisher(1)
		defer pub.Close()

		assert.ErrorIs(t, pub.Publish(context.Background(), "", nil), events.ErrEmptyTopic)

		err := pub.Publish(context.Background(), "t", make(chan int))
		var encErr events.ErrEncodePayload
		assert.ErrorAs(t, err, &encErr)
	})

	t.Run("drops slow subscribers", func(t *testing.T) {
		t.Parallel()

		pub := events.NewMemoryPublisher(1)
		defer pub.Close()

		sub := pub.Subscribe(context.Background())
		require.NoError(t, pub.Publish(context.Background(), "t", 1))
		require.NoError(t, pub.Publish(context.Background(), "t", 2))

		_, ok := <-sub.Receive()
		assert.True(t, ok, "buffered message is still delivered")

		assert.Eventually(t, func() bool {
			select {
			case _, ok := <-sub.Receive():
				return !ok
			default:
				return false
			}
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("publish after close", func(t *testing.T) {
		t.Parallel()

		pub := events.NewMemoryPublisher(1)
		require.NoError(t, pub.Close())
		require.NoError(t, pub.Close())

		assert.ErrorIs(t, pub.Publish(context.Background(), "t", 1), events.ErrPublisherClosed)

		sub := pub.Subscribe(context.Background())
		_, ok := <-sub.Receive()
		assert.False(t, ok)
	})
}

func TestMemoryPublisher_ContextCancellation(t *testing.T) {
	t.Parallel()

	pub := events.NewMemoryPublisher(4)
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := pub.Subscribe(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		_, ok := <-sub.Receive()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryPublisher_CloseWithLiveContext(t *testing.T) {
	t.Parallel()

	pub := events.NewMemoryPublisher(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = pub.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		_ = pub.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a subscriber whose context is still live")
	}
}
