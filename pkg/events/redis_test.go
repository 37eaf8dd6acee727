package events_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/events"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/redis"
)

func TestRedisPublisher(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	pub := events.NewRedisPublisher(client, events.WithChannelPrefix("test:"+uuid.NewString()+":"))
	topic := events.TopicForState("locked")

	sub := pub.Subscribe(ctx, topic)
	defer sub.Close()
	_, err = sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	payload := events.ItemChanged{ItemID: uuid.New(), FromState: "active", ToState: "locked", Version: 1}
	require.NoError(t, pub.Publish(ctx, topic, payload))
	assert.ErrorIs(t, pub.Publish(ctx, "", payload), events.ErrEmptyTopic)

	select {
	case raw := <-sub.Channel():
		msg, err := events.DecodeRedisMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, topic, msg.Topic)

		var got events.ItemChanged
		require.NoError(t, msg.Decode(&got))
		assert.Equal(t, payload.ItemID, got.ItemID)
		assert.Equal(t, int64(1), got.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
