package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests require a running Redis; they skip if no server is
// reachable on the default address.
func newTestConsumer(t *testing.T, dlq string) (*Consumer, *redis.Client) {
	t.Helper()

	ctx := context.Background()
	source := "test-elastic-output-" + t.Name()

	consumer, err := NewConsumer(ctx, ConsumerConfig{
		Address:         "localhost:6379",
		DB:              15,
		SourceQueue:     source,
		DeadLetterQueue: dlq,
		PollTimeout:     100 * time.Millisecond,
	})
	if err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	raw := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	t.Cleanup(func() {
		raw.Del(ctx, source, source+"-internal", dlq)
		raw.Close()
		consumer.Close()
	})

	return consumer, raw
}

func TestConsumerReceiveAndAck(t *testing.T) {
	consumer, raw := newTestConsumer(t, "")
	ctx := context.Background()

	require.NoError(t, raw.LPush(ctx, consumer.sourceQueue, `{"a": 1}`).Err())

	payload, err := consumer.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(payload))

	// Received message is staged until acked
	staged, err := raw.LLen(ctx, consumer.internalQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), staged)

	require.NoError(t, consumer.Ack(ctx, payload))

	staged, err = raw.LLen(ctx, consumer.internalQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), staged)
}

func TestConsumerReceiveTimeout(t *testing.T) {
	consumer, _ := newTestConsumer(t, "")

	_, err := consumer.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestConsumerReject(t *testing.T) {
	consumer, raw := newTestConsumer(t, "")
	ctx := context.Background()

	require.NoError(t, raw.LPush(ctx, consumer.sourceQueue, `{"a": 1}`).Err())

	payload, err := consumer.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, consumer.Reject(ctx, payload))

	// Back on the source queue, gone from the internal one
	queued, err := raw.LLen(ctx, consumer.sourceQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)

	staged, err := raw.LLen(ctx, consumer.internalQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), staged)
}

func TestConsumerDeadLetter(t *testing.T) {
	consumer, raw := newTestConsumer(t, "test-elastic-output-dlq")
	ctx := context.Background()

	require.NoError(t, raw.LPush(ctx, consumer.sourceQueue, `garbage`).Err())

	payload, err := consumer.Receive(ctx)
	require.NoError(t, err)

	require.True(t, consumer.HasDeadLetter())
	require.NoError(t, consumer.DeadLetter(ctx, payload))

	dead, err := raw.LLen(ctx, consumer.deadLetterQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)
}

func TestConsumerDeadLetterUnconfigured(t *testing.T) {
	consumer, _ := newTestConsumer(t, "")

	assert.False(t, consumer.HasDeadLetter())
	assert.Error(t, consumer.DeadLetter(context.Background(), []byte("x")))
}

func TestConsumerRecover(t *testing.T) {
	consumer, raw := newTestConsumer(t, "")
	ctx := context.Background()

	// Simulate a crash after staging two messages
	require.NoError(t, raw.LPush(ctx, consumer.internalQueue, "one", "two").Err())

	require.NoError(t, consumer.Recover(ctx))

	queued, err := raw.LLen(ctx, consumer.sourceQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), queued)

	staged, err := raw.LLen(ctx, consumer.internalQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), staged)
}
