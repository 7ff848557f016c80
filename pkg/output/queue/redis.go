package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/certtools/intelmq-elastic-output/pkg/output/log"
)

// ErrNoMessage is returned by Receive when the blocking poll expires
// without a message. The caller is expected to poll again.
var ErrNoMessage = errors.New("no message available")

// Consumer reads events from a Redis list, the pipeline transport the
// bot runtime feeds this output from. A received message is staged on
// an internal queue until it is acked, so an instance killed mid-event
// can recover it on the next start.
type Consumer struct {
	client          *redis.Client
	sourceQueue     string
	internalQueue   string
	deadLetterQueue string
	pollTimeout     time.Duration
}

type ConsumerConfig struct {
	Address         string
	Password        string
	DB              int
	SourceQueue     string
	DeadLetterQueue string
	PollTimeout     time.Duration
}

func NewConsumer(ctx context.Context, cfg ConsumerConfig) (*Consumer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("error connecting to queue at %s: %w", cfg.Address, err)
	}

	return &Consumer{
		client:          client,
		sourceQueue:     cfg.SourceQueue,
		internalQueue:   cfg.SourceQueue + "-internal",
		deadLetterQueue: cfg.DeadLetterQueue,
		pollTimeout:     cfg.PollTimeout,
	}, nil
}

// Recover moves messages a previous run left on the internal queue
// back to the source queue. Called once at startup, before Receive.
func (c *Consumer) Recover(ctx context.Context) error {
	recovered := 0

	for {
		_, err := c.client.LMove(ctx, c.internalQueue, c.sourceQueue, "RIGHT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("error recovering staged messages: %w", err)
		}
		recovered++
	}

	if recovered > 0 {
		log.Infof("recovered %d staged message(s) to %s", recovered, c.sourceQueue)
	}

	return nil
}

// Receive blocks for up to the poll timeout and returns the next
// message payload, staging it on the internal queue. Returns
// ErrNoMessage when the timeout expires.
func (c *Consumer) Receive(ctx context.Context) ([]byte, error) {
	payload, err := c.client.BLMove(
		ctx,
		c.sourceQueue,
		c.internalQueue,
		"RIGHT",
		"LEFT",
		c.pollTimeout,
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoMessage
	}
	if err != nil {
		return nil, fmt.Errorf("error receiving from %s: %w", c.sourceQueue, err)
	}

	return []byte(payload), nil
}

// Ack removes the message from the internal queue, completing its
// handoff.
func (c *Consumer) Ack(ctx context.Context, payload []byte) error {
	err := c.client.LRem(ctx, c.internalQueue, 1, string(payload)).Err()
	if err != nil {
		return fmt.Errorf("error acknowledging message: %w", err)
	}

	return nil
}

// Reject returns the message to the source queue for redelivery.
func (c *Consumer) Reject(ctx context.Context, payload []byte) error {
	pipe := c.client.TxPipeline()
	pipe.LRem(ctx, c.internalQueue, 1, string(payload))
	pipe.RPush(ctx, c.sourceQueue, string(payload))

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("error rejecting message: %w", err)
	}

	return nil
}

// DeadLetter moves the message to the dead-letter queue. Fails if no
// dead-letter queue is configured.
func (c *Consumer) DeadLetter(ctx context.Context, payload []byte) error {
	if c.deadLetterQueue == "" {
		return errors.New("no dead-letter queue configured")
	}

	pipe := c.client.TxPipeline()
	pipe.LRem(ctx, c.internalQueue, 1, string(payload))
	pipe.LPush(ctx, c.deadLetterQueue, string(payload))

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("error dead-lettering message: %w", err)
	}

	return nil
}

// HasDeadLetter reports whether a dead-letter queue is configured.
func (c *Consumer) HasDeadLetter() bool {
	return c.deadLetterQueue != ""
}

func (c *Consumer) Close() error {
	return c.client.Close()
}
