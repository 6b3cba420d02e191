package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"weathercache/internal/metrics"
	"weathercache/internal/models"
)

// Event announces a day that was fetched from the remote source and stored
type Event struct {
	Key        string             `json:"key"`
	Coordinate models.Coordinate  `json:"coordinate"`
	Day        time.Time          `json:"day"`
	Record     models.DailyRecord `json:"record"`
}

// Publisher writes events to a Redis stream under the "data" field
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) Publish(ctx context.Context, key string, coord models.Coordinate, day time.Time, record *models.DailyRecord) error {
	data, err := json.Marshal(Event{Key: key, Coordinate: coord, Day: day, Record: *record})
	if err != nil {
		metrics.RecordEventPublished(err)
		return fmt.Errorf("failed to serialize event for %s: %w", key, err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	metrics.RecordEventPublished(err)
	if err != nil {
		return fmt.Errorf("failed to publish %s to stream %s: %w", key, p.stream, err)
	}
	return nil
}

// Handler processes one event. Returning an error leaves the message pending.
type Handler func(ctx context.Context, event Event) error

type ConsumerOptions struct {
	Group    string
	Consumer string
	// Count caps messages per read. Defaults to 10.
	Count int64
	// Block is how long a read waits for new messages. Negative disables blocking.
	Block time.Duration
}

// Consumer reads a stream through a consumer group
type Consumer struct {
	client *redis.Client
	stream string
	opts   ConsumerOptions
}

func NewConsumer(client *redis.Client, stream string, opts ConsumerOptions) *Consumer {
	if opts.Count <= 0 {
		opts.Count = 10
	}
	if opts.Consumer == "" {
		opts.Consumer = "consumer-1"
	}
	return &Consumer{client: client, stream: stream, opts: opts}
}

// EnsureGroup creates the consumer group and the stream if they do not exist
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.opts.Group, err)
	}
	return nil
}

// Poll reads one batch, hands each event to handler and acknowledges the
// ones it accepted. It returns how many were acknowledged.
func (c *Consumer) Poll(ctx context.Context, handler Handler) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.opts.Count,
		Block:    c.opts.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", c.stream, err)
	}

	acked := 0
	for _, stream := range streams {
		for _, m := range stream.Messages {
			raw, ok := m.Values["data"].(string)
			if !ok {
				log.Printf("Warning: message %s has no 'data' field", m.ID)
				c.ack(ctx, m.ID)
				continue
			}

			var event Event
			if err := json.Unmarshal([]byte(raw), &event); err != nil {
				log.Printf("Failed to unmarshal message %s: %v", m.ID, err)
				c.ack(ctx, m.ID)
				continue
			}

			if err := handler(ctx, event); err != nil {
				log.Printf("Failed to handle %s: %v", event.Key, err)
				continue
			}

			if c.ack(ctx, m.ID) {
				acked++
			}
		}
	}
	return acked, nil
}

// Run polls until ctx is cancelled
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := c.Poll(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("Error reading from Redis: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) ack(ctx context.Context, id string) bool {
	if err := c.client.XAck(ctx, c.stream, c.opts.Group, id).Err(); err != nil {
		log.Printf("Failed to ack message %s: %v", id, err)
		return false
	}
	return true
}
