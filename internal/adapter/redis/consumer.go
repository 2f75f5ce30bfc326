package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// BatchHandler finalizes a batch of queue messages.
type BatchHandler interface {
	HandleBatch(ctx context.Context, messages []domain.QueueMessage) (app.BatchResult, error)
}

// ConsumerConfig controls how the consumer reads from its stream.
type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// BatchSize caps the entries handed to the handler at once.
	BatchSize int64
	// Block is how long a read waits for new entries.
	Block time.Duration
	// ReclaimIdle is the visibility timeout: entries pending longer than
	// this are taken over and redelivered.
	ReclaimIdle time.Duration
	// MaxDeliveries moves an entry to the dead-letter stream instead of
	// handing it out for the MaxDeliveries-th time.
	MaxDeliveries int64
}

// DeadLetterStream names the stream that receives poison entries.
func (c ConsumerConfig) DeadLetterStream() string {
	return c.Stream + ":dead"
}

// Consumer reads enrollment batches from a stream through a consumer group
// and hands them to the finalizer. Entries are acknowledged by the handler's
// acker; anything left pending is reclaimed after ReclaimIdle.
type Consumer struct {
	rdb     goredis.Cmdable
	handler BatchHandler
	cfg     ConsumerConfig
}

// NewConsumer creates a consumer. Zero config values fall back to defaults.
func NewConsumer(rdb goredis.Cmdable, handler BatchHandler, cfg ConsumerConfig) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	if cfg.ReclaimIdle <= 0 {
		cfg.ReclaimIdle = 30 * time.Second
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return &Consumer{rdb: rdb, handler: handler, cfg: cfg}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// Run polls until ctx is cancelled. A failed batch stays pending in the group
// and is picked up again once it has been idle for ReclaimIdle.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "redis consumer started",
		"stream", c.cfg.Stream,
		"group", c.cfg.Group,
		"consumer", c.cfg.Consumer,
	)

	for {
		messages, err := c.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.ErrorContext(ctx, "polling stream", "stream", c.cfg.Stream, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.Block):
			}
			continue
		}
		if len(messages) == 0 {
			continue
		}

		result, err := c.handler.HandleBatch(ctx, messages)
		if err != nil {
			slog.ErrorContext(ctx, "batch left pending for redelivery",
				"count", len(messages),
				"status_code", result.StatusCode,
				"error", err,
			)
		}
	}
}

// Poll returns the next batch. Entries abandoned by a failed or crashed
// consumer take priority over new ones.
func (c *Consumer) Poll(ctx context.Context) ([]domain.QueueMessage, error) {
	reclaimed, err := c.reclaim(ctx)
	if err != nil {
		return nil, err
	}
	if len(reclaimed) > 0 {
		return reclaimed, nil
	}

	streams, err := c.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}

	var out []domain.QueueMessage
	for _, s := range streams {
		for _, m := range s.Messages {
			out = append(out, toQueueMessage(m))
		}
	}
	return out, nil
}

// reclaim claims entries idle longer than ReclaimIdle and routes the ones
// past MaxDeliveries to the dead-letter stream.
func (c *Consumer) reclaim(ctx context.Context) ([]domain.QueueMessage, error) {
	claimed, _, err := c.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.ReclaimIdle,
		Start:    "0-0",
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("reclaiming idle entries: %w", err)
	}

	out := make([]domain.QueueMessage, 0, len(claimed))
	for _, m := range claimed {
		deliveries, err := c.deliveries(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if deliveries >= c.cfg.MaxDeliveries {
			if err := c.deadLetter(ctx, m, deliveries); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, toQueueMessage(m))
	}
	return out, nil
}

func (c *Consumer) deliveries(ctx context.Context, id string) (int64, error) {
	pending, err := c.rdb.XPendingExt(ctx, &goredis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("reading delivery count of %s: %w", id, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

func (c *Consumer) deadLetter(ctx context.Context, m goredis.XMessage, deliveries int64) error {
	body, _ := m.Values[bodyField].(string)

	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: c.cfg.DeadLetterStream(),
			Values: map[string]any{
				bodyField:     body,
				"source_id":   m.ID,
				"deliveries":  deliveries,
				"dead_at":     time.Now().UTC().Format(time.RFC3339),
				"source_name": c.cfg.Stream,
			},
		})
		pipe.XAck(ctx, c.cfg.Stream, c.cfg.Group, m.ID)
		pipe.XDel(ctx, c.cfg.Stream, m.ID)
		return nil
	})
	if err != nil {
		return &domain.QueueError{Op: "dead-letter", Err: err}
	}

	slog.WarnContext(ctx, "entry moved to dead-letter stream",
		"message_id", m.ID,
		"deliveries", deliveries,
		"dead_letter_stream", c.cfg.DeadLetterStream(),
	)
	return nil
}

// toQueueMessage converts a stream entry. An entry without a body yields an
// empty body, which the finalizer rejects as malformed.
func toQueueMessage(m goredis.XMessage) domain.QueueMessage {
	body, _ := m.Values[bodyField].(string)
	return domain.QueueMessage{ID: m.ID, Handle: m.ID, Body: []byte(body)}
}
