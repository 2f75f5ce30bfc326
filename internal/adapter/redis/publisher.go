package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// bodyField is the stream entry field holding the encoded message.
const bodyField = "body"

// Compile-time checks.
var (
	_ domain.EnrollmentPublisher = (*StreamPublisher)(nil)
	_ domain.MessageAcker        = (*StreamAcker)(nil)
)

// StreamPublisher appends enrollment messages to a stream.
type StreamPublisher struct {
	rdb    goredis.Cmdable
	stream string
}

// NewStreamPublisher creates a publisher writing to stream.
func NewStreamPublisher(rdb goredis.Cmdable, stream string) *StreamPublisher {
	return &StreamPublisher{rdb: rdb, stream: stream}
}

// Publish appends the enrollment to the stream.
func (p *StreamPublisher) Publish(ctx context.Context, enrollment domain.Enrollment) error {
	body, err := domain.EncodeEnrollmentMessage(enrollment)
	if err != nil {
		return &domain.QueueError{Op: "publish", Err: err}
	}

	err = p.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{bodyField: body},
	}).Err()
	if err != nil {
		return &domain.QueueError{Op: "publish", Err: err}
	}
	return nil
}

// StreamAcker acknowledges processed entries and removes them from the stream.
type StreamAcker struct {
	rdb    goredis.Cmdable
	stream string
	group  string
}

// NewStreamAcker creates an acker for the given stream and consumer group.
func NewStreamAcker(rdb goredis.Cmdable, stream, group string) *StreamAcker {
	return &StreamAcker{rdb: rdb, stream: stream, group: group}
}

// DeleteBatch acknowledges and deletes every message by its entry id.
func (a *StreamAcker) DeleteBatch(ctx context.Context, messages []domain.QueueMessage) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.Handle
	}

	_, err := a.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.XAck(ctx, a.stream, a.group, ids...)
		pipe.XDel(ctx, a.stream, ids...)
		return nil
	})
	if err != nil {
		return &domain.QueueError{Op: "delete", Err: err}
	}
	return nil
}
