package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-api-auth/internal/domain"
	"github.com/redis/go-redis/v9"
)

const taskField = "task"

// TaskStream publishes and consumes notification tasks on a Redis stream
// through a consumer group.
type TaskStream struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	block    time.Duration
	batch    int64
}

func NewTaskStream(client *redis.Client, stream, group, consumer string) *TaskStream {
	return &TaskStream{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		block:    5 * time.Second,
		batch:    10,
	}
}

func (s *TaskStream) Publish(ctx context.Context, t domain.Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{taskField: payload},
	}).Err()
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (s *TaskStream) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Consume reads tasks until ctx is cancelled. Messages are acknowledged only
// when handle succeeds; failures stay pending in the group. Tasks that can
// never succeed (malformed, or rejected with domain.ErrValidation) are dropped.
func (s *TaskStream) Consume(ctx context.Context, handle func(context.Context, domain.Task) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := s.ReadOnce(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// ReadOnce handles at most one batch and returns how many messages were acked.
func (s *TaskStream) ReadOnce(ctx context.Context, handle func(context.Context, domain.Task) error) (int, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batch,
		Block:    s.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stream: %w", err)
	}

	acked := 0
	for _, st := range res {
		for _, msg := range st.Messages {
			task, err := decodeTask(msg.Values)
			if err != nil {
				slog.Error("dropping malformed task", "message_id", msg.ID, "err", err)
				s.ack(ctx, msg.ID)
				continue
			}
			if err := handle(ctx, task); err != nil {
				if errors.Is(err, domain.ErrValidation) {
					slog.Error("dropping unprocessable task", "message_id", msg.ID, "kind", task.Kind, "err", err)
					s.ack(ctx, msg.ID)
					continue
				}
				slog.Warn("task failed", "message_id", msg.ID, "kind", task.Kind, "err", err)
				continue
			}
			s.ack(ctx, msg.ID)
			acked++
		}
	}
	return acked, nil
}

func (s *TaskStream) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		slog.Warn("failed to ack task", "message_id", id, "err", err)
	}
}

func decodeTask(values map[string]interface{}) (domain.Task, error) {
	var t domain.Task
	raw, ok := values[taskField].(string)
	if !ok {
		return t, errors.New("missing task field")
	}
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return t, err
	}
	return t, nil
}
