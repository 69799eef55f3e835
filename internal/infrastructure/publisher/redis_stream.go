package publisher

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
)

const defaultStreamMaxLen = 100_000

// RedisStreamPublisher appends events to a capped Redis stream.
type RedisStreamPublisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
	logger *logging.Logger
}

func NewRedisStreamPublisher(client redis.Cmdable, stream string, logger *logging.Logger) *RedisStreamPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStreamPublisher{
		client: client,
		stream: stream,
		maxLen: defaultStreamMaxLen,
		logger: logger,
	}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, events []match.Event) error {
	if len(events) == 0 {
		return nil
	}

	args := make([]*redis.XAddArgs, 0, len(events))
	for _, event := range events {
		item, err := p.streamArgs(event)
		if err != nil {
			return err
		}
		args = append(args, item)
	}

	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range args {
			pipe.XAdd(ctx, item)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "xadd %d event(s) to stream=%s", len(args), p.stream)
	}

	p.logger.DebugContext(ctx, "published match events", "count", len(args), "sink", "redis", "stream", p.stream)
	return nil
}

func (p *RedisStreamPublisher) streamArgs(event match.Event) (*redis.XAddArgs, error) {
	payload, err := encodeEvent(event)
	if err != nil {
		return nil, errors.Wrapf(err, "encode event type=%s match_id=%s", event.Type, event.MatchID)
	}
	return &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"match_id": event.MatchID,
			"type":     string(event.Type),
			"payload":  string(payload),
		},
	}, nil
}
