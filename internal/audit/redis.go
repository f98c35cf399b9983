package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStream = "lga:events"

// RedisStreamSink appends events to a Redis stream.
type RedisStreamSink struct {
	redis  redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a sink writing to stream. maxLen > 0 trims the
// stream approximately to that many entries.
func NewRedisStreamSink(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = defaultStream
	}
	return &RedisStreamSink{redis: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Append(ctx context.Context, event Event) error {
	values := map[string]interface{}{
		"id":   event.ID,
		"kind": string(event.Kind),
		"user": event.UserID,
		"ip":   event.IP,
		"ts":   strconv.FormatInt(event.Timestamp.UnixNano(), 10),
	}
	for k, v := range event.Metadata {
		values["m."+k] = v
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.redis.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return nil
}

// Read returns up to count events from the start of the stream.
func (s *RedisStreamSink) Read(ctx context.Context, count int64) ([]Event, error) {
	msgs, err := s.redis.XRangeN(ctx, s.stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}

	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decodeStreamEvent(msg.Values))
	}
	return out, nil
}

func decodeStreamEvent(values map[string]interface{}) Event {
	str := func(k string) string {
		v, _ := values[k].(string)
		return v
	}

	e := Event{
		ID:     str("id"),
		Kind:   Kind(str("kind")),
		UserID: str("user"),
		IP:     str("ip"),
	}
	if ns, err := strconv.ParseInt(str("ts"), 10, 64); err == nil {
		e.Timestamp = time.Unix(0, ns).UTC()
	}
	for k, v := range values {
		if len(k) > 2 && k[:2] == "m." {
			if e.Metadata == nil {
				e.Metadata = map[string]string{}
			}
			e.Metadata[k[2:]], _ = v.(string)
		}
	}
	return e
}
