package ipban

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "lgb"

// RedisStore keeps bans in Redis hashes:
//
//	<prefix>:ban:<id>  -> {ip, category, deleted, hits, last_hit}
//	<prefix>:ip:<ip>   -> set of ban ids
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed ban store.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) banKey(id string) string { return s.prefix + ":ban:" + id }
func (s *RedisStore) ipKey(ip string) string  { return s.prefix + ":ip:" + ip }

// Add inserts a ban and returns it with its assigned ID.
func (s *RedisStore) Add(ctx context.Context, ip string, category Category) (Ban, error) {
	seq, err := s.redis.Incr(ctx, s.prefix+":seq").Result()
	if err != nil {
		return Ban{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	b := Ban{ID: strconv.FormatInt(seq, 10), IP: ip, Category: category}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.banKey(b.ID),
			"ip", ip,
			"category", string(category),
			"deleted", "0",
			"hits", 0,
		)
		pipe.SAdd(ctx, s.ipKey(ip), b.ID)
		return nil
	})
	if err != nil {
		return Ban{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return b, nil
}

// Delete marks a ban as deleted.
func (s *RedisStore) Delete(ctx context.Context, banID string) error {
	n, err := s.redis.Exists(ctx, s.banKey(banID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if n == 0 {
		return ErrBanNotFound
	}
	if err := s.redis.HSet(ctx, s.banKey(banID), "deleted", "1").Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Get loads one ban.
func (s *RedisStore) Get(ctx context.Context, banID string) (Ban, error) {
	fields, err := s.redis.HGetAll(ctx, s.banKey(banID)).Result()
	if err != nil {
		return Ban{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(fields) == 0 {
		return Ban{}, ErrBanNotFound
	}
	return decodeBan(banID, fields), nil
}

func (s *RedisStore) BansFor(ctx context.Context, ip string) ([]Ban, error) {
	ids, err := s.redis.SMembers(ctx, s.ipKey(ip)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.banKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	out := make([]Ban, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, decodeBan(ids[i], fields))
	}
	return out, nil
}

// recordHitScript bumps hits on a live ban only. A ban removed between
// BansFor and RecordHit is left as is.
var recordHitScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 or redis.call("HGET", KEYS[1], "deleted") ~= "0" then
	return 0
end
redis.call("HINCRBY", KEYS[1], "hits", 1)
redis.call("HSET", KEYS[1], "last_hit", ARGV[1])
return 1
`)

func (s *RedisStore) RecordHit(ctx context.Context, banID string, at time.Time) error {
	n, err := recordHitScript.Run(ctx, s.redis, []string{s.banKey(banID)}, at.UnixNano()).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if n == 0 {
		return ErrBanNotFound
	}
	return nil
}

func decodeBan(id string, fields map[string]string) Ban {
	b := Ban{
		ID:       id,
		IP:       fields["ip"],
		Category: Category(fields["category"]),
		Deleted:  fields["deleted"] == "1",
	}
	b.Hits, _ = strconv.ParseInt(fields["hits"], 10, 64)
	if raw := fields["last_hit"]; raw != "" {
		if ns, err := strconv.ParseInt(raw, 10, 64); err == nil {
			b.LastHitAt = time.Unix(0, ns)
		}
	}
	return b
}
