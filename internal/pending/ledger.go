// Package pending records which pending-authentication tokens have been
// presented, so that each token is good for at most one verification attempt.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrAlreadyConsumed is returned when a token ID was presented before.
	ErrAlreadyConsumed = errors.New("pending token already consumed")
	// ErrRedisUnavailable wraps ledger backend failures.
	ErrRedisUnavailable = errors.New("pending ledger redis unavailable")
)

// Ledger marks token IDs as consumed. Consume must be atomic: of any number of
// concurrent calls with the same ID, exactly one returns nil. expiresAt is the
// last instant the token can still be parsed, leeway included; the ID must be
// remembered at least until then.
type Ledger interface {
	Consume(ctx context.Context, tokenID string, expiresAt, now time.Time) error
}

// RedisLedger keeps consumed IDs as keys that expire once the token no longer
// parses.
type RedisLedger struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "lgp"
	}
	return &RedisLedger{redis: client, prefix: prefix}
}

func (l *RedisLedger) key(tokenID string) string {
	return l.prefix + ":" + tokenID
}

func (l *RedisLedger) Consume(ctx context.Context, tokenID string, expiresAt, now time.Time) error {
	ttl := expiresAt.Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := l.redis.SetNX(ctx, l.key(tokenID), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrAlreadyConsumed
	}
	return nil
}

// MemoryLedger is a process-local Ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	consumed map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{consumed: make(map[string]time.Time)}
}

func (l *MemoryLedger) Consume(_ context.Context, tokenID string, expiresAt, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.consumed[tokenID]; ok && !now.After(exp) {
		return ErrAlreadyConsumed
	}
	if len(l.consumed) > 1024 {
		for id, exp := range l.consumed {
			if now.After(exp) {
				delete(l.consumed, id)
			}
		}
	}
	l.consumed[tokenID] = expiresAt
	return nil
}

// Unlimited never refuses a token. It backs configurations that allow a
// pending token to be retried until it expires.
type Unlimited struct{}

func (Unlimited) Consume(context.Context, string, time.Time, time.Time) error {
	return nil
}
