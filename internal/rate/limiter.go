package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "lgr"

// Config holds rate limiter tuning parameters.
type Config struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	KeyPrefix   string
}

func (c Config) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxAttempts <= 0 || c.Window <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Limiter records an attempt for ip and reports whether it is admitted.
type Limiter interface {
	Allow(ctx context.Context, ip string, now time.Time) (bool, error)
}

// Disabled admits every attempt.
type Disabled struct{}

// Allow always returns true.
func (Disabled) Allow(context.Context, string, time.Time) (bool, error) { return true, nil }

// New picks the Redis backend when a client is supplied and the in-memory
// backend otherwise. A disabled config yields [Disabled].
func New(client redis.UniversalClient, cfg Config) (Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	if client == nil {
		return NewMemory(cfg), nil
	}
	return NewRedis(client, cfg), nil
}

/*
====================================
REDIS BACKEND
====================================
*/

// allowScript admits an attempt only while the stored count is below the
// budget. The TTL is set on the first hit so the window is anchored there.
var allowScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
	return 0
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// RedisLimiter shares counters across processes through Redis.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client redis.UniversalClient, cfg Config) *RedisLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	return &RedisLimiter{redis: client, config: cfg}
}

// Allow records an attempt. now is unused; Redis TTLs drive the window.
func (l *RedisLimiter) Allow(ctx context.Context, ip string, _ time.Time) (bool, error) {
	admitted, err := allowScript.Run(
		ctx,
		l.redis,
		[]string{l.key(ip)},
		l.config.MaxAttempts,
		l.config.Window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return admitted == 1, nil
}

// Attempts returns the admitted count in the current window.
func (l *RedisLimiter) Attempts(ctx context.Context, ip string) (int, error) {
	n, err := l.redis.Get(ctx, l.key(ip)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

func (l *RedisLimiter) key(ip string) string {
	return l.config.KeyPrefix + ":" + ip
}

/*
====================================
IN-MEMORY BACKEND
====================================
*/

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps per-IP windows in process memory.
type MemoryLimiter struct {
	config Config

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemory creates an in-process limiter.
func NewMemory(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  cfg,
		windows: make(map[string]*window),
	}
}

// Allow records an attempt at now.
func (l *MemoryLimiter) Allow(_ context.Context, ip string, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[ip]
	if !ok || now.Sub(w.start) >= l.config.Window {
		l.windows[ip] = &window{start: now, count: 1}
		l.sweepLocked(now)
		return true, nil
	}
	if w.count >= l.config.MaxAttempts {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweepLocked drops expired windows so idle IPs do not accumulate.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for ip, w := range l.windows {
		if now.Sub(w.start) >= l.config.Window {
			delete(l.windows, ip)
		}
	}
}
