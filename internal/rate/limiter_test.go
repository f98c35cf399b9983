package rate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testConfig() Config {
	return Config{Enabled: true, MaxAttempts: 10, Window: time.Minute}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemory(testConfig())
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	for i := 0; i < 10; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1", t0)
		if err != nil || !ok {
			t.Fatalf("attempt %d: expected allowed, ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "10.0.0.1", t0); ok {
		t.Fatal("expected 11th attempt to be limited")
	}
	if ok, _ := l.Allow(ctx, "10.0.0.1", t0.Add(59*time.Second)); ok {
		t.Fatal("expected attempt at 59s to be limited")
	}
	if ok, _ := l.Allow(ctx, "10.0.0.1", t0.Add(65*time.Second)); !ok {
		t.Fatal("expected attempt at 65s to be allowed")
	}
}

func TestMemoryLimiterRefusedAttemptsDoNotExtendBudget(t *testing.T) {
	l := NewMemory(testConfig())
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	for i := 0; i < 25; i++ {
		_, _ = l.Allow(ctx, "10.0.0.1", t0)
	}
	if got := l.windows["10.0.0.1"].count; got != 10 {
		t.Fatalf("expected counter to stop at 10, got %d", got)
	}
}

func TestMemoryLimiterIsolatesIPs(t *testing.T) {
	l := NewMemory(testConfig())
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	for i := 0; i < 11; i++ {
		_, _ = l.Allow(ctx, "10.0.0.1", t0)
	}
	if ok, _ := l.Allow(ctx, "10.0.0.2", t0); !ok {
		t.Fatal("expected other IP to be unaffected")
	}
}

func TestMemoryLimiterConcurrentAdmitsExactlyBudget(t *testing.T) {
	l := NewMemory(testConfig())
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(ctx, "10.0.0.1", t0); ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 10 {
		t.Fatalf("expected exactly 10 admitted, got %d", got)
	}
}

func TestRedisLimiterWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedis(client, testConfig())
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 10; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1", now)
		if err != nil || !ok {
			t.Fatalf("attempt %d: expected allowed, ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, err := l.Allow(ctx, "10.0.0.1", now); err != nil || ok {
		t.Fatalf("expected 11th attempt limited, ok=%v err=%v", ok, err)
	}
	if n, _ := l.Attempts(ctx, "10.0.0.1"); n != 10 {
		t.Fatalf("expected refused attempt not to increment, got %d", n)
	}

	mr.FastForward(59 * time.Second)
	if ok, _ := l.Allow(ctx, "10.0.0.1", now); ok {
		t.Fatal("expected attempt at 59s to be limited")
	}

	mr.FastForward(6 * time.Second)
	if ok, _ := l.Allow(ctx, "10.0.0.1", now); !ok {
		t.Fatal("expected attempt at 65s to be allowed")
	}
	if ok, _ := l.Allow(ctx, "10.0.0.2", now); !ok {
		t.Fatal("expected other IP to be unaffected")
	}
}

func TestRedisLimiterBackendDown(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedis(client, testConfig())
	mr.Close()

	if _, err := l.Allow(context.Background(), "10.0.0.1", time.Now()); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	_, client := newTestRedis(t)

	cases := []struct {
		name   string
		client redis.UniversalClient
		cfg    Config
		want   string
	}{
		{"disabled", client, Config{Enabled: false}, "rate.Disabled"},
		{"memory", nil, testConfig(), "*rate.MemoryLimiter"},
		{"redis", client, testConfig(), "*rate.RedisLimiter"},
	}
	for _, tc := range cases {
		l, err := New(tc.client, tc.cfg)
		if err != nil {
			t.Fatalf("%s: New failed: %v", tc.name, err)
		}
		if got := fmt.Sprintf("%T", l); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}

	if _, err := New(nil, Config{Enabled: true}); err == nil {
		t.Fatal("expected invalid config error")
	}
}
