package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/envconfig"
	"github.com/MrEthical07/loginguard/internal/ipban"
	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/session"
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "dotenv file with LOGINGUARD_* overrides")
		ips         = flag.Int("ips", 1000, "distinct source addresses")
		banned      = flag.Int("banned", 100, "addresses carrying a full ban")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, LOGINGUARD_REDIS_ADDR or miniredis is used")
	)
	flag.Parse()

	if *ips <= 0 || *concurrency <= 0 || *ops <= 0 || *banned < 0 || *banned > *ips {
		fmt.Fprintln(os.Stderr, "ips, concurrency, and ops must be > 0 and banned must be within [0, ips]")
		os.Exit(2)
	}

	settings, err := envconfig.Load(*envFile, loginguard.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := newLogger(settings.LogLevel)
	defer func() { _ = logger.Sync() }()

	addr := *redisAddr
	if addr == "" {
		addr = settings.RedisAddr
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal("failed to start miniredis", zap.Error(err))
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		logger.Info("using miniredis", zap.String("addr", addr))
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		logger.Info("using redis", zap.String("addr", addr))
	}
	defer cleanup()

	ctx := context.Background()
	cfg := settings.Engine
	addrs := make([]string, *ips)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF)
	}

	if !cfg.RateLimit.Enabled || cfg.RateLimit.MaxAttempts <= 0 || cfg.RateLimit.Window <= 0 {
		logger.Fatal("loadtest needs an enabled rate limit with positive bounds")
	}
	limiter := rate.NewRedis(client, rate.Config{
		Enabled:     true,
		MaxAttempts: cfg.RateLimit.MaxAttempts,
		Window:      cfg.RateLimit.Window,
		KeyPrefix:   cfg.RateLimit.RedisPrefix,
	})

	bans := ipban.NewRedisStore(client, cfg.Ban.RedisPrefix)
	banIDs := make(map[string]string, *banned)
	for i := 0; i < *banned; i++ {
		b, err := bans.Add(ctx, addrs[i], ipban.Full)
		if err != nil {
			logger.Fatal("seed ban failed", zap.Error(err))
		}
		banIDs[addrs[i]] = b.ID
	}
	logger.Info("seeded bans", zap.Int("count", *banned))

	sessions := session.NewStore(client, "", 0)

	limitStats, admitted := runRateLimitPhase(ctx, limiter, addrs, *ops, *concurrency)
	banStats, blocked := runBanPhase(ctx, ipban.NewRegistry(bans), addrs, *ops, *concurrency)
	sessionStats := runSessionPhase(ctx, sessions, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("rate-limit", limitStats)
	printStats("ip-ban", banStats)
	printStats("session", sessionStats)

	// A phase longer than one window legitimately admits a fresh budget per window.
	windows := 1
	if cfg.RateLimit.Window > 0 {
		windows += int(limitStats.total / cfg.RateLimit.Window)
	}
	ok := checkRateLimit(logger, admitted, *ops, len(addrs), cfg.RateLimit.MaxAttempts*windows)
	ok = checkBanHits(ctx, logger, bans, banIDs, blocked) && ok
	if !ok {
		os.Exit(1)
	}
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("loadtest")
}

type worker func(r *rand.Rand, i int) error

// runPhase spreads ops over concurrency goroutines and times each call.
func runPhase(ops, concurrency int, seed int64, fn worker) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runRateLimitPhase(ctx context.Context, limiter rate.Limiter, addrs []string, ops, concurrency int) (phaseStats, map[string]*int64) {
	admitted := make(map[string]*int64, len(addrs))
	for _, a := range addrs {
		admitted[a] = new(int64)
	}

	stats := runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) error {
		ip := addrs[r.Intn(len(addrs))]
		ok, err := limiter.Allow(ctx, ip, time.Now())
		if err != nil {
			return err
		}
		if ok {
			atomic.AddInt64(admitted[ip], 1)
		}
		return nil
	})
	return stats, admitted
}

func runBanPhase(ctx context.Context, registry *ipban.Registry, addrs []string, ops, concurrency int) (phaseStats, map[string]*int64) {
	blocked := make(map[string]*int64, len(addrs))
	for _, a := range addrs {
		blocked[a] = new(int64)
	}

	stats := runPhase(ops, concurrency, 6151, func(r *rand.Rand, _ int) error {
		ip := addrs[r.Intn(len(addrs))]
		verdict, err := registry.Evaluate(ctx, ip, time.Now())
		if err != nil {
			return err
		}
		if verdict == ipban.Blocked {
			atomic.AddInt64(blocked[ip], 1)
		}
		return nil
	})
	return stats, blocked
}

func runSessionPhase(ctx context.Context, store *session.Store, ops, concurrency int) phaseStats {
	const sessionsPerUser = 4
	users := ops/(sessionsPerUser*8) + 1

	return runPhase(ops, concurrency, 104729, func(r *rand.Rand, i int) error {
		sid := fmt.Sprintf("sid-%d", r.Intn(users*sessionsPerUser))
		if i%5 == 4 {
			return store.Delete(ctx, sid)
		}
		return store.Establish(ctx, sid, fmt.Sprintf("u%d", r.Intn(users)))
	})
}

// checkRateLimit verifies no address was admitted more than the budget.
func checkRateLimit(logger *zap.Logger, admitted map[string]*int64, ops, ips, budget int) bool {
	var total int64
	ok := true
	for ip, n := range admitted {
		v := atomic.LoadInt64(n)
		total += v
		if v > int64(budget) {
			logger.Error("rate limit exceeded", zap.String("ip", ip), zap.Int64("admitted", v), zap.Int("budget", budget))
			ok = false
		}
	}
	fmt.Printf("rate-limit: admitted=%d of %d attempts across %d addresses (budget %d each)\n", total, ops, ips, budget)
	return ok
}

// checkBanHits verifies every blocked evaluation was counted exactly once.
func checkBanHits(ctx context.Context, logger *zap.Logger, store *ipban.RedisStore, banIDs map[string]string, blocked map[string]*int64) bool {
	ok := true
	var total int64
	for ip, id := range banIDs {
		b, err := store.Get(ctx, id)
		if err != nil {
			logger.Error("ban lookup failed", zap.String("ban_id", id), zap.Error(err))
			ok = false
			continue
		}
		want := atomic.LoadInt64(blocked[ip])
		total += want
		if b.Hits != want {
			logger.Error("ban hit count mismatch", zap.String("ip", ip), zap.Int64("hits", b.Hits), zap.Int64("blocked", want))
			ok = false
		}
	}
	fmt.Printf("ip-ban: blocked=%d across %d banned addresses\n", total, len(banIDs))
	return ok
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
