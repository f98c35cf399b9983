//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
//
// Cluster is not listed: the session store updates the record and the user
// index in one transaction, and those keys do not share a hash slot.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				// Flush the test DB to avoid state leaking between runs.
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	// Sentinel mode: when REDIS_SENTINEL_ADDRS and REDIS_SENTINEL_MASTER are set.
	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis sentinel: %v", err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	return modes
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// TestRedisCompat_TOTPLoginRoundTrip drives login, verify, and logout with
// every component on Redis.
func TestRedisCompat_TOTPLoginRoundTrip(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			ctx := context.Background()
			engine := newRedisEngine(t, rdb, integrationConfig())
			sessions := session.NewStore(rdb, "compat", time.Hour)
			sess := sessions.Handle("sid-compat")

			res, err := engine.Login(ctx, loginguard.LoginRequest{
				Handle:   "bob@example.com",
				Password: integrationPassword,
				IP:       "198.51.100.4",
				Session:  sess,
			})
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if res.Outcome != loginguard.OutcomeTOTPRequired || res.PendingToken == "" {
				t.Fatalf("expected totp_required with a token, got %+v", res)
			}
			if uid, _ := sess.UserID(ctx); uid != "" {
				t.Fatalf("session must stay anonymous before verification, got %q", uid)
			}

			verify := loginguard.VerifyRequest{
				Token:    res.PendingToken,
				Code:     currentCode(t),
				IP:       "198.51.100.4",
				Redirect: "/home",
				Session:  sess,
			}
			res, err = engine.VerifyTOTP(ctx, verify)
			if err != nil {
				t.Fatalf("VerifyTOTP: %v", err)
			}
			if res.Outcome != loginguard.OutcomeSuccess || res.Redirect != "/home" {
				t.Fatalf("expected success to /home, got %+v", res)
			}

			// Replay of the same token is refused by the Redis ledger.
			res, err = engine.VerifyTOTP(ctx, verify)
			if err != nil {
				t.Fatalf("replay VerifyTOTP: %v", err)
			}
			if res.Outcome != loginguard.OutcomeInvalidCode {
				t.Fatalf("expected invalid_code on replay, got %s", res.Outcome)
			}

			if err := engine.Logout(ctx, sess); err != nil {
				t.Fatalf("Logout: %v", err)
			}
			if rec, err := sessions.Get(ctx, "sid-compat"); err != nil || rec != nil {
				t.Fatalf("expected session gone, got %+v err=%v", rec, err)
			}

			n, err := rdb.XLen(ctx, "lga:events").Result()
			if err != nil {
				t.Fatalf("XLen: %v", err)
			}
			// pending verification, totp login, logout; the replay is not audited
			if n != 3 {
				t.Fatalf("expected 3 audit entries, got %d", n)
			}
		})
	}
}

// TestRedisCompat_RateLimitAndBans validates the Lua limiter and ban hit
// counting across backends.
func TestRedisCompat_RateLimitAndBans(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			ctx := context.Background()
			cfg := integrationConfig()
			cfg.RateLimit.MaxAttempts = 3
			engine := newRedisEngine(t, rdb, cfg)

			login := func(ip string) loginguard.Outcome {
				t.Helper()
				res, err := engine.Login(ctx, loginguard.LoginRequest{
					Handle:   "alice",
					Password: "wrong",
					IP:       ip,
					Session:  session.NewMemory(""),
				})
				if err != nil {
					t.Fatalf("Login: %v", err)
				}
				return res.Outcome
			}

			for i := 0; i < 3; i++ {
				if got := login("192.0.2.10"); got != loginguard.OutcomeInvalidCredentials {
					t.Fatalf("attempt %d: expected invalid_credentials, got %s", i+1, got)
				}
			}
			if got := login("192.0.2.10"); got != loginguard.OutcomeRateLimited {
				t.Fatalf("expected rate_limited, got %s", got)
			}

			bans := loginguard.NewRedisBanStore(rdb, cfg.Ban.RedisPrefix)
			ban, err := bans.Add(ctx, "192.0.2.20", loginguard.BanFull)
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			for i := 0; i < 2; i++ {
				if got := login("192.0.2.20"); got != loginguard.OutcomeForbidden {
					t.Fatalf("expected forbidden, got %s", got)
				}
			}
			stored, err := bans.Get(ctx, ban.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if stored.Hits != 2 {
				t.Fatalf("expected 2 hits, got %d", stored.Hits)
			}
		})
	}
}
