package loginguard

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/MrEthical07/loginguard/internal/ipban"
	"github.com/MrEthical07/loginguard/internal/pending"
	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/jwt"
	"github.com/MrEthical07/loginguard/password"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder defines a public type used by loginguard APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	banStore     BanStore
	auditLog     AuditLog
	trust        TrustPolicy
	logger       *zap.Logger
	clock        func() time.Time

	built bool
}

// New starts a Builder from the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis shares client between the rate limiter, ban store, pending-token
// ledger, and default audit stream. Without it those use in-process state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the required account store.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithBanStore overrides the ban store chosen by Build.
func (b *Builder) WithBanStore(store BanStore) *Builder {
	b.banStore = store
	return b
}

// WithAuditLog sets the audit log. Required unless a Redis client is set, in
// which case events default to a Redis stream.
func (b *Builder) WithAuditLog(log AuditLog) *Builder {
	b.auditLog = log
	return b
}

// WithTrustPolicy replaces the default last-IP trust policy.
func (b *Builder) WithTrustPolicy(p TrustPolicy) *Builder {
	b.trust = p
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source. Each transition reads it once.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithRateLimitEnabled toggles per-IP rate limiting.
func (b *Builder) WithRateLimitEnabled(enabled bool) *Builder {
	b.config.RateLimit.Enabled = enabled
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles an Engine. A Builder can
// be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("loginguard")

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- AUDIT LOG --------
	auditLog := b.auditLog
	if auditLog == nil {
		if b.redis == nil {
			return nil, errors.New("audit log required")
		}
		auditLog = NewRedisStreamAuditLog(b.redis, "", 0)
	}

	// -------- RATE LIMITER --------
	limiter, err := rate.New(b.redis, rate.Config{
		Enabled:     cfg.RateLimit.Enabled,
		MaxAttempts: cfg.RateLimit.MaxAttempts,
		Window:      cfg.RateLimit.Window,
		KeyPrefix:   cfg.RateLimit.RedisPrefix,
	})
	if err != nil {
		return nil, err
	}

	// -------- IP BANS --------
	banStore := b.banStore
	if banStore == nil {
		if b.redis != nil {
			banStore = ipban.NewRedisStore(b.redis, cfg.Ban.RedisPrefix)
		} else {
			banStore = ipban.NewMemoryStore()
		}
	}

	// -------- PENDING TOKENS --------
	signingKey := cfg.PendingToken.PrivateKey
	if cfg.PendingToken.SigningMethod == "hs256" && len(signingKey) == 0 {
		signingKey = make([]byte, 32)
		if _, err := rand.Read(signingKey); err != nil {
			return nil, err
		}
		logger.Warn("no pending-token key configured; generated a process-local key")
	}
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.PendingToken.TTL,
		SigningMethod: jwt.SigningMethod(cfg.PendingToken.SigningMethod),
		PrivateKey:    signingKey,
		PublicKey:     cloneBytes(cfg.PendingToken.PublicKey),
		KeyID:         cfg.PendingToken.KeyID,
		Issuer:        cfg.PendingToken.Issuer,
		Leeway:        cfg.PendingToken.Leeway,
		VerifyKeys:    cfg.PendingToken.VerifyKeys,
	}, clock)
	if err != nil {
		return nil, err
	}

	var ledger pending.Ledger
	switch {
	case !cfg.PendingToken.SingleUse:
		ledger = pending.Unlimited{}
	case b.redis != nil:
		ledger = pending.NewRedisLedger(b.redis, cfg.PendingToken.LedgerPrefix)
	default:
		ledger = pending.NewMemoryLedger()
	}

	// -------- PASSWORDS --------
	pv, err := password.NewVerifier(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	}, cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}

	// -------- TRUST --------
	trust := b.trust
	if trust == nil {
		tp, err := newLastIPTrustPolicy(cfg.Trust.TrustedCIDRs)
		if err != nil {
			return nil, err
		}
		trust = tp
	}

	engine := &Engine{
		config:       cfg,
		userProvider: b.userProvider,
		rateLimiter:  limiter,
		bans:         ipban.NewRegistry(banStore),
		audit:        auditLog,
		pending:      jm,
		ledger:       ledger,
		passwords:    pv,
		totp:         newTOTPManager(cfg.TOTP),
		trust:        trust,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger,
		now:          clock,
	}

	b.built = true

	return engine, nil
}
