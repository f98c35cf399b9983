package loginguard

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/loginguard/internal/ipban"
	"github.com/MrEthical07/loginguard/internal/pending"
	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/jwt"
	"github.com/MrEthical07/loginguard/password"
	"go.uber.org/zap"
)

// Engine runs the login, verify, and logout transitions.
//
// Engine is safe for concurrent use after [Builder.Build].
type Engine struct {
	config       Config
	userProvider UserProvider
	rateLimiter  rate.Limiter
	bans         *ipban.Registry
	audit        AuditLog
	pending      *jwt.Manager
	ledger       pending.Ledger
	passwords    *password.Verifier
	totp         *totpManager
	trust        TrustPolicy
	metrics      *Metrics
	logger       *zap.Logger
	now          func() time.Time

	// auditFailures counts even with metrics disabled.
	auditFailures atomic.Uint64
	closeOnce     sync.Once
}

// Close flushes the engine logger. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.logger != nil {
			_ = e.logger.Sync()
		}
	})
}

// AuditFailures returns how many audit appends have failed. It counts
// regardless of Config.Metrics.
func (e *Engine) AuditFailures() uint64 {
	if e == nil {
		return 0
	}
	return e.auditFailures.Load()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ProvisionTOTP generates a TOTP secret for account. The caller stores
// Secret on the user record and shows URI to the user as a QR code.
func (e *Engine) ProvisionTOTP(account string) (*TOTPProvision, error) {
	if e == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, ErrInvalidHandle
	}
	return e.totp.Provision(account)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) result(outcome Outcome) *LoginResult {
	return &LoginResult{Outcome: outcome}
}
