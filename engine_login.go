package loginguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/loginguard/internal/ipban"
	"github.com/MrEthical07/loginguard/password"
	"go.uber.org/zap"
)

// Login runs the first-factor transition.
//
// Checks run in order and stop at the first failure: rate limit, redirect
// target, IP ban, identity lookup, account state, password. An account with
// TOTP enabled receives a pending token instead of a session.
//
// Rejections are reported through LoginResult.Outcome with a nil error. A
// non-nil error means a backing store failed; no session change survives it
// without its audit record.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	if req.Session == nil {
		return nil, ErrNilSession
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}()
	}

	now := e.now()
	ip := resolveIP(ctx, req.IP)
	log := e.logger.With(zap.String("ip", ip))

	allowed, err := e.rateLimiter.Allow(ctx, ip, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimiterUnavailable, err)
	}
	if !allowed {
		e.metricInc(MetricLoginRateLimited)
		log.Info("login rate limited")
		return e.result(OutcomeRateLimited), nil
	}

	redirect, ok := e.redirectTarget(req.Redirect)
	if !ok {
		e.metricInc(MetricUnsafeRedirect)
		log.Warn("unsafe redirect refused", zap.String("redirect", req.Redirect))
		return e.result(OutcomeUnsafeRedirect), nil
	}

	verdict, err := e.bans.Evaluate(ctx, ip, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBanStoreUnavailable, err)
	}
	if verdict == ipban.Blocked {
		e.metricInc(MetricBanHit)
		e.metricInc(MetricLoginForbidden)
		log.Warn("login from banned address refused")
		return e.result(OutcomeForbidden), nil
	}

	user, found, err := e.resolveIdentity(ctx, req.Handle)
	if err != nil {
		return nil, err
	}
	if !found {
		e.passwords.VerifyDummy(req.Password)
		e.metricInc(MetricLoginFailure)
		log.Debug("login for unknown handle")
		return e.result(OutcomeInvalidCredentials), nil
	}

	if reason := e.accountRejection(user, ip, now); reason != "" {
		e.passwords.VerifyDummy(req.Password)
		return e.rejectLogin(ctx, log, user, ip, now, reason)
	}

	match, err := e.passwords.Verify(req.Password, user.PasswordHash)
	if errors.Is(err, password.ErrPasswordTooLong) {
		match, err = false, nil
	}
	if err != nil {
		log.Warn("stored password hash unusable", zap.String("user_id", user.UserID), zap.Error(err))
		return e.rejectLogin(ctx, log, user, ip, now, "password_hash_invalid")
	}
	if !match {
		return e.rejectLogin(ctx, log, user, ip, now, "password_mismatch")
	}
	e.upgradePasswordHash(ctx, log, user, req.Password)

	if user.TOTPEnabled() {
		token, _, err := e.pending.CreatePending(user.UserID, now)
		if err != nil {
			return nil, err
		}
		if err := e.emitAudit(ctx, AuditTOTPLoginPendingVerification, user.UserID, ip, now, nil); err != nil {
			return nil, err
		}
		e.metricInc(MetricTOTPRequired)
		log.Info("second factor required", zap.String("user_id", user.UserID))
		return &LoginResult{Outcome: OutcomeTOTPRequired, PendingToken: token}, nil
	}

	if err := e.completeLogin(ctx, log, req.Session, user, AuditLogin, ip, now); err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	return &LoginResult{Outcome: OutcomeSuccess, Redirect: redirect, UserID: user.UserID}, nil
}

// rejectLogin records failed_login against a resolved account and reports
// InvalidCredentials.
func (e *Engine) rejectLogin(ctx context.Context, log *zap.Logger, user UserRecord, ip string, now time.Time, reason string) (*LoginResult, error) {
	e.metricInc(MetricLoginFailure)
	log.Info("login rejected", zap.String("user_id", user.UserID), zap.String("reason", reason))

	if err := e.emitAudit(ctx, AuditFailedLogin, user.UserID, ip, now, map[string]string{"reason": reason}); err != nil {
		return nil, err
	}
	return e.result(OutcomeInvalidCredentials), nil
}

// completeLogin establishes the session with its audit record, then stores
// the last-login timestamp and IP. A failed last-login update is logged and
// does not undo the login: the session and audit record are already final.
func (e *Engine) completeLogin(ctx context.Context, log *zap.Logger, sess Session, user UserRecord, kind AuditKind, ip string, now time.Time) error {
	if err := e.establishAudited(ctx, sess, user.UserID, kind, ip, now); err != nil {
		return err
	}

	if err := e.userProvider.RecordLogin(ctx, user.UserID, ip, now); err != nil {
		log.Warn("last-login update failed", zap.String("user_id", user.UserID), zap.Error(err))
	}
	log.Info("login succeeded", zap.String("user_id", user.UserID), zap.String("kind", string(kind)))
	return nil
}

// upgradePasswordHash stores a fresh Argon2id hash when the provider accepts
// one and the stored hash is outdated.
func (e *Engine) upgradePasswordHash(ctx context.Context, log *zap.Logger, user UserRecord, plain string) {
	rehasher, ok := e.userProvider.(PasswordRehasher)
	if !ok {
		return
	}
	outdated, err := e.passwords.NeedsUpgrade(user.PasswordHash)
	if err != nil || !outdated {
		return
	}
	hash, err := e.passwords.Hash(plain)
	if err != nil {
		log.Warn("password rehash failed", zap.String("user_id", user.UserID), zap.Error(err))
		return
	}
	if err := rehasher.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		log.Warn("password hash update failed", zap.String("user_id", user.UserID), zap.Error(err))
		return
	}
	log.Info("password hash upgraded", zap.String("user_id", user.UserID))
}
