package loginguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/loginguard/internal/pending"
	"go.uber.org/zap"
)

// VerifyTOTP runs the second-factor transition for a pending token issued by
// Login.
//
// A malformed, expired, foreign, or already-presented token and a wrong code
// all yield OutcomeInvalidCode. Only a wrong code against a live token is
// audited as totp_failed_login. With PendingToken.SingleUse set, a token is
// spent by the first attempt that loads its account, successful or not. A
// user lookup failure leaves the token unspent.
func (e *Engine) VerifyTOTP(ctx context.Context, req VerifyRequest) (*LoginResult, error) {
	if e == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	if req.Session == nil {
		return nil, ErrNilSession
	}

	now := e.now()
	ip := resolveIP(ctx, req.IP)
	log := e.logger.With(zap.String("ip", ip))

	redirect, ok := e.redirectTarget(req.Redirect)
	if !ok {
		e.metricInc(MetricUnsafeRedirect)
		log.Warn("unsafe redirect refused", zap.String("redirect", req.Redirect))
		return e.result(OutcomeUnsafeRedirect), nil
	}

	claims, err := e.pending.ParsePending(req.Token)
	if err != nil {
		e.metricInc(MetricPendingTokenInvalid)
		log.Info("pending token rejected", zap.Error(err))
		return e.result(OutcomeInvalidCode), nil
	}

	user, err := e.userProvider.GetUserByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricPendingTokenInvalid)
			log.Info("pending token subject no longer exists", zap.String("user_id", claims.UserID()))
			return e.result(OutcomeInvalidCode), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUserProviderUnavailable, err)
	}

	// The parser accepts the token until exp plus leeway; the ledger entry
	// must outlive that.
	acceptedUntil := claims.ExpiresAt.Time.Add(e.config.PendingToken.Leeway)
	if err := e.ledger.Consume(ctx, claims.ID, acceptedUntil, now); err != nil {
		if errors.Is(err, pending.ErrAlreadyConsumed) {
			e.metricInc(MetricPendingTokenInvalid)
			log.Warn("pending token replayed", zap.String("user_id", claims.UserID()))
			return e.result(OutcomeInvalidCode), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPendingLedgerUnavailable, err)
	}

	switch {
	case user.Deleted:
		return e.rejectVerify(ctx, log, user, ip, now, "account_deleted")
	case !user.Active:
		return e.rejectVerify(ctx, log, user, ip, now, "account_inactive")
	case !user.TOTPEnabled():
		return e.rejectVerify(ctx, log, user, ip, now, "totp_not_enabled")
	}

	valid, err := e.totp.VerifyCode(user.TOTPSecret, req.Code, now)
	if err != nil {
		log.Error("stored totp secret unusable", zap.String("user_id", user.UserID), zap.Error(err))
		return e.rejectVerify(ctx, log, user, ip, now, "totp_secret_invalid")
	}
	if !valid {
		return e.rejectVerify(ctx, log, user, ip, now, "code_mismatch")
	}

	if err := e.completeLogin(ctx, log, req.Session, user, AuditTOTPLogin, ip, now); err != nil {
		return nil, err
	}
	e.metricInc(MetricTOTPSuccess)
	return &LoginResult{Outcome: OutcomeSuccess, Redirect: redirect, UserID: user.UserID}, nil
}

func (e *Engine) rejectVerify(ctx context.Context, log *zap.Logger, user UserRecord, ip string, now time.Time, reason string) (*LoginResult, error) {
	e.metricInc(MetricTOTPFailure)
	log.Info("second factor rejected", zap.String("user_id", user.UserID), zap.String("reason", reason))

	if err := e.emitAudit(ctx, AuditTOTPFailedLogin, user.UserID, ip, now, map[string]string{"reason": reason}); err != nil {
		return nil, err
	}
	return e.result(OutcomeInvalidCode), nil
}
