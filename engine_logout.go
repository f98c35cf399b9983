package loginguard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Logout clears sess. A logout event is recorded only when the session held
// a user; clearing an anonymous session is a no-op that never errors. If the
// audit append fails the identity is restored and the error returned.
func (e *Engine) Logout(ctx context.Context, sess Session) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if sess == nil {
		return ErrNilSession
	}

	now := e.now()
	ip := clientIPFromContext(ctx)

	userID, err := sess.UserID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if err := sess.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if userID == "" {
		return nil
	}

	if err := e.emitAudit(ctx, AuditLogout, userID, ip, now, nil); err != nil {
		return errors.Join(err, e.restoreSession(ctx, sess, userID))
	}

	e.metricInc(MetricLogout)
	e.logger.Info("logout", zap.String("user_id", userID), zap.String("ip", ip))
	return nil
}
