package loginguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// emitAudit appends one event. A failed append is returned wrapped in
// ErrAuditUnavailable; the caller decides what to undo.
func (e *Engine) emitAudit(ctx context.Context, kind AuditKind, userID, ip string, now time.Time, metadata map[string]string) error {
	event := AuditEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		IP:        ip,
		Timestamp: now.UTC(),
		Metadata:  metadata,
	}

	if err := e.audit.Append(ctx, event); err != nil {
		e.auditFailures.Add(1)
		e.metricInc(MetricAuditFailure)
		e.logger.Error("audit append failed",
			zap.String("kind", string(kind)),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}
	return nil
}

// establishAudited writes userID into sess and records kind. If the audit
// append fails the session is put back to what it held before.
func (e *Engine) establishAudited(ctx context.Context, sess Session, userID string, kind AuditKind, ip string, now time.Time) error {
	previous, err := sess.UserID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if err := sess.Establish(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	if err := e.emitAudit(ctx, kind, userID, ip, now, nil); err != nil {
		return errors.Join(err, e.restoreSession(ctx, sess, previous))
	}
	return nil
}

// restoreSession puts sess back to previous ("" means anonymous).
func (e *Engine) restoreSession(ctx context.Context, sess Session, previous string) error {
	e.metricInc(MetricSessionRollback)

	var err error
	if previous == "" {
		err = sess.Clear(ctx)
	} else {
		err = sess.Establish(ctx, previous)
	}
	if err != nil {
		e.logger.Error("session rollback failed", zap.String("restore_user_id", previous), zap.Error(err))
		return fmt.Errorf("%w: rollback: %v", ErrSessionUnavailable, err)
	}
	return nil
}
