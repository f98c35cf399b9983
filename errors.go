package loginguard

import "errors"

var (
	// ErrUserNotFound is returned by a UserProvider when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrAuditUnavailable is returned when an audit record could not be appended. The
	// session change it accompanied has been rolled back.
	ErrAuditUnavailable = errors.New("audit log unavailable")
	// ErrSessionUnavailable is returned when the session store failed.
	ErrSessionUnavailable = errors.New("session store unavailable")
	// ErrUserProviderUnavailable wraps UserProvider failures other than ErrUserNotFound.
	ErrUserProviderUnavailable = errors.New("user provider unavailable")
	// ErrBanStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrBanStoreUnavailable = errors.New("ban store unavailable")
	// ErrRateLimiterUnavailable is an exported constant or variable used by the authentication engine.
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")
	// ErrPendingLedgerUnavailable is returned when single-use tracking could not be recorded.
	ErrPendingLedgerUnavailable = errors.New("pending token ledger unavailable")
	// ErrNilSession is returned when a request carries no session.
	ErrNilSession = errors.New("session required")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrTOTPUnavailable is returned when a TOTP secret cannot be generated.
	ErrTOTPUnavailable = errors.New("totp unavailable")
	// ErrUnsafeRedirect is returned by ValidateRedirect.
	ErrUnsafeRedirect = errors.New("unsafe redirect target")
	// ErrInvalidHandle is returned by ProvisionTOTP for an empty account name.
	ErrInvalidHandle = errors.New("invalid handle")
)
