package loginguard

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/loginguard/internal/audit"
	"github.com/MrEthical07/loginguard/internal/ipban"
	"github.com/redis/go-redis/v9"
)

// PrivilegeTier ranks accounts for the trust check applied at login.
type PrivilegeTier uint8

const (
	// TierUser is an exported constant or variable used by the authentication engine.
	TierUser PrivilegeTier = iota
	// TierStaff is an exported constant or variable used by the authentication engine.
	TierStaff
	// TierAdmin is an exported constant or variable used by the authentication engine.
	TierAdmin
)

// UserRecord is the account view the engine needs. Email is stored in the
// form produced by [NormalizeEmail]; Username is matched case-insensitively.
// An empty TOTPSecret means second-factor is not enabled.
type UserRecord struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Deleted      bool
	TOTPSecret   string
	LastLoginAt  time.Time
	LastLoginIP  string
	Tier         PrivilegeTier
}

// TOTPEnabled reports whether the account requires a second factor.
func (u UserRecord) TOTPEnabled() bool {
	return u.TOTPSecret != ""
}

// UserProvider is the account store. Lookups return ErrUserNotFound when no
// account matches; any other error is treated as an infrastructure fault.
type UserProvider interface {
	// FindByUsername receives the lowercased username.
	FindByUsername(ctx context.Context, username string) (UserRecord, error)
	// FindByEmail receives the output of NormalizeEmail.
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	// RecordLogin stores the last-login timestamp and source IP.
	RecordLogin(ctx context.Context, userID, ip string, at time.Time) error
}

// PasswordRehasher is optionally implemented by a UserProvider. After a
// correct password whose stored hash is bcrypt or below the configured Argon2id
// cost, Login passes a fresh hash to UpdatePasswordHash. A failure is logged
// and does not affect the login.
type PasswordRehasher interface {
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// Session is the server-side session of one client. Establish replaces any
// identity the session held in a single step; UserID returns "" for an
// anonymous session.
type Session interface {
	UserID(ctx context.Context) (string, error)
	Establish(ctx context.Context, userID string) error
	Clear(ctx context.Context) error
}

// Outcome classifies the result of a login or verify transition.
type Outcome uint8

const (
	// OutcomeSuccess means a session was established.
	OutcomeSuccess Outcome = iota + 1
	// OutcomeTOTPRequired means the password matched and a pending token was issued.
	OutcomeTOTPRequired
	// OutcomeInvalidCredentials covers unknown handles, wrong passwords, and rejected accounts.
	OutcomeInvalidCredentials
	// OutcomeForbidden means the source IP carries a full ban.
	OutcomeForbidden
	// OutcomeRateLimited means the source IP exhausted its attempt window.
	OutcomeRateLimited
	// OutcomeUnsafeRedirect means the redirect target was refused.
	OutcomeUnsafeRedirect
	// OutcomeInvalidCode covers wrong codes and unusable pending tokens alike.
	OutcomeInvalidCode
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTOTPRequired:
		return "totp_required"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeUnsafeRedirect:
		return "unsafe_redirect"
	case OutcomeInvalidCode:
		return "invalid_code"
	default:
		return "unknown"
	}
}

// LoginRequest is the first-factor input. An empty IP falls back to the value
// attached with [WithClientIP].
type LoginRequest struct {
	Handle   string
	Password string
	IP       string
	Redirect string
	Session  Session
}

// VerifyRequest is the second-factor input.
type VerifyRequest struct {
	Token    string
	Code     string
	IP       string
	Redirect string
	Session  Session
}

// LoginResult is returned by [Engine.Login] and [Engine.VerifyTOTP].
// Redirect is set for OutcomeSuccess; PendingToken for OutcomeTOTPRequired.
type LoginResult struct {
	Outcome      Outcome
	Redirect     string
	PendingToken string
	UserID       string
}

// TOTPProvision is a freshly generated TOTP secret and its otpauth:// URI.
type TOTPProvision struct {
	Secret string
	URI    string
}

// AuditEvent is one append-only audit record.
type AuditEvent = internalaudit.Event

// AuditKind enumerates audit event kinds.
type AuditKind = internalaudit.Kind

const (
	// AuditLogin is an exported constant or variable used by the authentication engine.
	AuditLogin = internalaudit.KindLogin
	// AuditFailedLogin is an exported constant or variable used by the authentication engine.
	AuditFailedLogin = internalaudit.KindFailedLogin
	// AuditLogout is an exported constant or variable used by the authentication engine.
	AuditLogout = internalaudit.KindLogout
	// AuditTOTPLogin is an exported constant or variable used by the authentication engine.
	AuditTOTPLogin = internalaudit.KindTOTPLogin
	// AuditTOTPLoginPendingVerification is an exported constant or variable used by the authentication engine.
	AuditTOTPLoginPendingVerification = internalaudit.KindTOTPLoginPendingVerification
	// AuditTOTPFailedLogin is an exported constant or variable used by the authentication engine.
	AuditTOTPFailedLogin = internalaudit.KindTOTPFailedLogin
)

// AuditLog receives audit events. Append must either persist the event or
// return an error.
type AuditLog = internalaudit.Sink

// MemoryAuditLog keeps events in memory.
type MemoryAuditLog = internalaudit.MemorySink

// JSONWriterAuditLog writes one JSON object per event to an [io.Writer].
type JSONWriterAuditLog = internalaudit.JSONWriterSink

// RedisStreamAuditLog appends events to a Redis stream.
type RedisStreamAuditLog = internalaudit.RedisStreamSink

// MultiAuditLog appends to several logs in order; an event counts as recorded
// only when every log accepted it.
type MultiAuditLog = internalaudit.MultiSink

func NewMultiAuditLog(logs ...AuditLog) *MultiAuditLog {
	return internalaudit.NewMultiSink(logs...)
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return internalaudit.NewMemorySink()
}

func NewJSONWriterAuditLog(w io.Writer) *JSONWriterAuditLog {
	return internalaudit.NewJSONWriterSink(w)
}

// NewRedisStreamAuditLog appends to stream ("lga:events" when empty),
// trimming approximately to maxLen entries when maxLen > 0.
func NewRedisStreamAuditLog(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamAuditLog {
	return internalaudit.NewRedisStreamSink(client, stream, maxLen)
}

// IPBan is a ban record.
type IPBan = ipban.Ban

// BanCategory is the ban severity.
type BanCategory = ipban.Category

const (
	// BanFull blocks every login from the address.
	BanFull = ipban.Full
	// BanPartial is recorded but never blocks.
	BanPartial = ipban.Partial
)

// BanStore is the ban persistence contract.
type BanStore = ipban.Store

// MemoryBanStore is a process-local BanStore.
type MemoryBanStore = ipban.MemoryStore

// RedisBanStore keeps bans and hit counters in Redis.
type RedisBanStore = ipban.RedisStore

func NewMemoryBanStore() *MemoryBanStore {
	return ipban.NewMemoryStore()
}

func NewRedisBanStore(client redis.UniversalClient, prefix string) *RedisBanStore {
	return ipban.NewRedisStore(client, prefix)
}
