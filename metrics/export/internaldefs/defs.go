package internaldefs

import (
	"github.com/MrEthical07/loginguard"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   loginguard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   loginguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in rendering order.
var CounterDefs = []CounterDef{
	{ID: loginguard.MetricLoginSuccess, Name: "loginguard_login_success_total", Help: "Logins that established a session."},
	{ID: loginguard.MetricLoginFailure, Name: "loginguard_login_failure_total", Help: "Logins rejected as invalid credentials."},
	{ID: loginguard.MetricLoginRateLimited, Name: "loginguard_login_rate_limited_total", Help: "Logins refused by the per-IP rate limiter."},
	{ID: loginguard.MetricLoginForbidden, Name: "loginguard_login_forbidden_total", Help: "Logins refused by a full IP ban."},
	{ID: loginguard.MetricUnsafeRedirect, Name: "loginguard_unsafe_redirect_total", Help: "Requests refused for an unsafe redirect target."},
	{ID: loginguard.MetricTOTPRequired, Name: "loginguard_totp_required_total", Help: "Pending tokens issued for a second factor."},
	{ID: loginguard.MetricTOTPSuccess, Name: "loginguard_totp_success_total", Help: "Second-factor verifications that established a session."},
	{ID: loginguard.MetricTOTPFailure, Name: "loginguard_totp_failure_total", Help: "Second-factor verifications rejected against a live token."},
	{ID: loginguard.MetricPendingTokenInvalid, Name: "loginguard_pending_token_invalid_total", Help: "Verify attempts with an unusable or reused pending token."},
	{ID: loginguard.MetricLogout, Name: "loginguard_logout_total", Help: "Logouts of an authenticated session."},
	{ID: loginguard.MetricBanHit, Name: "loginguard_ban_hit_total", Help: "Hits recorded against full IP bans."},
	{ID: loginguard.MetricAuditFailure, Name: "loginguard_audit_failure_total", Help: "Audit appends that failed."},
	{ID: loginguard.MetricSessionRollback, Name: "loginguard_session_rollback_total", Help: "Session changes undone after an audit failure."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: loginguard.MetricLoginLatency, Name: "loginguard_login_latency_seconds", Help: "Login transition latency."},
}

// HistogramBounds are the upper bounds of the engine latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing entries.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
