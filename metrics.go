package loginguard

import (
	internalmetrics "github.com/MrEthical07/loginguard/internal/metrics"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess counts logins that established a session without a second factor.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts InvalidCredentials outcomes.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the authentication engine.
	MetricLoginRateLimited = internalmetrics.MetricLoginRateLimited
	// MetricLoginForbidden counts logins refused by a full IP ban.
	MetricLoginForbidden = internalmetrics.MetricLoginForbidden
	// MetricUnsafeRedirect is an exported constant or variable used by the authentication engine.
	MetricUnsafeRedirect = internalmetrics.MetricUnsafeRedirect
	// MetricTOTPRequired counts pending tokens issued.
	MetricTOTPRequired = internalmetrics.MetricTOTPRequired
	// MetricTOTPSuccess is an exported constant or variable used by the authentication engine.
	MetricTOTPSuccess = internalmetrics.MetricTOTPSuccess
	// MetricTOTPFailure is an exported constant or variable used by the authentication engine.
	MetricTOTPFailure = internalmetrics.MetricTOTPFailure
	// MetricPendingTokenInvalid counts verify attempts with an unusable or reused token.
	MetricPendingTokenInvalid = internalmetrics.MetricPendingTokenInvalid
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout = internalmetrics.MetricLogout
	// MetricBanHit is an exported constant or variable used by the authentication engine.
	MetricBanHit = internalmetrics.MetricBanHit
	// MetricAuditFailure counts audit appends that failed.
	MetricAuditFailure = internalmetrics.MetricAuditFailure
	// MetricSessionRollback counts session changes undone after an audit failure.
	MetricSessionRollback = internalmetrics.MetricSessionRollback
	// MetricLoginLatency is the login latency histogram.
	MetricLoginLatency = internalmetrics.MetricLoginLatency
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
