// Package envconfig overlays loginguard configuration from a dotenv file and
// the process environment.
//
// Keys use the LOGINGUARD_ prefix, for example LOGINGUARD_RATE_LIMIT_ENABLED
// or LOGINGUARD_PENDING_TTL. Environment variables win over the file, and the
// file wins over the base configuration passed to [Load]. Durations use Go
// syntax ("90s", "5m").
package envconfig
