// Package loginguard is the authentication decision engine for interactive
// web logins: password verification with identity normalization, IP ban
// enforcement, per-IP rate limiting, and TOTP second-factor verification.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// loginguard is the public surface. It exposes [Engine], [Builder], [Config], and value
// types ([LoginResult], [UserRecord], MetricsSnapshot). Rate limiting, ban lookup, audit
// sinks, and the pending-token ledger live under internal/ and are never exported
// except through type aliases.
//
// Every expected rejection (bad credentials, banned IP, rate limit, bad code, unsafe
// redirect) is reported as an [Outcome], never as an error. Errors are reserved for
// infrastructure faults, and a faulted call leaves no session change without its
// audit record.
//
// # What this package must NOT do
//
//   - Render responses, route requests, or register accounts.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports loginguard (no import cycles).
package loginguard
