// Package internal holds the building blocks private to loginguard.
//
// # Sub-packages
//
//   - audit: synchronous audit sinks (memory, JSON writer, Redis stream, fan-out)
//   - ipban: IP ban records, hit counting, and the Evaluate registry
//   - metrics: lock-free counters and latency histograms
//   - pending: single-use ledger for pending second-factor tokens
//   - rate: fixed-window per-IP login limiter (memory and Redis Lua)
//
// # What this package must NOT do
//
//   - Export types that appear in the public loginguard API except through
//     the aliases declared in the root package.
//   - Be imported by any package outside the loginguard module.
package internal
