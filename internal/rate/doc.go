// Package rate provides the per-IP login attempt limiter used by the engine.
//
// # Window semantics
//
// Fixed windows anchored to the first attempt: the window opens on the first
// attempt from an IP and closes Window later, after which the counter starts
// over. Once MaxAttempts attempts have been admitted, further attempts are
// refused and are not counted.
//
// Two backends share the [Limiter] contract:
//   - [RedisLimiter]: Lua compare-then-INCR with PEXPIRE on the first hit.
//     Key prefix "lgr:" by default.
//   - [MemoryLimiter]: mutex-guarded map of per-IP windows, for single
//     process deployments and tests.
//
// # What this package must NOT do
//
//   - Know about identities. Keys are IP addresses only.
//   - Be imported outside the loginguard module.
package rate
