// Package prometheus renders loginguard engine metrics in Prometheus text
// exposition format.
//
// Counters are named loginguard_*_total. The login latency histogram,
// loginguard_login_latency_seconds, is emitted only when the engine collects
// latency.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
