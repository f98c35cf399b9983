// Package session provides the session stores that loginguard writes the
// authenticated identity into.
//
// # Binary encoding
//
// Redis records use a compact versioned binary format. The encoder is
// append-only: new versions add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns persistence only. A [Handle] binds one session ID to a
// [Store] and satisfies the engine's session contract; [Memory] does the same
// in process.
//
// # What this package must NOT do
//
//   - Import loginguard or jwt (no upward imports).
//   - Decide whether a login is allowed.
//   - Store secrets in [Record] fields.
package session
