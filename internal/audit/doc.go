// Package audit defines the append-only authentication event log.
//
// # Design
//
// Sinks are synchronous and report failure. The engine pairs every session
// change with an audit append and rolls the session change back when the
// append fails, so sinks must not buffer or drop events silently.
//
// Implementations:
//   - [MemorySink]: in-process slice, for tests and embedded use.
//   - [JSONWriterSink]: one JSON object per line to an io.Writer.
//   - [RedisStreamSink]: XADD onto a Redis stream.
//
// # What this package must NOT do
//
//   - Import loginguard or any sibling package.
//   - Record passwords, codes, or pending tokens.
package audit
