// Package audit relays session events (initialize, login, logout, refresh,
// forced expiry) to a caller-supplied sink without blocking the Engine.
//
// # Components
//
//   - [Sink]: event consumer (no-op, channel, JSON lines, slog).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: one session transition with user, outcome, and metadata.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine owns that.
//   - Carry token values in events.
//   - Import goAuthClient or any sibling package.
package audit
