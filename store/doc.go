// Package store persists the client credential set: the access token, the
// refresh token, and the cached user profile.
//
// # Architecture boundaries
//
// This package owns the [Store] and its [Backend] implementations (memory,
// Redis, SQLite). It does NOT decode tokens, decide whether a token is
// expired, or talk to the remote auth service. Those decisions belong to the
// jwt inspector and the Engine.
//
// # Failure model
//
// Store operations never return backend errors. A failing backend is logged
// and the Store keeps serving from its in-process mirror, so a session
// degrades to non-persistent instead of failing.
//
// # What this package must NOT do
//
//   - Import goAuthClient, jwt, or pipeline (no upward imports).
//   - Validate or interpret stored values.
//   - Log token values.
package store
