// Package middleware guards HTTP handlers with the session state of a
// goAuthClient.Engine.
//
// # Guards
//
//   - [RequireAuth] lets a request through only while a session is held.
//   - [RequireRole] additionally requires the session user to carry a role.
//
// Each guard reads one snapshot from its [StateSource] and injects it into
// the request context, where [StateFromContext] reads it back.
//
// # Responses
//
//   - 503 with Retry-After while the session is still being restored or an
//     operation is in flight.
//   - 303 to the login route, with the original request URI in the "from"
//     query parameter, when no session is held.
//   - 403 when the role does not match.
//
// # What this package must NOT do
//
//   - Call the auth service or mutate the session.
//   - Decode tokens.
package middleware
