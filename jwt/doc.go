// Package jwt decodes bearer-token claims without verifying signatures.
//
// The client never holds the signing key, so it cannot validate a token
// cryptographically. The inspector only reads the encoded claims (subject,
// username, role, iat, exp) to answer expiry questions locally before a
// request is sent.
//
// # Failure model
//
// Any token that cannot be decoded is reported as a [*MalformedTokenError]
// and every expiry predicate fails closed: a malformed token is expired,
// has zero remaining lifetime, and is never "near expiry".
package jwt
