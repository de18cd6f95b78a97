package jwt

import (
	"errors"
	"fmt"
)

// ErrMalformedToken matches every *MalformedTokenError through errors.Is.
var ErrMalformedToken = errors.New("malformed token")

// MalformedTokenError reports why a token could not be decoded.
type MalformedTokenError struct {
	Reason string
	Err    error
}

func (e *MalformedTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jwt: malformed token: %s: %v", e.Reason, e.Err)
	}
	return "jwt: malformed token: " + e.Reason
}

func (e *MalformedTokenError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedToken.
func (e *MalformedTokenError) Is(target error) bool {
	return target == ErrMalformedToken
}

func malformed(reason string, err error) error {
	return &MalformedTokenError{Reason: reason, Err: err}
}
