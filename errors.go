package goAuthClient

import (
	"errors"
	"strings"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/pipeline"
)

var (
	// ErrMalformedToken is reported for tokens whose claims cannot be decoded.
	ErrMalformedToken = jwt.ErrMalformedToken
	// ErrSessionExpired is a 401 from the auth service; the session was cleared.
	ErrSessionExpired = pipeline.ErrSessionExpired
	// ErrRejected is an explicit success:false answer from the auth service.
	ErrRejected = pipeline.ErrRejected
	// ErrForbidden is a 403.
	ErrForbidden = pipeline.ErrForbidden
	// ErrNotFound is a 404.
	ErrNotFound = pipeline.ErrNotFound
	// ErrServer is a 5xx.
	ErrServer = pipeline.ErrServer
	// ErrTransport is a request that got no response, including timeouts.
	ErrTransport = pipeline.ErrTransport

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotAuthenticated is returned by calls that need a session when none is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrIncompleteResponse is an auth response missing its token or user.
	ErrIncompleteResponse = errors.New("auth response missing token or user")
	// ErrEngineClosed is returned by operations on a closed Engine.
	ErrEngineClosed = errors.New("engine closed")
)

// FieldError is one failed client-side check.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects failed client-side checks. It is produced before
// any network call.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Message
	}
	return strings.Join(parts, "; ")
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
