package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies the result of one request.
type Kind uint8

const (
	// KindOK is a successful response whose payload was unwrapped.
	KindOK Kind = iota
	// KindRejected is an explicit application-level rejection: a success:false
	// envelope or a legacy envelope with a non-200 code.
	KindRejected
	// KindSessionExpired is a 401. Credentials are cleared.
	KindSessionExpired
	// KindForbidden is a 403.
	KindForbidden
	// KindNotFound is a 404.
	KindNotFound
	// KindServer is a 5xx.
	KindServer
	// KindStatus is any other non-2xx status.
	KindStatus
	// KindTransport is a request that got no response, including timeouts.
	KindTransport
	// KindCanceled is a request abandoned by its caller.
	KindCanceled
	// KindInvalidRequest is a request that could not be built or encoded.
	KindInvalidRequest
	// KindInvalidResponse is a success response whose payload could not be decoded.
	KindInvalidResponse
)

var kindNames = [...]string{
	KindOK:              "ok",
	KindRejected:        "rejected",
	KindSessionExpired:  "session_expired",
	KindForbidden:       "forbidden",
	KindNotFound:        "not_found",
	KindServer:          "server_error",
	KindStatus:          "http_status",
	KindTransport:       "transport",
	KindCanceled:        "canceled",
	KindInvalidRequest:  "invalid_request",
	KindInvalidResponse: "invalid_response",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Kinds lists every Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

var (
	// ErrRejected matches failures of KindRejected.
	ErrRejected = errors.New("request rejected")
	// ErrSessionExpired matches failures of KindSessionExpired.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden matches failures of KindForbidden.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches failures of KindNotFound.
	ErrNotFound = errors.New("resource not found")
	// ErrServer matches failures of KindServer.
	ErrServer = errors.New("server error")
	// ErrStatus matches failures of KindStatus.
	ErrStatus = errors.New("unexpected status")
	// ErrTransport matches failures of KindTransport.
	ErrTransport = errors.New("transport failure")
	// ErrCanceled matches failures of KindCanceled.
	ErrCanceled = errors.New("request canceled")
	// ErrInvalidRequest matches failures of KindInvalidRequest.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidResponse matches failures of KindInvalidResponse.
	ErrInvalidResponse = errors.New("invalid response")
)

func (k Kind) sentinel() error {
	switch k {
	case KindRejected:
		return ErrRejected
	case KindSessionExpired:
		return ErrSessionExpired
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindServer:
		return ErrServer
	case KindStatus:
		return ErrStatus
	case KindTransport:
		return ErrTransport
	case KindCanceled:
		return ErrCanceled
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindInvalidResponse:
		return ErrInvalidResponse
	default:
		return nil
	}
}

// Error is the error returned by Client.Do for every non-OK outcome.
type Error struct {
	Kind        Kind
	Status      int
	Message     string
	RedirectURL string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return "pipeline: " + msg + ": " + e.Err.Error()
	}
	return "pipeline: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// IsAuthRejection reports whether err is an explicit rejection of the
// caller's credentials: a 401 or an envelope with success:false.
func IsAuthRejection(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrRejected)
}

// KindOf returns the Kind carried by err, or KindOK for nil and KindTransport
// for errors that did not come from a Client.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}
