package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// User-facing messages shown when the server does not supply its own.
const (
	MsgSessionExpired = "Session expired, please log in again"
	MsgForbidden      = "You do not have permission to perform this action"
	MsgNotFound       = "The requested resource was not found"
	MsgServer         = "Internal server error, please try again later"
	MsgTransport      = "Network error, please check your connection"
	MsgRejected       = "Request failed"
	MsgInvalidRequest = "Request configuration error"
	MsgInvalidReply   = "Unexpected response from server"
)

// Envelope is the JSON wrapper the auth service puts around every payload.
// Legacy endpoints answer with Code/Msg instead of Success/Message.
type Envelope struct {
	Success     *bool           `json:"success,omitempty"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Code        *int            `json:"code,omitempty"`
	Msg         string          `json:"msg,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
}

func (e Envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// Outcome is the classified result of one request.
type Outcome struct {
	Kind        Kind
	Status      int
	Data        json.RawMessage
	Message     string
	RedirectURL string
	Err         error
}

// OK reports whether the outcome carries a usable payload.
func (o Outcome) OK() bool { return o.Kind == KindOK }

// AsError converts a failed outcome to *Error. It returns nil for KindOK.
func (o Outcome) AsError() error {
	if o.Kind == KindOK {
		return nil
	}
	return &Error{
		Kind:        o.Kind,
		Status:      o.Status,
		Message:     o.Message,
		RedirectURL: o.RedirectURL,
		Err:         o.Err,
	}
}

// Classify maps a raw response to an Outcome. transportErr is the error
// returned by the HTTP client; when it is non-nil status and body are ignored.
// Classify has no side effects.
func Classify(status int, body []byte, transportErr error) Outcome {
	if transportErr != nil {
		if errors.Is(transportErr, context.Canceled) {
			return Outcome{Kind: KindCanceled, Err: transportErr}
		}
		return Outcome{Kind: KindTransport, Message: MsgTransport, Err: transportErr}
	}

	env, isEnvelope := decodeEnvelope(body)

	if status >= 200 && status < 300 {
		if !isEnvelope {
			return Outcome{Kind: KindOK, Status: status, Data: rawOrNil(body)}
		}
		if env.Success != nil {
			if *env.Success {
				return Outcome{Kind: KindOK, Status: status, Data: env.Data, Message: env.Message}
			}
			return Outcome{Kind: KindRejected, Status: status, Message: orDefault(env.message(), MsgRejected)}
		}
		if env.Code != nil {
			switch *env.Code {
			case http.StatusOK:
				return Outcome{Kind: KindOK, Status: status, Data: env.Data, Message: env.Msg}
			case http.StatusUnauthorized:
				return Outcome{Kind: KindSessionExpired, Status: status, Message: MsgSessionExpired, RedirectURL: env.RedirectURL}
			default:
				return Outcome{Kind: KindRejected, Status: status, Message: orDefault(env.message(), MsgRejected)}
			}
		}
		return Outcome{Kind: KindOK, Status: status, Data: rawOrNil(body)}
	}

	serverMsg := env.message()
	switch {
	case status == http.StatusUnauthorized:
		return Outcome{Kind: KindSessionExpired, Status: status, Message: MsgSessionExpired, RedirectURL: env.RedirectURL}
	case status == http.StatusForbidden:
		return Outcome{Kind: KindForbidden, Status: status, Message: orDefault(serverMsg, MsgForbidden)}
	case status == http.StatusNotFound:
		return Outcome{Kind: KindNotFound, Status: status, Message: orDefault(serverMsg, MsgNotFound)}
	case status >= 500:
		return Outcome{Kind: KindServer, Status: status, Message: orDefault(serverMsg, MsgServer)}
	default:
		return Outcome{Kind: KindStatus, Status: status, Message: orDefault(serverMsg, fmt.Sprintf("Request failed with status %d", status))}
	}
}

// decodeEnvelope reports whether body is a JSON object carrying either the
// success or the legacy code field.
func decodeEnvelope(body []byte) (Envelope, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, false
	}
	return env, env.Success != nil || env.Code != nil
}

func rawOrNil(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.RawMessage(body)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
