package pipeline

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries a per-request identifier for server-side correlation.
const HeaderRequestID = "X-Request-ID"

// TokenSource yields the stored access token.
type TokenSource interface {
	Token() (string, bool)
}

// ExpiryChecker reports whether a token is expired or undecodable.
type ExpiryChecker interface {
	IsExpired(token string) bool
}

// AttachBearer sets the Authorization header when tokens holds a token that
// checker does not consider expired. An expired or malformed token is left
// in place for the Engine to reconcile; the request is sent without it.
// It reports whether a bearer was attached.
func AttachBearer(req *http.Request, tokens TokenSource, checker ExpiryChecker) bool {
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if tokens == nil || checker == nil {
		return false
	}
	token, ok := tokens.Token()
	if !ok || token == "" || checker.IsExpired(token) {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return true
}

type bearerKey struct{}

// WithToken makes requests sent with the returned context carry token
// instead of the stored one. The expiry check still applies.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

type fixedToken string

func (t fixedToken) Token() (string, bool) { return string(t), t != "" }

func tokenSourceFor(ctx context.Context, fallback TokenSource) TokenSource {
	if token, ok := ctx.Value(bearerKey{}).(string); ok {
		return fixedToken(token)
	}
	return fallback
}
