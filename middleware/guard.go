package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// StateSource supplies the current session snapshot. *goAuthClient.Engine
// implements it.
type StateSource interface {
	State() goAuthClient.State
}

// Options tunes a guard. The zero value redirects to "/login" and asks
// clients to retry after one second.
type Options struct {
	// LoginRoute receives unauthenticated requests.
	LoginRoute string
	// RetryAfter is advertised while the session is loading.
	RetryAfter time.Duration
	// FromParam names the query parameter carrying the original URI.
	// Defaults to "from".
	FromParam string
}

func (o Options) withDefaults() Options {
	if o.LoginRoute == "" {
		o.LoginRoute = "/login"
	}
	if o.RetryAfter <= 0 {
		o.RetryAfter = time.Second
	}
	if o.FromParam == "" {
		o.FromParam = "from"
	}
	return o
}

// StateFromContext returns the snapshot a guard attached to ctx.
func StateFromContext(ctx context.Context) (goAuthClient.State, bool) {
	return goAuthClient.StateFromContext(ctx)
}

// RequireAuth admits requests only while source holds a session.
func RequireAuth(source StateSource, opts Options) func(http.Handler) http.Handler {
	return guard(source, "", opts)
}

// RequireRole admits requests only while source holds a session whose user
// has role.
func RequireRole(source StateSource, role goAuthClient.Role, opts Options) func(http.Handler) http.Handler {
	return guard(source, role, opts)
}

func guard(source StateSource, role goAuthClient.Role, opts Options) func(http.Handler) http.Handler {
	opts = opts.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// A held session is served even while a refresh is in flight.
			state := source.State()
			if !state.IsAuthenticated {
				if state.Loading || state.Status == goAuthClient.StatusUninitialized {
					retryLater(w, opts.RetryAfter)
					return
				}
				http.Redirect(w, r, loginURL(opts, r), http.StatusSeeOther)
				return
			}
			if role != "" && !state.HasRole(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := goAuthClient.WithState(r.Context(), state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func retryLater(w http.ResponseWriter, after time.Duration) {
	secs := int(after.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	http.Error(w, "session loading", http.StatusServiceUnavailable)
}

func loginURL(opts Options, r *http.Request) string {
	u, err := url.Parse(opts.LoginRoute)
	if err != nil {
		return opts.LoginRoute
	}
	q := u.Query()
	q.Set(opts.FromParam, r.URL.RequestURI())
	u.RawQuery = q.Encode()
	return u.String()
}
