package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds every request unless Config.Timeout is set.
	DefaultTimeout = 10 * time.Second
	// DefaultLoginRoute is where the user is sent after a 401 without redirectUrl.
	DefaultLoginRoute = "/login"

	defaultMaxResponseBytes = 4 << 20
	tracerName              = "github.com/MrEthical07/goAuthClient/pipeline"
)

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string
	// LoginRoute is the navigation target after a 401.
	LoginRoute string
	// Timeout bounds each request. A timeout is a transport failure.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls when positive.
	RequestsPerSecond float64
	// Burst is the limiter burst. Defaults to 1 when throttling is enabled.
	Burst int
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64
}

// Credentials is the credential store view the pipeline needs: read the
// token before a request, clear everything after a 401.
type Credentials interface {
	TokenSource
	ClearAll()
}

// Recorder receives the outcome and latency of every request.
type Recorder interface {
	RecordRequest(kind Kind, latency time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithNotifier sets the sink for user-visible failure messages.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithNavigator sets the target for post-401 navigation.
func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		if n != nil {
			c.navigator = n
		}
	}
}

// WithExpiryChecker replaces the token inspector used by the outbound stage.
func WithExpiryChecker(checker ExpiryChecker) Option {
	return func(c *Client) {
		if checker != nil {
			c.checker = checker
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider sets the provider for request spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// Client runs requests through the outbound and inbound stages. It is safe
// for concurrent use.
type Client struct {
	cfg       Config
	http      *http.Client
	creds     Credentials
	checker   ExpiryChecker
	notifier  Notifier
	navigator Navigator
	recorder  Recorder
	limiter   *rate.Limiter
	logger    *slog.Logger
	tracer    trace.Tracer

	hooksMu sync.RWMutex
	hooks   []func(redirect string)
}

// New builds a Client over creds.
func New(cfg Config, creds Credentials, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, errors.New("pipeline: credentials are required")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("pipeline: timeout must not be negative")
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, errors.New("pipeline: requests per second must not be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.LoginRoute) == "" {
		cfg.LoginRoute = DefaultLoginRoute
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:       cfg,
		http:      &http.Client{},
		creds:     creds,
		checker:   jwt.New(),
		navigator: noopNavigator{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "request_pipeline")
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: c.logger}
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// OnSessionExpired registers fn to run after a 401 has cleared credentials.
// redirect is the navigation target that was used.
func (c *Client) OnSessionExpired(fn func(redirect string)) {
	if fn == nil {
		return
	}
	c.hooksMu.Lock()
	c.hooks = append(c.hooks, fn)
	c.hooksMu.Unlock()
}

// Do sends a request and decodes the unwrapped payload into out when out is
// non-nil. body is JSON-encoded unless nil. Every failure is returned as
// *Error after its side effects have been applied.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "authclient "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	outcome := c.roundTrip(ctx, method, path, body)
	if outcome.Kind == KindOK && out != nil && len(outcome.Data) > 0 {
		if err := json.Unmarshal(outcome.Data, out); err != nil {
			outcome = Outcome{Kind: KindInvalidResponse, Status: outcome.Status, Message: MsgInvalidReply, Err: err}
		}
	}

	c.apply(outcome)

	elapsed := time.Since(start)
	if c.recorder != nil {
		c.recorder.RecordRequest(outcome.Kind, elapsed)
	}
	if outcome.Status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", outcome.Status))
	}
	span.SetAttributes(attribute.String("authclient.outcome", outcome.Kind.String()))

	err := outcome.AsError()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome.Kind.String())
		c.logger.Debug("request failed", "method", method, "path", path, "kind", outcome.Kind.String(), "status", outcome.Status, "elapsed", elapsed)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// NewRequest builds a request with the outbound stage applied.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	AttachBearer(req, tokenSourceFor(ctx, c.creds), c.checker)
	return req, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) Outcome {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Classify(0, nil, err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.NewRequest(reqCtx, method, path, body)
	if err != nil {
		return Outcome{Kind: KindInvalidRequest, Message: MsgInvalidRequest, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return Classify(0, nil, ctx.Err())
		}
		return Classify(0, nil, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return Classify(0, nil, ctx.Err())
		}
		return Classify(0, nil, fmt.Errorf("read response body: %w", err))
	}
	return Classify(resp.StatusCode, payload, nil)
}

// apply performs the side effects of a classified outcome: at most one
// notification, and on 401 a credential wipe plus navigation.
func (c *Client) apply(o Outcome) {
	switch o.Kind {
	case KindOK, KindCanceled:
		return
	case KindSessionExpired:
		c.creds.ClearAll()
		c.notify(o)
		route := o.RedirectURL
		if route == "" {
			route = c.cfg.LoginRoute
		}
		c.navigator.Navigate(route)
		c.hooksMu.RLock()
		hooks := append([]func(string){}, c.hooks...)
		c.hooksMu.RUnlock()
		for _, fn := range hooks {
			fn(route)
		}
	default:
		c.notify(o)
	}
}

func (c *Client) notify(o Outcome) {
	c.notifier.Notify(Notification{
		Level:   levelFor(o.Kind),
		Message: o.Message,
		Kind:    o.Kind,
		Status:  o.Status,
	})
}
