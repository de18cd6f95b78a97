package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/pipeline"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/store"
)

// Builder assembles an Engine. A Builder can build once.
type Builder struct {
	config Config

	backend    store.Backend
	redis      redis.UniversalClient
	httpClient *http.Client
	notifier   pipeline.Notifier
	navigator  pipeline.Navigator
	logger     *slog.Logger
	auditSink  AuditSink
	now        func() time.Time
	tracer     trace.TracerProvider

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBackend stores credentials in backend instead of the one named by
// Config.Storage.
func (b *Builder) WithBackend(backend store.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis supplies the client used when Config.Storage selects redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the transport. Its own Timeout is left alone; every
// request is additionally bounded by Config.Server.Timeout.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithNotifier sets the receiver of user-visible failure messages.
func (b *Builder) WithNotifier(n pipeline.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithNavigator sets the receiver of forced-logout redirects.
func (b *Builder) WithNavigator(n pipeline.Navigator) *Builder {
	b.navigator = n
	return b
}

// WithLogger sets the logger shared by the Engine and its components.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. It only takes effect when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source used for token expiry decisions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithTracerProvider sets the provider for request pipeline spans.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracer = tp
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, opens the storage backend and wires
// every component. The returned Engine is Uninitialized; call Initialize.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := b.openBackend()
	if err != nil {
		return nil, err
	}
	creds := store.New(backend, store.Options{
		Namespace: b.config.Storage.Namespace,
		Origin:    b.config.storageOrigin(),
		OpTimeout: b.config.Storage.OpTimeout,
		Logger:    logger,
	})

	var inspectorOpts []jwt.Option
	if b.now != nil {
		inspectorOpts = append(inspectorOpts, jwt.WithClock(b.now))
	}
	inspector := jwt.New(inspectorOpts...)

	metrics := NewMetrics(b.config.Metrics)

	notifier := b.notifier
	if notifier == nil {
		notifier = pipeline.LogNotifier{Logger: logger.With("component", "notifications")}
	}
	opts := []pipeline.Option{
		pipeline.WithNotifier(notifier),
		pipeline.WithExpiryChecker(inspector),
		pipeline.WithRecorder(metrics),
		pipeline.WithLogger(logger),
	}
	if b.httpClient != nil {
		opts = append(opts, pipeline.WithHTTPClient(b.httpClient))
	}
	if b.navigator != nil {
		opts = append(opts, pipeline.WithNavigator(b.navigator))
	}
	if b.tracer != nil {
		opts = append(opts, pipeline.WithTracerProvider(b.tracer))
	}
	client, err := pipeline.New(b.config.pipelineConfig(), creds, opts...)
	if err != nil {
		_ = creds.Close()
		return nil, fmt.Errorf("build request pipeline: %w", err)
	}

	var dispatcher *internalaudit.Dispatcher
	if b.config.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NewSlogSink(logger)
		}
		dispatcher = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
			Origin:     b.config.storageOrigin(),
			Exclude:    b.config.Audit.Exclude,
		}, sink)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	e := &Engine{
		config:    b.config,
		store:     creds,
		inspector: inspector,
		client:    client,
		notifier:  notifier,
		audit:     dispatcher,
		metrics:   metrics,
		logger:    logger.With("component", "session"),
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
		subs:      make(map[uint64]func(State)),
	}
	if b.config.Refresh.Enabled {
		e.scheduler = refresh.New(b.config.refreshConfig(), creds, inspector, refresh.RefresherFunc(e.Refresh), logger)
	}
	client.OnSessionExpired(e.handleSessionExpired)

	b.built = true
	return e, nil
}

func (b *Builder) openBackend() (store.Backend, error) {
	if b.backend != nil {
		return b.backend, nil
	}
	switch b.config.Storage.Backend {
	case StorageRedis:
		client := b.redis
		if client == nil {
			ctx, cancel := context.WithTimeout(context.Background(), b.config.Storage.OpTimeout)
			defer cancel()
			rc, err := store.NewRedisClient(ctx, b.config.Storage.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("open redis storage: %w", err)
			}
			client = rc
		}
		return store.NewRedisBackend(client, b.config.Storage.RedisTTL), nil
	case StorageSQLite:
		backend, err := store.OpenSQLite(b.config.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return backend, nil
	default:
		return store.NewMemoryBackend(), nil
	}
}
