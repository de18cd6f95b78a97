package goAuthClient

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/authtest"
	"github.com/MrEthical07/goAuthClient/pipeline"
	"github.com/MrEthical07/goAuthClient/store"
)

type uiRecorder struct {
	mu     sync.Mutex
	notes  []pipeline.Notification
	routes []string
}

func (r *uiRecorder) Notify(n pipeline.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
}

func (r *uiRecorder) Navigate(route string) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
}

func (r *uiRecorder) notifications() []pipeline.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pipeline.Notification(nil), r.notes...)
}

func (r *uiRecorder) navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

type engineFixture struct {
	engine  *Engine
	auth    *authtest.Server
	http    *httptest.Server
	ui      *uiRecorder
	backend store.Backend
}

type fixtureOption func(*Config, *Builder)

func withRefresh(interval time.Duration) fixtureOption {
	return func(c *Config, _ *Builder) {
		c.Refresh.Enabled = true
		c.Refresh.Interval = interval
	}
}

func withAudit(sink AuditSink) fixtureOption {
	return func(c *Config, b *Builder) {
		c.Audit.Enabled = true
		c.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	}
}

// newEngineFixture starts a fake auth service with users alice (USER) and
// root (ADMIN), both with password "secret1", and builds an Engine against
// it. backend may be shared between fixtures to simulate a restart.
func newEngineFixture(t *testing.T, auth *authtest.Server, backend store.Backend, opts ...fixtureOption) *engineFixture {
	t.Helper()
	if auth == nil {
		auth = authtest.New(authtest.Options{})
		auth.AddUser("alice", "secret1", "USER")
		auth.AddUser("root", "secret1", "ADMIN")
	}
	if backend == nil {
		backend = store.NewMemoryBackend()
	}
	srv := httptest.NewServer(auth)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Server.BaseURL = srv.URL
	cfg.Server.Timeout = 2 * time.Second
	cfg.Storage.Origin = "test"
	cfg.Refresh.Enabled = false
	cfg.Metrics.Enabled = true

	ui := &uiRecorder{}
	b := New().WithBackend(backend).WithNotifier(ui).WithNavigator(ui)
	for _, opt := range opts {
		opt(&cfg, b)
	}
	b.WithConfig(cfg)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	return &engineFixture{engine: engine, auth: auth, http: srv, ui: ui, backend: backend}
}

func (f *engineFixture) login(t *testing.T, username string) {
	t.Helper()
	if !f.engine.Login(context.Background(), LoginRequest{Username: username, Password: "secret1"}) {
		t.Fatalf("login %s failed: %q", username, f.engine.State().Error)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
