package store

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Logical entry names. Each is stored under "<namespace>:<origin>:<name>".
const (
	KeyToken        = "auth-token"
	KeyRefreshToken = "refresh-token"
	KeyUser         = "cached-user-profile"
)

const (
	defaultNamespace = "authclient"
	defaultOpTimeout = 2 * time.Second
)

// Options configures a Store.
type Options struct {
	// Namespace prefixes every key. Defaults to "authclient".
	Namespace string
	// Origin scopes the credential set, usually the remote service base URL.
	Origin string
	// OpTimeout bounds every backend call. Defaults to 2s.
	OpTimeout time.Duration
	Logger    *slog.Logger
}

// Store is the credential set for one origin. It is safe for concurrent use.
//
// Every write goes to an in-process mirror and then to the backend. When a
// backend write fails the mirror stays authoritative for that key until the
// next successful write, so readers in this process observe their own writes.
type Store struct {
	backend Backend
	prefix  string
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	mirror   map[string]string
	degraded map[string]bool
}

// New wraps backend. A nil backend selects a MemoryBackend.
func New(backend Backend, opts Options) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	ns := strings.TrimSpace(opts.Namespace)
	if ns == "" {
		ns = defaultNamespace
	}
	prefix := ns
	if origin := strings.TrimSpace(opts.Origin); origin != "" {
		prefix += ":" + origin
	}
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:  backend,
		prefix:   prefix,
		timeout:  timeout,
		logger:   logger.With("component", "credential_store"),
		mirror:   make(map[string]string),
		degraded: make(map[string]bool),
	}
}

// Key returns the namespaced backend key for a logical entry name.
func (s *Store) Key(name string) string {
	return s.prefix + ":" + name
}

// SetToken stores the access token.
func (s *Store) SetToken(token string) { s.set(KeyToken, token) }

// Token returns the access token, if any.
func (s *Store) Token() (string, bool) { return s.get(KeyToken) }

// SetRefreshToken stores the refresh token.
func (s *Store) SetRefreshToken(token string) { s.set(KeyRefreshToken, token) }

// RefreshToken returns the refresh token, if any.
func (s *Store) RefreshToken() (string, bool) { return s.get(KeyRefreshToken) }

// SetUser stores the serialized user profile.
func (s *Store) SetUser(profile json.RawMessage) { s.set(KeyUser, string(profile)) }

// User returns the serialized user profile, if any.
func (s *Store) User() (json.RawMessage, bool) {
	v, ok := s.get(KeyUser)
	if !ok {
		return nil, false
	}
	return json.RawMessage(v), true
}

// ClearAll removes the token, refresh token, and user profile. Concurrent
// readers observe either all three entries or none of them.
func (s *Store) ClearAll() {
	keys := []string{s.Key(KeyToken), s.Key(KeyRefreshToken), s.Key(KeyUser)}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.mirror, key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.Warn("clear credentials failed; continuing without persistence", "error", err)
		for _, key := range keys {
			s.degraded[key] = true
		}
		return
	}
	for _, key := range keys {
		delete(s.degraded, key)
	}
}

// Close closes the backend when it implements io.Closer.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Store) set(name, value string) {
	key := s.Key(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror[key] = value

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.Warn("persist credential failed; keeping in memory", "entry", name, "error", err)
		s.degraded[key] = true
		return
	}
	delete(s.degraded, key)
}

func (s *Store) get(name string) (string, bool) {
	key := s.Key(name)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.degraded[key] {
		v, ok := s.mirror[key]
		return v, ok
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("read credential failed; using in-memory copy", "entry", name, "error", err)
		v, ok = s.mirror[key]
		return v, ok
	}
	return v, ok
}
