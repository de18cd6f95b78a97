package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultInterval is the time between expiry checks.
	DefaultInterval = time.Minute
	// DefaultThresholdMinutes is how close to expiry a token must be to refresh.
	DefaultThresholdMinutes = 10
)

// Config configures a Scheduler.
type Config struct {
	Interval         time.Duration
	ThresholdMinutes int
}

// TokenSource yields the stored access token.
type TokenSource interface {
	Token() (string, bool)
}

// ExpiryInspector answers the near-expiry question for a token.
type ExpiryInspector interface {
	IsNearExpiry(token string, thresholdMinutes int) bool
}

// Refresher exchanges the current token for a new one and reports success.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) bool

// Refresh calls f(ctx).
func (f RefresherFunc) Refresh(ctx context.Context) bool { return f(ctx) }

// Scheduler runs the periodic near-expiry check. Its methods are safe for
// concurrent use.
type Scheduler struct {
	cfg       Config
	tokens    TokenSource
	inspector ExpiryInspector
	refresher Refresher
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped Scheduler. Zero config values select the defaults.
func New(cfg Config, tokens TokenSource, inspector ExpiryInspector, refresher Refresher, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ThresholdMinutes <= 0 {
		cfg.ThresholdMinutes = DefaultThresholdMinutes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:       cfg,
		tokens:    tokens,
		inspector: inspector,
		refresher: refresher,
		logger:    logger.With("component", "refresh_scheduler"),
	}
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Check performs a single tick. It reports whether a refresh was attempted
// and, if so, whether it succeeded. A missing token is a no-op.
func (s *Scheduler) Check(ctx context.Context) (attempted, ok bool) {
	token, present := s.tokens.Token()
	if !present || token == "" {
		return false, false
	}
	if !s.inspector.IsNearExpiry(token, s.cfg.ThresholdMinutes) {
		return false, false
	}
	if ctx.Err() != nil {
		return false, false
	}
	s.logger.Debug("token near expiry; refreshing", "threshold_minutes", s.cfg.ThresholdMinutes)
	ok = s.refresher.Refresh(ctx)
	if !ok {
		s.logger.Info("scheduled refresh failed")
	}
	return true, ok
}

// Run checks every Interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Start launches Run in a goroutine derived from parent. It returns false
// when the scheduler is already running.
func (s *Scheduler) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return true
}

// Stop cancels the running loop without waiting for it to exit, so it may
// be called from inside a Refresher. It returns a channel closed once the
// loop has exited; the channel is already closed when nothing was running.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	s.cancel()
	done := s.done
	s.cancel = nil
	s.done = nil
	return done
}

// Running reports whether a loop has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
