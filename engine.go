package goAuthClient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/pipeline"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/store"
)

// Remote endpoints of the auth service.
const (
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathMe       = "/api/auth/me"
	PathValidate = "/api/auth/validate"
	PathRefresh  = "/api/auth/refresh"
	PathLogout   = "/api/auth/logout"
	PathUsers    = "/api/auth/users"
)

// Engine owns the session state of one client. It is built by Builder and
// safe for concurrent use.
//
// Every state-changing operation runs in three steps: take the lock and
// record the start, release it for the network round-trip, then take it
// again and apply the result only when no newer operation has started.
type Engine struct {
	config    Config
	store     *store.Store
	inspector *jwt.Inspector
	client    *pipeline.Client
	notifier  pipeline.Notifier
	scheduler *refresh.Scheduler
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	refreshes singleflight.Group

	bgCtx    context.Context
	bgCancel context.CancelFunc

	mu          sync.Mutex
	state       State
	epoch       uint64
	inflight    int
	settled     bool
	initStarted bool
	closed      bool
	seq         uint64
	subs        map[uint64]func(State)
	nextSub     uint64

	pubMu     sync.Mutex
	published uint64
}

// State returns a snapshot of the session.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers fn to receive every later snapshot. Snapshots are
// delivered in order; one superseded while a delivery was running may be
// skipped. fn must not call state-changing Engine methods synchronously.
func (e *Engine) Subscribe(fn func(State)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	if e.subs == nil {
		e.subs = make(map[uint64]func(State))
	}
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Config returns the configuration the Engine was built with.
func (e *Engine) Config() Config { return e.config }

// Store exposes the credential store.
func (e *Engine) Store() *store.Store { return e.store }

// Close stops the refresh scheduler, drains audit events, and closes the
// store backend. Stored credentials are kept.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var done <-chan struct{}
	if e.scheduler != nil {
		done = e.scheduler.Stop()
	}
	e.bgCancel()
	e.mu.Unlock()

	if done != nil {
		<-done
	}
	e.audit.Close()
	return e.store.Close()
}

// AuditDropped reports audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
TRANSITIONS (caller holds e.mu)
====================================
*/

// beginOp marks an operation in flight. Operations that supersede earlier
// ones advance the epoch here and again when they apply, so a refresh or
// refetch started in between is discarded too. The returned epoch is
// checked before the result is applied.
func (e *Engine) beginOp(supersede bool) uint64 {
	e.inflight++
	if supersede {
		e.epoch++
	}
	return e.epoch
}

func (e *Engine) endOp() {
	if e.inflight > 0 {
		e.inflight--
	}
	e.settled = true
}

func (e *Engine) current(epoch uint64) bool {
	return !e.closed && epoch == e.epoch
}

func (e *Engine) applyLoginSuccess(token, refreshToken string, user *User) {
	e.store.SetToken(token)
	if refreshToken != "" {
		e.store.SetRefreshToken(refreshToken)
	}
	e.cacheUser(user)

	e.state.IsAuthenticated = true
	e.state.Token = token
	e.state.User = user.Clone()
	e.state.Error = ""
	e.state.Degraded = false
	e.startSchedulerLocked()
}

// applyRestore enters Authenticated from stored credentials. degraded marks
// a session the auth service has not confirmed.
func (e *Engine) applyRestore(token string, user *User, degraded bool) {
	if !degraded {
		e.cacheUser(user)
	}
	e.state.IsAuthenticated = true
	e.state.Token = token
	e.state.User = user.Clone()
	e.state.Degraded = degraded
	e.startSchedulerLocked()
}

// applyLogout clears the store and the session. Error is kept.
func (e *Engine) applyLogout() {
	e.store.ClearAll()
	e.state.IsAuthenticated = false
	e.state.Token = ""
	e.state.User = nil
	e.state.Degraded = false
	e.stopSchedulerLocked()
}

func (e *Engine) applyUpdateUser(user *User) {
	e.cacheUser(user)
	e.state.User = user.Clone()
}

func (e *Engine) applyError(msg string) {
	e.state.Error = msg
}

func (e *Engine) applyClearError() {
	e.state.Error = ""
}

func (e *Engine) cacheUser(user *User) {
	raw, err := json.Marshal(user)
	if err != nil {
		e.logger.Warn("encode user profile", "error", err)
		return
	}
	e.store.SetUser(raw)
}

func (e *Engine) startSchedulerLocked() {
	if e.scheduler == nil || e.closed {
		return
	}
	if e.scheduler.Start(e.bgCtx) {
		e.logger.Debug("refresh scheduler started")
	}
}

// stopSchedulerLocked does not wait: the caller may be the scheduler's own
// refresh.
func (e *Engine) stopSchedulerLocked() {
	if e.scheduler == nil {
		return
	}
	if e.scheduler.Running() {
		e.scheduler.Stop()
		e.logger.Debug("refresh scheduler stopped")
	}
}

/*
====================================
SNAPSHOTS & PUBLISHING
====================================
*/

func (e *Engine) snapshotLocked() State {
	s := e.state
	s.User = e.state.User.Clone()
	s.Loading = e.inflight > 0
	switch {
	case s.Loading:
		s.Status = StatusLoading
	case s.IsAuthenticated:
		s.Status = StatusAuthenticated
	case s.Error != "":
		s.Status = StatusError
	case !e.settled:
		s.Status = StatusUninitialized
	default:
		s.Status = StatusAnonymous
	}
	return s
}

// unlockAndPublish releases e.mu and delivers the snapshot taken while it
// was held.
func (e *Engine) unlockAndPublish() {
	e.seq++
	seq := e.seq
	snap := e.snapshotLocked()
	var subs []func(State)
	if len(e.subs) > 0 {
		subs = make([]func(State), 0, len(e.subs))
		for _, fn := range e.subs {
			subs = append(subs, fn)
		}
	}
	e.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if seq <= e.published {
		return
	}
	e.published = seq
	for _, fn := range subs {
		fn(snap)
	}
}
