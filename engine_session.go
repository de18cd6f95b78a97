package goAuthClient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/pipeline"
)

const msgIncompleteResponse = "Authentication response was incomplete"

// Initialize reconciles stored credentials with the auth service. Only the
// first call has any effect.
//
// Without a stored token and cached user, or with an expired token, the
// store is cleared and the session is anonymous. Otherwise the user is
// fetched from the service: success authenticates with the server's
// profile, an auth rejection clears the session, and any other failure
// restores the cached profile with State.Degraded set.
func (e *Engine) Initialize(ctx context.Context) {
	e.mu.Lock()
	if e.closed || e.initStarted {
		e.mu.Unlock()
		return
	}
	e.initStarted = true
	epoch := e.beginOp(true)

	token, hasToken := e.store.Token()
	cached := e.cachedUser()
	if !hasToken || token == "" || cached == nil || e.inspector.IsExpired(token) {
		e.applyLogout()
		e.endOp()
		e.metricInc(MetricInitializeAnonymous)
		e.unlockAndPublish()
		e.logger.Info("no usable stored session", "token_present", hasToken, "user_cached", cached != nil)
		e.emitAudit(ctx, internalaudit.EventInitialize, false, nil, nil, map[string]string{"result": "anonymous"})
		return
	}
	e.unlockAndPublish()

	var user User
	err := e.client.Do(ctx, http.MethodGet, PathMe, nil, &user)

	e.mu.Lock()
	e.endOp()
	if !e.current(epoch) {
		e.discardStaleLocked(ctx, "initialize")
		return
	}
	e.epoch++

	result := "authenticated"
	switch {
	case err == nil && user.ID != 0:
		e.applyRestore(token, &user, false)
		e.metricInc(MetricInitializeAuthenticated)
	case pipeline.IsAuthRejection(err):
		e.applyLogout()
		e.metricInc(MetricInitializeAnonymous)
		result = "rejected"
	default:
		e.applyRestore(token, cached, true)
		e.metricInc(MetricInitializeDegraded)
		result = "degraded"
	}
	snap := e.snapshotLocked()
	e.unlockAndPublish()

	if result == "degraded" {
		e.logger.Warn("auth service unavailable; using cached profile", "error", err, "user_id", cached.ID)
	}
	e.emitAudit(ctx, internalaudit.EventInitialize, snap.IsAuthenticated, snap.User, err, map[string]string{"result": result})
}

// Login validates req, authenticates against the service and persists the
// returned session. Failures are reported through State.Error.
func (e *Engine) Login(ctx context.Context, req LoginRequest) bool {
	if err := ValidateLogin(req); err != nil {
		e.rejectInput(ctx, internalaudit.EventLogin, req.Username, err)
		return false
	}
	ok := e.authenticate(ctx, internalaudit.EventLogin, PathLogin, req, req.Username)
	if ok {
		e.metricInc(MetricLoginSuccess)
	} else {
		e.metricInc(MetricLoginFailure)
	}
	return ok
}

// Register validates req and creates an account. A successful registration
// is itself a login.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) bool {
	if err := ValidateRegister(req); err != nil {
		e.rejectInput(ctx, internalaudit.EventRegister, req.Username, err)
		return false
	}
	ok := e.authenticate(ctx, internalaudit.EventRegister, PathRegister, req, req.Username)
	if ok {
		e.metricInc(MetricRegisterSuccess)
	} else {
		e.metricInc(MetricRegisterFailure)
	}
	return ok
}

func (e *Engine) rejectInput(ctx context.Context, eventType, username string, err error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.applyError(err.Error())
	e.settled = true
	e.metricInc(MetricValidationRejected)
	e.unlockAndPublish()
	e.emitAudit(ctx, eventType, false, &User{Username: username}, err, map[string]string{"stage": "validation"})
}

func (e *Engine) authenticate(ctx context.Context, eventType, path string, body any, username string) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	epoch := e.beginOp(true)
	e.applyClearError()
	e.unlockAndPublish()

	var resp AuthResponse
	err := e.client.Do(ctx, http.MethodPost, path, body, &resp)
	if err == nil && (resp.Token == "" || resp.User == nil) {
		err = ErrIncompleteResponse
		e.notifier.Notify(pipeline.Notification{Level: pipeline.LevelError, Message: msgIncompleteResponse})
	}

	e.mu.Lock()
	e.endOp()
	if !e.current(epoch) {
		e.discardStaleLocked(ctx, eventType)
		return false
	}
	e.epoch++
	if err != nil {
		e.applyLogout()
		e.applyError(failureMessage(err))
		e.unlockAndPublish()
		e.emitAudit(ctx, eventType, false, &User{Username: username}, err, nil)
		return false
	}
	e.applyLoginSuccess(resp.Token, resp.RefreshToken, resp.User)
	e.unlockAndPublish()

	e.logger.Info("authenticated", "user_id", resp.User.ID, "username", resp.User.Username)
	e.emitAudit(ctx, eventType, true, resp.User, nil, nil)
	return true
}

// Logout invalidates the session on the service when a token is held, then
// clears the store and the session whatever the outcome. It never fails and
// may be called repeatedly.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	epoch := e.beginOp(true)
	user := e.state.User.Clone()
	token := e.state.Token
	if token == "" {
		token, _ = e.store.Token()
	}
	e.unlockAndPublish()

	var remoteErr error
	if token != "" {
		remoteErr = e.client.Do(ctx, http.MethodPost, PathLogout, nil, nil)
		if remoteErr != nil {
			e.logger.Debug("remote logout failed; clearing locally", "error", remoteErr)
		}
	}

	e.mu.Lock()
	e.endOp()
	if !e.current(epoch) {
		e.discardStaleLocked(ctx, internalaudit.EventLogout)
		return
	}
	e.epoch++
	e.applyLogout()
	e.metricInc(MetricLogout)
	e.unlockAndPublish()

	meta := map[string]string{"remote": "skipped"}
	if token != "" {
		meta["remote"] = "ok"
		if remoteErr != nil {
			meta["remote"] = "failed"
		}
	}
	e.emitAudit(ctx, internalaudit.EventLogout, true, user, nil, meta)
}

// Refresh exchanges the current token for a new one. Concurrent calls share
// one round-trip. Any failure other than cancellation ends the session the
// same way Logout does and returns false; when the service answered, the old
// token is also revoked there.
func (e *Engine) Refresh(ctx context.Context) bool {
	v, _, shared := e.refreshes.Do("refresh", func() (any, error) {
		return e.refresh(ctx), nil
	})
	if shared {
		e.metricInc(MetricRefreshShared)
	}
	ok, _ := v.(bool)
	return ok
}

func (e *Engine) refresh(ctx context.Context) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	epoch := e.beginOp(false)
	user := e.state.User.Clone()
	token := e.state.Token
	e.unlockAndPublish()

	start := time.Now()
	var resp AuthResponse
	err := e.client.Do(ctx, http.MethodPost, PathRefresh, nil, &resp)
	e.metrics.Observe(MetricRefreshLatency, time.Since(start))
	if err == nil && (resp.Token == "" || resp.User == nil) {
		err = ErrIncompleteResponse
		e.notifier.Notify(pipeline.Notification{Level: pipeline.LevelError, Message: msgIncompleteResponse})
	}

	e.mu.Lock()
	e.endOp()
	if !e.current(epoch) {
		e.discardStaleLocked(ctx, internalaudit.EventRefresh)
		return false
	}
	if err == nil {
		e.applyLoginSuccess(resp.Token, resp.RefreshToken, resp.User)
		e.metricInc(MetricRefreshSuccess)
		e.unlockAndPublish()
		e.emitAudit(ctx, internalaudit.EventRefresh, true, resp.User, nil, nil)
		return true
	}

	e.metricInc(MetricRefreshFailure)
	if pipeline.KindOf(err) == pipeline.KindCanceled {
		e.unlockAndPublish()
		e.emitAudit(ctx, internalaudit.EventRefresh, false, user, err, map[string]string{"result": "canceled"})
		return false
	}
	e.epoch++
	e.applyLogout()
	e.metricInc(MetricLogout)
	e.unlockAndPublish()

	meta := map[string]string{"result": "logged_out", "remote": "skipped"}
	if e.shouldRevokeAfter(err, token) {
		meta["remote"] = "ok"
		if rerr := e.client.Do(pipeline.WithToken(ctx, token), http.MethodPost, PathLogout, nil, nil); rerr != nil {
			meta["remote"] = "failed"
			e.logger.Debug("remote logout after failed refresh", "error", rerr)
		}
	}
	e.logger.Info("refresh failed; session ended", "error", err)
	e.emitAudit(ctx, internalaudit.EventRefresh, false, user, err, meta)
	return false
}

// shouldRevokeAfter reports whether the token that failed to refresh should
// still be invalidated on the service. A 401 already proved it dead, and a
// transport failure means the service is out of reach.
func (e *Engine) shouldRevokeAfter(err error, token string) bool {
	if token == "" || e.inspector.IsExpired(token) {
		return false
	}
	if errors.Is(err, ErrIncompleteResponse) {
		return true
	}
	switch pipeline.KindOf(err) {
	case pipeline.KindSessionExpired, pipeline.KindTransport, pipeline.KindCanceled:
		return false
	}
	return true
}

// GetCurrentUser refetches the profile of an authenticated session and
// replaces the cached user. Errors are logged only.
func (e *Engine) GetCurrentUser(ctx context.Context) {
	e.mu.Lock()
	if e.closed || !e.state.IsAuthenticated {
		e.mu.Unlock()
		return
	}
	epoch := e.epoch
	e.mu.Unlock()

	var user User
	if err := e.client.Do(ctx, http.MethodGet, PathMe, nil, &user); err != nil {
		e.logger.Warn("refetch current user", "error", err)
		return
	}

	e.mu.Lock()
	if !e.current(epoch) || !e.state.IsAuthenticated {
		e.discardStaleLocked(ctx, "update_user")
		return
	}
	e.applyUpdateUser(&user)
	e.unlockAndPublish()
}

// ClearError clears State.Error and nothing else.
func (e *Engine) ClearError() {
	e.mu.Lock()
	e.applyClearError()
	e.unlockAndPublish()
}

// handleSessionExpired runs after the pipeline has cleared the store for a
// 401. It does not advance the epoch, so the operation that received the
// 401 still applies its own failure.
func (e *Engine) handleSessionExpired(redirect string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	user := e.state.User.Clone()
	wasAuthenticated := e.state.IsAuthenticated
	e.applyLogout()
	e.metricInc(MetricSessionExpired)
	e.unlockAndPublish()

	e.logger.Info("session expired", "redirect", redirect, "was_authenticated", wasAuthenticated)
	e.emitAudit(context.Background(), internalaudit.EventSessionExpired, true, user, nil, map[string]string{"redirect": redirect})
}

// discardStaleLocked records a result that lost to a newer operation and
// releases e.mu.
func (e *Engine) discardStaleLocked(ctx context.Context, op string) {
	e.metricInc(MetricStaleResultDiscarded)
	e.unlockAndPublish()
	e.logger.Debug("discarded stale result", "operation", op)
	e.emitAudit(ctx, internalaudit.EventStaleResult, false, nil, nil, map[string]string{"operation": op})
}

func (e *Engine) cachedUser() *User {
	raw, ok := e.store.User()
	if !ok || len(raw) == 0 {
		return nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		e.logger.Warn("discarding unreadable cached profile", "error", err)
		return nil
	}
	return &u
}

func failureMessage(err error) string {
	var pe *pipeline.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	if errors.Is(err, ErrIncompleteResponse) {
		return msgIncompleteResponse
	}
	return err.Error()
}
