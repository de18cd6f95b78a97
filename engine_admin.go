package goAuthClient

import (
	"context"
	"fmt"
	"net/http"
)

// ValidateToken asks the service whether the held token is still valid.
func (e *Engine) ValidateToken(ctx context.Context) (TokenInfo, error) {
	if _, ok := e.token(); !ok {
		return TokenInfo{}, ErrNotAuthenticated
	}
	var info TokenInfo
	if err := e.client.Do(ctx, http.MethodPost, PathValidate, nil, &info); err != nil {
		return TokenInfo{}, fmt.Errorf("validate token: %w", err)
	}
	return info, nil
}

// ListUsers returns every account. The service only answers for admins.
func (e *Engine) ListUsers(ctx context.Context) ([]User, error) {
	if _, ok := e.token(); !ok {
		return nil, ErrNotAuthenticated
	}
	var users []User
	if err := e.client.Do(ctx, http.MethodGet, PathUsers, nil, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// HasRole reports whether the session holds role. Without a loaded profile
// the token's role claim is used.
func (e *Engine) HasRole(role Role) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsAuthenticated {
		return false
	}
	if e.state.User != nil {
		return e.state.User.Role == role
	}
	return e.inspector.HasRole(e.state.Token, string(role))
}

// IsAdmin reports whether the session holds RoleAdmin.
func (e *Engine) IsAdmin() bool { return e.HasRole(RoleAdmin) }

// Do sends an arbitrary request through the request pipeline, so callers get
// the same bearer handling and failure reactions as the Engine itself.
func (e *Engine) Do(ctx context.Context, method, path string, body, out any) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrEngineClosed
	}
	return e.client.Do(ctx, method, path, body, out)
}

func (e *Engine) token() (string, bool) {
	e.mu.Lock()
	token := e.state.Token
	e.mu.Unlock()
	if token != "" {
		return token, true
	}
	return e.store.Token()
}
