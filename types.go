package goAuthClient

import (
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
)

// Role is the authorization role carried by a user and its token.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	RoleGuest Role = "GUEST"
)

// UserStatus is the account lifecycle state reported by the auth service.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserInactive  UserStatus = "INACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// User is the profile returned by the auth service and cached locally.
// Timestamps are kept as the server's strings; the service does not
// guarantee a zone offset.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FullName      string     `json:"fullName,omitempty"`
	Role          Role       `json:"role"`
	Status        UserStatus `json:"status"`
	LastLogin     string     `json:"lastLogin,omitempty"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	APIQuotaDaily *int64     `json:"apiQuotaDaily,omitempty"`
	APIQuotaUsed  *int64     `json:"apiQuotaUsed,omitempty"`
	Avatar        string     `json:"avatar,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate Engine state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.APIQuotaDaily != nil {
		v := *u.APIQuotaDaily
		out.APIQuotaDaily = &v
	}
	if u.APIQuotaUsed != nil {
		v := *u.APIQuotaUsed
		out.APIQuotaUsed = &v
	}
	return &out
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FullName        string `json:"fullName,omitempty"`
}

// AuthResponse is the payload of login, register, and refresh.
type AuthResponse struct {
	Token        string `json:"token,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message,omitempty"`
}

// TokenInfo is the payload of POST /api/auth/validate.
type TokenInfo struct {
	Valid      bool   `json:"valid"`
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	// Expiration is the token expiry in Unix seconds.
	Expiration int64  `json:"expiration"`
}

// Status is the session state tag derived from State.
type Status uint8

const (
	// StatusUninitialized is the state before Initialize has completed.
	StatusUninitialized Status = iota
	// StatusLoading means an operation is in flight.
	StatusLoading
	// StatusAuthenticated means a user and a live token are held.
	StatusAuthenticated
	// StatusAnonymous means no session is held.
	StatusAnonymous
	// StatusError means no session is held and the last operation failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the session.
type State struct {
	Status          Status
	IsAuthenticated bool
	User            *User
	Token           string
	Loading         bool
	Error           string
	// Degraded is true when the session was restored from cache because the
	// auth service could not be reached.
	Degraded bool
}

// HasRole reports whether the snapshot's user has role.
func (s State) HasRole(role Role) bool {
	return s.IsAuthenticated && s.User != nil && s.User.Role == role
}

// AuditEvent is emitted for every session transition when auditing is enabled.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON audit event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes audit events to a structured logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink { return internalaudit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a JSONWriterSink.
var NewJSONWriterSink = internalaudit.NewJSONWriterSink

// NewSlogSink returns a SlogSink.
var NewSlogSink = internalaudit.NewSlogSink
