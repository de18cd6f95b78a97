// Package authtest is an in-memory implementation of the auth service
// endpoints, for tests, the load tool, the example app and the CLI's
// serve-fake command. Tokens are HS256 JWTs signed with a per-server secret.
package authtest

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL matches the service's default token lifetime.
const DefaultTokenTTL = 24 * time.Hour

// Messages returned by the fake service.
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgInvalidToken       = "Token is invalid or expired"
	MsgUsernameTaken      = "Username already exists"
	MsgForbidden          = "Insufficient permissions"
	MsgUserNotFound       = "User not found"
)

// User is the wire form of a profile.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullName,omitempty"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	LastLogin string `json:"lastLogin,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type account struct {
	user     User
	password string
}

// Claims is the token payload.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	gjwt.RegisteredClaims
}

// Options configures a Server.
type Options struct {
	// Secret signs tokens. Random when empty.
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
	// EnvelopeRejections answers failed logins and registrations with
	// 200 {success:false} instead of 400.
	EnvelopeRejections bool
}

type forced struct {
	status  int
	message string
}

// Server is the fake auth service. It implements http.Handler.
type Server struct {
	secret             []byte
	ttl                time.Duration
	now                func() time.Time
	envelopeRejections bool
	router             chi.Router

	mu      sync.Mutex
	users   map[string]*account
	nextID  int64
	revoked map[string]bool
	forced  map[string]forced
	delay   time.Duration
	calls   map[string]int
}

// New returns a Server with no users.
func New(opts Options) *Server {
	secret := opts.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		secret:             secret,
		ttl:                ttl,
		now:                now,
		envelopeRejections: opts.EnvelopeRejections,
		users:              make(map[string]*account),
		nextID:             1,
		revoked:            make(map[string]bool),
		forced:             make(map[string]forced),
		calls:              make(map[string]int),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.Get("/me", s.me)
		r.Post("/validate", s.validate)
		r.Post("/refresh", s.refresh)
		r.Post("/logout", s.logout)
		r.Get("/users", s.listUsers)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

/*
====================================
KNOBS
====================================
*/

// AddUser registers an account directly and returns its profile.
func (s *Server) AddUser(username, password, role string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, username+"@example.com", "", role)
}

// Force makes every request to path answer status with message until
// Clear is called. status 0 removes the override for path.
func (s *Server) Force(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.forced, path)
		return
	}
	s.forced[path] = forced{status: status, message: message}
}

// Clear removes every forced response and the delay.
func (s *Server) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = make(map[string]forced)
	s.delay = 0
}

// SetDelay holds every response for d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Calls reports how many requests path has received.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// IssueToken signs a token for username that expires after ttl.
func (s *Server) IssueToken(username string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	acc, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("authtest: unknown user %q", username)
	}
	return s.sign(acc.user, ttl)
}

// Revoked reports whether token was invalidated by logout.
func (s *Server) Revoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token]
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		delay := s.delay
		f, isForced := s.forced[r.URL.Path]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if isForced {
			writeJSON(w, f.status, envelope{Success: false, Message: f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

/*
====================================
HANDLERS
====================================
*/

type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type authPayload struct {
	Token        string `json:"token"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         User   `json:"user"`
}

type tokenInfo struct {
	Valid      bool   `json:"valid"`
	UserID     int64  `json:"userId,omitempty"`
	Username   string `json:"username,omitempty"`
	Role       string `json:"role,omitempty"`
	Expiration int64  `json:"expiration,omitempty"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.users[req.Username]
	if ok && acc.password == req.Password {
		acc.user.LastLogin = s.now().UTC().Format("2006-01-02T15:04:05")
	}
	var user User
	if ok {
		user = acc.user
	}
	s.mu.Unlock()

	if !ok || acc.password != req.Password {
		s.reject(w, MsgInvalidCredentials)
		return
	}
	s.issue(w, user, "Login successful")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
		FullName        string `json:"fullName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Password != req.ConfirmPassword {
		s.reject(w, "Passwords do not match")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Username]; exists {
		s.mu.Unlock()
		s.reject(w, MsgUsernameTaken)
		return
	}
	user := s.addUserLocked(req.Username, req.Password, req.Email, req.FullName, "USER")
	s.mu.Unlock()

	s.issue(w, user, "Registration successful")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, _, err := s.authenticate(r)
	if err != nil {
		s.fail(w, http.StatusUnauthorized, MsgInvalidToken)
		return
	}
	if user == nil {
		s.fail(w, http.StatusNotFound, MsgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "OK", Data: user})
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	user, claims, err := s.authenticate(r)
	if err != nil || user == nil {
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: tokenInfo{Valid: false}})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: tokenInfo{
		Valid:      true,
		UserID:     user.ID,
		Username:   user.Username,
		Role:       user.Role,
		Expiration: claims.ExpiresAt.Unix(),
	}})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	user, _, err := s.authenticate(r)
	if err != nil {
		s.fail(w, http.StatusUnauthorized, MsgInvalidToken)
		return
	}
	if user == nil {
		s.fail(w, http.StatusNotFound, MsgUserNotFound)
		return
	}
	s.issue(w, *user, "Token refreshed")
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearer(r); ok {
		s.mu.Lock()
		s.revoked[token] = true
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Logged out", Data: "logout"})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	user, _, err := s.authenticate(r)
	if err != nil || user == nil {
		s.fail(w, http.StatusUnauthorized, MsgInvalidToken)
		return
	}
	if user.Role != "ADMIN" {
		s.fail(w, http.StatusForbidden, MsgForbidden)
		return
	}

	s.mu.Lock()
	users := make([]User, 0, len(s.users))
	for _, acc := range s.users {
		users = append(users, acc.user)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: users})
}

/*
====================================
HELPERS
====================================
*/

var errNoBearer = errors.New("authtest: missing bearer token")

func (s *Server) addUserLocked(username, password, email, fullName, role string) User {
	user := User{
		ID:        s.nextID,
		Username:  username,
		Email:     email,
		FullName:  fullName,
		Role:      role,
		Status:    "ACTIVE",
		CreatedAt: s.now().UTC().Format("2006-01-02T15:04:05"),
	}
	s.nextID++
	s.users[username] = &account{user: user, password: password}
	return user
}

// authenticate returns a nil user with a nil error when the token is valid
// but its user no longer exists.
func (s *Server) authenticate(r *http.Request) (*User, *Claims, error) {
	token, ok := bearer(r)
	if !ok {
		return nil, nil, errNoBearer
	}
	claims := &Claims{}
	_, err := gjwt.ParseWithClaims(token, claims, func(*gjwt.Token) (any, error) {
		return s.secret, nil
	}, gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}), gjwt.WithTimeFunc(s.now), gjwt.WithExpirationRequired())
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[token] {
		return nil, nil, errors.New("authtest: token revoked")
	}
	acc, ok := s.users[claims.Username]
	if !ok {
		return nil, claims, nil
	}
	user := acc.user
	return &user, claims, nil
}

func (s *Server) issue(w http.ResponseWriter, user User, message string) {
	token, err := s.sign(user, s.ttl)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Token signing failed")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: authPayload{
		Token:        token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.ttl / time.Second),
		RefreshToken: uuid.NewString(),
		User:         user,
	}})
}

func (s *Server) sign(user User, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) reject(w http.ResponseWriter, message string) {
	if s.envelopeRejections {
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: message})
		return
	}
	s.fail(w, http.StatusBadRequest, message)
}

func (s *Server) fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	body.Timestamp = time.Now().UnixMilli()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
