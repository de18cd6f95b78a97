package jwt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim value carried by administrator tokens.
const RoleAdmin = "ADMIN"

// Claims is the decoded, unverified payload of a bearer token.
type Claims struct {
	Subject   string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// claimText accepts a claim encoded as a JSON string or number. Any other
// type decodes to the empty string.
type claimText string

func (c *claimText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = claimText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*c = claimText(n.String())
		return nil
	}
	*c = ""
	return nil
}

// tokenClaims reads only the claims the inspector reports. Other registered
// claims such as aud or nbf are ignored whatever their type.
type tokenClaims struct {
	Subject   claimText       `json:"sub"`
	Username  claimText       `json:"username"`
	Role      claimText       `json:"role"`
	IssuedAt  json.RawMessage `json:"iat"`
	ExpiresAt json.RawMessage `json:"exp"`
}

func numericDate(raw json.RawMessage) (*jwt.NumericDate, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var d jwt.NumericDate
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return &d, nil
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithClock replaces the wall clock used by expiry predicates.
func WithClock(now func() time.Time) Option {
	return func(i *Inspector) {
		if now != nil {
			i.now = now
		}
	}
}

// Inspector answers expiry and role questions about tokens. It holds no
// state besides its clock and is safe for concurrent use.
type Inspector struct {
	parser *jwt.Parser
	now    func() time.Time
}

// New returns an Inspector using the wall clock unless WithClock is given.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var defaultInspector = New()

// ParseClaims decodes token with the package default inspector.
func ParseClaims(token string) (Claims, error) { return defaultInspector.ParseClaims(token) }

// IsExpired reports expiry with the package default inspector.
func IsExpired(token string) bool { return defaultInspector.IsExpired(token) }

// RemainingSeconds reports remaining lifetime with the package default inspector.
func RemainingSeconds(token string) int64 { return defaultInspector.RemainingSeconds(token) }

// IsNearExpiry reports near-expiry with the package default inspector.
func IsNearExpiry(token string, thresholdMinutes int) bool {
	return defaultInspector.IsNearExpiry(token, thresholdMinutes)
}

// ParseClaims decodes the payload segment of token without verifying the
// signature. The header and signature segments are not inspected beyond
// their presence.
//
// A token must have exactly three dot-separated segments, a base64url
// payload that decodes to a JSON object, and an exp claim.
func (i *Inspector) ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, malformed("empty token", nil)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, malformed("token must have three segments", nil)
	}
	payload, err := i.parser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, malformed("payload is not base64url", err)
	}

	var raw tokenClaims
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, malformed("payload is not a JSON object", err)
	}
	exp, err := numericDate(raw.ExpiresAt)
	if err != nil {
		return Claims{}, malformed("exp claim is not a number", err)
	}
	if exp == nil {
		return Claims{}, malformed("missing exp claim", nil)
	}

	claims := Claims{
		Subject:   string(raw.Subject),
		Username:  string(raw.Username),
		Role:      string(raw.Role),
		ExpiresAt: exp.Time,
	}
	// A bad iat does not make the token unusable.
	if iat, err := numericDate(raw.IssuedAt); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}

// IsExpired reports true when the token cannot be decoded or its exp is in
// the past.
func (i *Inspector) IsExpired(token string) bool {
	claims, err := i.ParseClaims(token)
	if err != nil {
		return true
	}
	return claims.ExpiresAt.Unix() < i.now().Unix()
}

// RemainingSeconds returns max(0, exp-now) in whole seconds, or 0 for an
// empty or malformed token.
func (i *Inspector) RemainingSeconds(token string) int64 {
	claims, err := i.ParseClaims(token)
	if err != nil {
		return 0
	}
	remaining := claims.ExpiresAt.Unix() - i.now().Unix()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsNearExpiry reports whether the token is still alive but will expire
// within thresholdMinutes. An already expired token is not near expiry.
func (i *Inspector) IsNearExpiry(token string, thresholdMinutes int) bool {
	remaining := i.RemainingSeconds(token)
	return remaining > 0 && remaining < int64(thresholdMinutes)*60
}

// Expiration returns the exp claim of token.
func (i *Inspector) Expiration(token string) (time.Time, bool) {
	claims, err := i.ParseClaims(token)
	if err != nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}

// HasRole reports whether the token's role claim equals role.
func (i *Inspector) HasRole(token, role string) bool {
	claims, err := i.ParseClaims(token)
	if err != nil {
		return false
	}
	return claims.Role == role
}

// IsAdmin is HasRole(token, RoleAdmin).
func (i *Inspector) IsAdmin(token string) bool {
	return i.HasRole(token, RoleAdmin)
}
