package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskforge-app/taskforge/internal/authz"
)

var (
	// ErrTokenInvalid covers expired, unsigned, or otherwise unusable
	// tokens. Routine; surfaces as 401.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrMalformedClaims indicates a token we signed ourselves carries a
	// role or organization outside the closed set. That is a bug in the
	// issuing path, not a client error, and must be loud rather than a
	// silent deny.
	ErrMalformedClaims = errors.New("auth: malformed claims in signed token")
)

// Claims is the access-token payload. Role and organization travel in
// the token so the engine gets a complete principal without a DB fetch.
type Claims struct {
	Role  string `json:"role"`
	OrgID string `json:"org"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokens builds a token codec from a shared secret.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: "taskforge", ttl: ttl}
}

// TTL returns the configured access token lifetime.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs an access token for the given user.
func (t *Tokens) Issue(user *User, now time.Time) (string, error) {
	if !authz.ValidRole(user.Role) {
		return "", fmt.Errorf("%w: role %q", ErrMalformedClaims, user.Role)
	}
	claims := Claims{
		Role:  string(user.Role),
		OrgID: user.OrgID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses and validates a raw token and reconstructs the
// principal. A valid signature with an out-of-set role is reported as
// ErrMalformedClaims so the caller can fail loudly instead of quietly
// denying.
func (t *Tokens) Verify(raw string) (authz.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return authz.Principal{}, ErrTokenInvalid
	}
	role := authz.Role(claims.Role)
	if !authz.ValidRole(role) || claims.Subject == "" || claims.OrgID == "" {
		return authz.Principal{}, ErrMalformedClaims
	}
	return authz.Principal{ID: claims.Subject, Role: role, OrgID: claims.OrgID}, nil
}
