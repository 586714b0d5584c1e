// Package auth provides session tokens, password hashing, the registration
// password policy, and the HTTP middleware that turns a session cookie into
// a signed-in user.
//
// SESSION FLOW OVERVIEW:
//  1. User signs in (email + password, or GitHub OAuth)
//  2. The session manager asks TokenService for a signed JWT
//  3. The JWT is stored in an HttpOnly cookie
//  4. On every request, OptionalAuth / RequireAuth read the cookie and ask a
//     Resolver (the session manager) who the token belongs to
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"userID","jti":"tokenID","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The token id ("jti") lets the session manager revoke a single token on
// logout without keeping server-side session rows.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "dreamways"

	// DefaultTokenTTL is used when NewTokenService is given a non-positive lifetime.
	DefaultTokenTTL = 24 * time.Hour
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens issued by Issue.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Token is a freshly signed session token and the facts the issuer needs
// about it (cookie lifetime, revocation key).
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Claims is what Parse extracts from a valid token.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// claims is the JWT payload. We use "sub" (Subject) for the user ID and
// "jti" (ID) for the token's own identity.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a new token for userID with the service's TTL.
func (s *TokenService) Issue(userID string) (Token, error) {
	return s.issue(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom expiry duration.
// It exists for tests that need already-expired tokens; the app uses Issue.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	tok, err := s.issue(userID, d)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

func (s *TokenService) issue(userID string, d time.Duration) (Token, error) {
	now := time.Now()
	id := uuid.NewString()
	expires := now.Add(d)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return Token{Value: signed, ID: id, ExpiresAt: expires}, nil
}

// Parse verifies a JWT string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches
//   - Algorithm is HS256 (prevents "alg: none" confusion attacks)
func (s *TokenService) Parse(tokenStr string) (Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Claims{}, fmt.Errorf("auth: token has no subject")
	}

	out := Claims{UserID: c.Subject, TokenID: c.ID}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

// ErrTokenExpired is returned by Parse for a well-formed token past its expiry.
var ErrTokenExpired = errors.New("auth: token expired")
