package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the validity window of a session token from issuance.
// There is no server-side revocation — a token stays valid until this
// window closes, and expiry is an exact cutoff (no clock-skew leeway).
const DefaultTokenTTL = time.Hour

const issuer = "account-service"

// Claims is the identity carried inside a session token. The id lives in the
// standard "sub" claim; username and email are private claims so a verified
// token is enough to identify the caller without a database lookup.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// ID returns the identity id embedded in the token's subject claim.
func (c *Claims) ID() string {
	return c.Subject
}

// TokenService issues and verifies signed session tokens.
//
// It holds the HMAC secret key used to sign and verify tokens. The secret is
// process-wide configuration loaded once at startup and passed in here —
// never a literal in the code.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and the
// default 1-hour token lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	return NewTokenServiceWithTTL(secret, DefaultTokenTTL)
}

// NewTokenServiceWithTTL creates a TokenService with a custom token lifetime.
func NewTokenServiceWithTTL(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Issue creates and signs a session token for the given identity.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs and
// verifies. The token embeds {id, username, email} plus issued-at and expiry.
func (s *TokenService) Issue(id, username, email string) (string, error) {
	return s.IssueWithTTL(id, username, email, s.ttl)
}

// IssueWithTTL creates a token with a custom expiry duration.
// Used in tests to produce already-expired or long-lived tokens.
func (s *TokenService) IssueWithTTL(id, username, email string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token string, returning the embedded claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches (prevents tokens minted by other apps with the same secret)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Callers get a single opaque failure for malformed, expired, and forged
// tokens alike — the auth gate does not distinguish them to the client.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
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
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return c, nil
}
