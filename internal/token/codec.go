package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trackor-auth/internal/model"
)

// Token type claims. An access token can never be redeemed where a
// refresh token is required, and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	// Email-action tokens carry their own types so a verification or
	// reset link can never double as a session credential.
	TypeVerifyEmail = "verify_email"
	TypeReset       = "password_reset"
)

// Claims is the signed payload of every token this service mints. The
// subject is the principal id; CreatedAt mirrors the account creation
// time so the principal can be reconstructed without a store lookup.
type Claims struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TokenType string    `json:"typ"`
	CreatedAt time.Time `json:"account_created_at"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() model.Principal {
	return model.Principal{
		ID:        c.Subject,
		Email:     c.Email,
		Role:      c.Role,
		CreatedAt: c.CreatedAt,
	}
}

// Codec signs and verifies compact tokens with HS256. It holds no state
// beyond its configuration and is safe for concurrent use.
type Codec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

func NewCodec(secret string, defaultTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used by tests to pin expiry.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Sign mints a token for the principal. A zero ttl falls back to the
// codec's default; callers pass an explicit ttl for remember-me sessions
// and short-lived email-action links.
func (c *Codec) Sign(principal model.Principal, tokenType string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Email:     principal.Email,
		Role:      principal.Role,
		TokenType: tokenType,
		CreatedAt: principal.CreatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify decodes and validates a token. Failures map onto the sentinel
// taxonomy so callers can tell "needs re-login" from "malformed request".
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrTokenInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, model.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, model.ErrTokenMalformed
	case err != nil:
		return nil, model.ErrTokenInvalid
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, model.ErrTokenInvalid
	}

	return claims, nil
}
