package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// minSecretLen is the minimum HMAC key size in bytes (256 bits).
const minSecretLen = 32

// SessionClaims is the payload carried by every session token.
type SessionClaims struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Minted is a freshly signed token together with the exact timestamps
// embedded in it, so ledger records can be stored with a matching expiry.
type Minted struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer mints and verifies compact HS256 session tokens. It is stateless
// and safe for concurrent use.
type Signer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewSigner builds a Signer around the shared secret. The secret must be at
// least 256 bits; it comes from configuration and is never logged.
func NewSigner(secret []byte, ttl time.Duration, issuer string) (*Signer, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("jwt secret too short: need at least %d bytes", minSecretLen)
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: secret, ttl: ttl, issuer: issuer}, nil
}

// TTL returns the configured token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Mint produces a signed token for the user with subject = username.
// Timestamps are truncated to whole seconds to match JWT NumericDate
// precision; the returned IssuedAt/ExpiresAt are exactly what the token
// carries. The jti claim makes two mints in the same second distinct.
func (s *Signer) Mint(userID uint, username string) (*Minted, error) {
	now := time.Now().Truncate(time.Second)
	exp := now.Add(s.ttl)

	claims := &SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Minted{Token: raw, IssuedAt: now, ExpiresAt: exp}, nil
}

// Decode parses and verifies a token, failing closed. Every failure maps to
// exactly one of ErrTokenMalformed, ErrTokenSignature or ErrTokenExpired;
// a bad signature wins over an expired payload.
func (s *Signer) Decode(raw string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Subject extracts the subject (username) from a verified token.
func (s *Signer) Subject(raw string) (string, error) {
	claims, err := s.Decode(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
