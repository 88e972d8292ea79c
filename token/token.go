// Package token mints and validates the signed session tokens returned by a
// successful two-factor login. Tokens are self-contained HS256 JWTs carrying
// the principal's username and role; there is no server-side session table
// and no revocation list.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jmcleod/sharedrop/identity"
)

// TTL is the fixed lifetime of a session token.
const TTL = time.Hour

// ErrUnauthenticated is returned for a missing, malformed, tampered or
// expired token.
var ErrUnauthenticated = errors.New("missing or invalid session token")

// Claims are the statements carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
	Username string        `json:"username"`
	Role     identity.Role `json:"role"`
}

// Codec signs and verifies session tokens with a process-wide secret.
// The secret lives in a memguard enclave and is only materialised for the
// duration of a mint or validate call.
type Codec struct {
	secret *memguard.Enclave
	now    func() time.Time
}

// NewCodec creates a Codec from the signing secret. The secret must not be
// empty; callers are expected to fail fast at startup when it is absent.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret must not be empty")
	}
	return &Codec{
		secret: memguard.NewEnclave(secret),
		now:    time.Now,
	}, nil
}

// Mint issues a signed token for id, valid for TTL from now.
func (c *Codec) Mint(id *identity.Identity) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
		Username: id.Username,
		Role:     id.Role,
	}

	key, err := c.secret.Open()
	if err != nil {
		return "", fmt.Errorf("opening signing secret: %w", err)
	}
	defer key.Destroy()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.Bytes())
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString, verifies its signature and expiry and returns
// the claims. Any failure maps to ErrUnauthenticated.
func (c *Codec) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	key, err := c.secret.Open()
	if err != nil {
		return nil, fmt.Errorf("opening signing secret: %w", err)
	}
	defer key.Destroy()

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return key.Bytes(), nil
		},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}
	if claims.Username == "" || !claims.Role.Valid() {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}
