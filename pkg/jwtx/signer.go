package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted by NewCodec.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("jwtx: signing secret must be at least 32 bytes")

// Codec signs and verifies HS256 tokens with a shared secret.
type Codec struct {
	secret []byte

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewCodec returns a codec for the given secret. Short secrets are a
// configuration error and are rejected up front.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &Codec{secret: secret}, nil
}

// MustCodec is like NewCodec but panics on error.
// Use this only during initialization.
func MustCodec(secret []byte) *Codec {
	c, err := NewCodec(secret)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Sign stamps the claims with issued-at and an expiry ttl from now and
// returns the signed compact token.
func (c *Codec) Sign(claims Claims, ttl string) (string, error) {
	d, err := ParseTTL(ttl)
	if err != nil {
		return "", err
	}
	return c.SignFor(claims, d)
}

// SignFor is Sign with an already parsed lifetime.
func (c *Codec) SignFor(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("jwtx: ttl must be positive, got %s", ttl)
	}
	if claims.Kind == "" {
		claims.Kind = KindStandard
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims.stamp(c.now().UTC(), ttl))
	s, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// Sign signs claims with secret and a ttl such as "15m" or "7d".
func Sign(claims Claims, secret []byte, ttl string) (string, error) {
	c, err := NewCodec(secret)
	if err != nil {
		return "", err
	}
	return c.Sign(claims, ttl)
}
