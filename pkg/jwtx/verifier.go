package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the only error Verify reports. Malformed, forged and
// expired tokens are indistinguishable to callers.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// Verifier validates a token and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

var _ Verifier = (*Codec)(nil)

// Verify checks the signature (constant time) and expiry and returns the
// parsed claims.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != KindStandard && claims.Kind != KindAgent {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Verify returns the claims of a valid token signed with secret, or nil.
func Verify(token string, secret []byte) *Claims {
	c, err := NewCodec(secret)
	if err != nil {
		return nil
	}
	claims, err := c.Verify(token)
	if err != nil {
		return nil
	}
	return claims
}

// Decode parses a token WITHOUT checking its signature or expiry. The result
// is only fit for logging and introspection and must never authorize
// anything. Returns nil when the token is not a well-formed JWT.
func Decode(tokenStr string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil
	}
	return claims
}
