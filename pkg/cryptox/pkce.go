package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

// PKCE challenge methods (RFC 7636).
const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// PKCEChallenge holds the PKCE verifier and challenge pair.
// The verifier stays with the initiating party; only the challenge is sent
// to the authorization endpoint.
type PKCEChallenge struct {
	// Verifier is 32 random bytes, base64url encoded.
	Verifier string

	// Challenge is the verifier itself for "plain", BASE64URL(SHA256(verifier)) for "S256".
	Challenge string

	// Method is "S256" or "plain".
	Method string
}

// NewPKCEChallenge creates a verifier/challenge pair. An empty method
// defaults to S256.
func NewPKCEChallenge(method string) (*PKCEChallenge, error) {
	if method == "" {
		method = PKCEMethodS256
	}
	if method != PKCEMethodS256 && method != PKCEMethodPlain {
		return nil, fmt.Errorf("cryptox: unsupported PKCE method %q", method)
	}

	verifier, err := GenerateToken(TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: PKCEChallengeFor(method, verifier),
		Method:    method,
	}, nil
}

// PKCEChallengeFor derives the challenge that verifier produces under method.
func PKCEChallengeFor(method, verifier string) string {
	if method == PKCEMethodPlain {
		return verifier
	}
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE reports whether verifier produces challenge under method.
// Comparison is constant time.
func VerifyPKCE(challenge, method, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	verifier = strings.TrimSpace(verifier)
	if challenge == "" || verifier == "" {
		return false
	}

	switch {
	case strings.EqualFold(method, PKCEMethodPlain):
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) == 1
	case method == "" || strings.EqualFold(method, PKCEMethodS256):
		expected := PKCEChallengeFor(PKCEMethodS256, verifier)
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
	default:
		return false
	}
}
