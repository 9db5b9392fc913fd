package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure at the public boundary.
type ErrorKind string

const (
	// KindInput is a malformed or missing request parameter.
	KindInput ErrorKind = "input"
	// KindSecurity covers CSRF, PKCE, signature, expiry and revocation
	// failures. They all surface with one generic message.
	KindSecurity ErrorKind = "security"
	// KindUpstream is a provider or remote service failure.
	KindUpstream ErrorKind = "upstream"
)

var (
	// Input errors.
	ErrRequestRequired = errors.New("request required")
	ErrInvalidCallback = errors.New("invalid callback")
	ErrEmailRequired   = errors.New("email required")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrNoProvider      = errors.New("no provider configured")

	// Security errors. Their messages are what callers see.
	ErrInvalidCSRF       = errors.New("Invalid CSRF token")
	ErrInvalidLink       = errors.New("invalid or expired link")
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrRevoked           = errors.New("revoked")
	ErrInvalidOrExpired  = errors.New("invalid/expired")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInsufficientScope = errors.New("insufficient scope")

	// Configuration errors, returned at setup.
	ErrMissingSecret      = errors.New("signing secret is required")
	ErrMissingOAuthConfig = errors.New("oauth provider requires client_id, redirect_url and endpoint urls")
	ErrMissingCallback    = errors.New("email link provider requires an absolute callback_url")
)

// UpstreamError is a failed call to an identity provider. Status is kept for
// logging; callers only see the operation.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed", e.Op)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// KindOf maps an error to its boundary classification. Anything that is
// not a known input or security failure is treated as upstream, which
// includes backing store outages.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCSRF),
		errors.Is(err, ErrInvalidLink),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrRevoked),
		errors.Is(err, ErrInvalidOrExpired),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInsufficientScope):
		return KindSecurity
	case errors.Is(err, ErrRequestRequired),
		errors.Is(err, ErrInvalidCallback),
		errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnknownTool),
		errors.Is(err, ErrNoProvider):
		return KindInput
	default:
		return KindUpstream
	}
}
