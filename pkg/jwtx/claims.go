package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs, in the duration string form accepted by ParseTTL.
const (
	// DefaultSessionTTL is the lifetime of an interactive user session.
	DefaultSessionTTL = "7d"

	// DefaultAgentTTL is the lifetime of a delegated agent token.
	DefaultAgentTTL = "15m"
)

// Kind distinguishes interactive sessions from delegated agent tokens.
type Kind string

const (
	KindStandard Kind = "standard"
	KindAgent    Kind = "agent"
)

// Claims are the session and agent token claims. Once signed they are
// treated as immutable.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user, if known.
	Email string `json:"email,omitempty"`

	// Name is the display name for the user.
	Name string `json:"name,omitempty"`

	// Permission scopes, e.g. "read", "debug".
	Scopes []string `json:"scopes,omitempty"`

	// AgentID identifies the delegated agent. Only set for agent tokens.
	AgentID string `json:"agent_id,omitempty"`

	// Kind is "standard" for user sessions and "agent" for delegation.
	Kind Kind `json:"kind"`
}

// NewStandardClaims builds claims for an interactive user session.
func NewStandardClaims(subject, email, name string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Email:            email,
		Name:             name,
		Kind:             KindStandard,
	}
}

// NewAgentClaims builds claims for an agent acting on behalf of subject.
func NewAgentClaims(subject, agentID string, scopes []string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Scopes:           slices.Clone(scopes),
		AgentID:          agentID,
		Kind:             KindAgent,
	}
}

// UserID is the subject the token was issued for.
func (c *Claims) UserID() string { return c.Subject }

// IsAgent reports whether these are delegated agent claims.
func (c *Claims) IsAgent() bool { return c.Kind == KindAgent }

// Expires returns the expiry time or the zero time if none is set.
func (c *Claims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// HasAnyScope reports whether at least one of required is granted. An empty
// required list is always satisfied.
func (c *Claims) HasAnyScope(required ...string) bool {
	return HasAnyScope(c.Scopes, required)
}

// HasAnyScope implements ANY-of scope matching: access is granted iff the
// granted and required sets intersect.
func HasAnyScope(granted, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if slices.Contains(granted, want) {
			return true
		}
	}
	return false
}

// stamp sets issued-at and expiry relative to now.
func (c Claims) stamp(now time.Time, ttl time.Duration) Claims {
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return c
}
