package domain

import (
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
)

// SessionUser is the user view carried by a Session.
type SessionUser struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Session is derived from verified claims. It is stateless: it ends at
// Expires unless a SessionRecord is deleted earlier on sign-out.
type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
	Token   string      `json:"token"`
	Kind    jwtx.Kind   `json:"kind"`
	Scopes  []string    `json:"scopes,omitempty"`
	AgentID string      `json:"agentId,omitempty"`
}

// NewSession builds a Session from verified claims and the token they came from.
func NewSession(token string, c *jwtx.Claims, picture string) *Session {
	return &Session{
		User: SessionUser{
			ID:      c.Subject,
			Email:   c.Email,
			Name:    c.Name,
			Picture: picture,
		},
		Expires: c.Expires(),
		Token:   token,
		Kind:    c.Kind,
		Scopes:  c.Scopes,
		AgentID: c.AgentID,
	}
}

// SessionRecord is the optional server-side record of an issued session,
// keyed by the token fingerprint.
type SessionRecord struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
