package authsdk

import (
	"encoding/json"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

// ErrorResponse is the failure body of every JSON endpoint:
// {"success":false,"error":"..."}.
type ErrorResponse = httpx.ErrorBody

// ============================================================================
// Tool Types
// ============================================================================

// ToolInfo describes one tool. InputSchema is a JSON Schema object.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolListResponse is returned from GET /v1/tools.
type ToolListResponse struct {
	Tools []ToolInfo `json:"tools"`
}

// ToolCallRequest is the body of POST /v1/tools.
type ToolCallRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolCallResponse is the result of a tool call. Data is tool specific.
type ToolCallResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AgentLoginRequest are the agent_login arguments. ExpiresIn accepts Go
// durations plus "d" and "w" suffixes and defaults to 15m.
type AgentLoginRequest struct {
	UserID    string   `json:"userId"`
	Scopes    []string `json:"scopes"`
	AgentID   string   `json:"agentId"`
	ExpiresIn string   `json:"expiresIn,omitempty"`
}

// AgentTokenResponse is the agent_login result.
type AgentTokenResponse struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// SessionInfo is the get_session result.
type SessionInfo struct {
	UserID  string    `json:"userId"`
	Scopes  []string  `json:"scopes"`
	AgentID string    `json:"agentId"`
	Expires time.Time `json:"expires"`
}

// RevokeResponse is the revoke_token result.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// ============================================================================
// Session Types
// ============================================================================

// SessionUser is the user a session belongs to.
type SessionUser struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// EmailSentResponse is returned from POST /auth/{provider} when a magic
// link or login code was sent. ChallengeID is set for codes and must be
// submitted back as "identifier" together with the code.
type EmailSentResponse struct {
	Success     bool   `json:"success"`
	ChallengeID string `json:"challengeId,omitempty"`
}

// SessionResponse is returned from GET /v1/session and GET
// /v1/agent/session. The token itself is never echoed.
type SessionResponse struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
	Kind    string      `json:"kind"`
	Scopes  []string    `json:"scopes,omitempty"`
	AgentID string      `json:"agentId,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the readiness checks of the backing stores.
type HealthChecks struct {
	Database   string `json:"database"`
	TokenStore string `json:"token_store,omitempty"`
}
