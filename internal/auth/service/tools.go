package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

// Tool names.
const (
	ToolAgentLogin  = "agent_login"
	ToolGetSession  = "get_session"
	ToolRevokeToken = "revoke_token"
)

type GetSessionArgs struct {
	Token string `json:"token"`
}

// RevokeTokenArgs names the token to revoke. TokenID is accepted as an
// alias of Token for older clients.
type RevokeTokenArgs struct {
	Token   string `json:"token,omitempty"`
	TokenID string `json:"tokenId,omitempty"`
}

func (a RevokeTokenArgs) token() string {
	if a.Token != "" {
		return a.Token
	}
	return a.TokenID
}

// SessionInfo is the get_session view of agent claims.
type SessionInfo struct {
	UserID  string    `json:"userId"`
	Scopes  []string  `json:"scopes"`
	AgentID string    `json:"agentId"`
	Expires time.Time `json:"expires"`
}

type RevokeResult struct {
	Revoked bool `json:"revoked"`
}

// ToolResult is the transport-neutral outcome of a tool call. Kind is for
// the transport to pick a status code and is not serialized.
type ToolResult struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"-"`
}

func toolFailure(err error) ToolResult {
	kind := KindOf(err)
	msg := err.Error()
	if kind == KindUpstream {
		msg = "internal error"
	}
	return ToolResult{Error: msg, Kind: kind}
}

// Executor runs a named tool with raw JSON arguments.
type Executor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) ToolResult
}

// Tool describes one delegation operation.
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`

	run func(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolRegistry exposes the delegation service as named tools.
type ToolRegistry struct {
	tools  []*Tool
	byName map[string]*Tool
	Logger *slog.Logger
}

var _ Executor = (*ToolRegistry)(nil)

func NewToolRegistry(d *DelegationService, logger *slog.Logger) *ToolRegistry {
	r := &ToolRegistry{byName: map[string]*Tool{}, Logger: logger}

	addTool(r, ToolAgentLogin,
		"Issue a short-lived token that lets an agent act as a user within the given scopes.",
		func(ctx context.Context, a AgentLoginArgs) (any, error) {
			return d.AgentLogin(ctx, a)
		})

	addTool(r, ToolGetSession,
		"Introspect an agent token. Fails for revoked, expired or invalid tokens.",
		func(ctx context.Context, a GetSessionArgs) (any, error) {
			c, err := d.GetSession(ctx, a.Token)
			if err != nil {
				return nil, err
			}
			return SessionInfo{UserID: c.Subject, Scopes: c.Scopes, AgentID: c.AgentID, Expires: c.Expires()}, nil
		})

	addTool(r, ToolRevokeToken,
		"Revoke an agent token before it expires. Revoking twice succeeds.",
		func(ctx context.Context, a RevokeTokenArgs) (any, error) {
			if err := d.RevokeToken(ctx, a.token()); err != nil {
				return nil, err
			}
			return RevokeResult{Revoked: true}, nil
		})

	return r
}

func addTool[A any](r *ToolRegistry, name, description string, fn func(context.Context, A) (any, error)) {
	reflector := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}

	t := &Tool{
		Name:        name,
		Description: description,
		InputSchema: reflector.Reflect(new(A)),
		run: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args A
			if len(bytes.TrimSpace(raw)) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
				}
			}
			return fn(ctx, args)
		},
	}
	r.tools = append(r.tools, t)
	r.byName[name] = t
}

// Tools lists the registered tools in registration order.
func (r *ToolRegistry) Tools() []*Tool {
	return r.tools
}

func (r *ToolRegistry) Lookup(name string) (*Tool, bool) {
	t, ok := r.byName[strings.TrimSpace(name)]
	return t, ok
}

// Execute runs the named tool. Failures come back in the result, never as
// a panic or Go error.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args json.RawMessage) ToolResult {
	t, ok := r.Lookup(name)
	if !ok {
		return toolFailure(ErrUnknownTool)
	}

	data, err := t.run(ctx, args)
	if err != nil {
		if KindOf(err) == KindUpstream {
			r.logger().ErrorContext(ctx, "tool failed", "tool", name, "err", err)
		}
		return toolFailure(err)
	}
	return ToolResult{Success: true, Data: data}
}

func (r *ToolRegistry) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
