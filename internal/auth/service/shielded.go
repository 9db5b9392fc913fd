package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/shield"
)

const shieldProxyAction = "proxy"

// Shield is the remote policy call the decorator needs.
type Shield interface {
	Call(ctx context.Context, action string, payload any, metadata map[string]any) (*shield.Response, error)
}

// MetricsRecorder receives one metric per tool call.
type MetricsRecorder interface {
	Record(m shield.Metric)
}

// ShieldedExecutor asks the remote policy service before running a tool.
// A denial or an unreachable service fails the call. An approval that
// carries data is the result; an approval without data runs the local
// tool.
type ShieldedExecutor struct {
	Next    Executor
	Shield  Shield
	Metrics MetricsRecorder
	Logger  *slog.Logger
}

var _ Executor = (*ShieldedExecutor)(nil)

type proxyPayload struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

func (s *ShieldedExecutor) Execute(ctx context.Context, name string, args json.RawMessage) ToolResult {
	start := time.Now()
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	m := shield.Metric{Timestamp: start.UTC(), ToolName: name, Action: shieldProxyAction}
	annotate(&m, args)

	res := s.execute(ctx, name, args, &m)

	m.DurationMs = time.Since(start).Milliseconds()
	if s.Metrics != nil {
		s.Metrics.Record(m)
	}
	return res
}

func (s *ShieldedExecutor) execute(ctx context.Context, name string, args json.RawMessage, m *shield.Metric) ToolResult {
	resp, err := s.Shield.Call(ctx, shieldProxyAction, proxyPayload{Tool: name, Args: args}, map[string]any{
		"userId":  m.UserID,
		"agentId": m.AgentID,
	})
	if err != nil {
		s.logger().ErrorContext(ctx, "shield call failed", "tool", name, "err", err)
		return ToolResult{Error: "policy service unavailable", Kind: KindUpstream}
	}

	if resp.Denied {
		m.Denied, m.DenialReason = true, resp.Error
		s.logger().WarnContext(ctx, "tool call denied", "tool", name, "reason", resp.Error)
		return ToolResult{Error: fmt.Errorf("%w: %s", shield.ErrDenied, resp.Error).Error(), Kind: KindSecurity}
	}
	if !resp.Success {
		return ToolResult{Error: resp.Error, Kind: KindUpstream}
	}

	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		m.Action = "remote"
		return ToolResult{Success: true, Data: resp.Data}
	}

	m.Action = "local"
	return s.Next.Execute(ctx, name, args)
}

// annotate fills the identity fields of m from the call arguments. Tokens
// are decoded without verification; the values are only logged.
func annotate(m *shield.Metric, args json.RawMessage) {
	var a struct {
		AgentLoginArgs
		RevokeTokenArgs
	}
	if json.Unmarshal(args, &a) != nil {
		return
	}

	m.UserID, m.AgentID, m.Scopes = a.UserID, a.AgentID, a.Scopes
	if c := jwtx.Decode(a.RevokeTokenArgs.token()); c != nil {
		m.UserID, m.AgentID, m.Scopes = c.Subject, c.AgentID, c.Scopes
	}
}

func (s *ShieldedExecutor) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
