package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/shield"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type stubShield struct {
	resp *shield.Response
	err  error

	action   string
	payload  any
	metadata map[string]any
}

func (s *stubShield) Call(_ context.Context, action string, payload any, metadata map[string]any) (*shield.Response, error) {
	s.action, s.payload, s.metadata = action, payload, metadata
	return s.resp, s.err
}

type metricsSpy struct {
	mu      sync.Mutex
	metrics []shield.Metric
}

func (m *metricsSpy) Record(metric shield.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, metric)
}

func shielded(t *testing.T, s *stubShield) (*service.ShieldedExecutor, *metricsSpy) {
	t.Helper()
	reg, _ := newRegistry(t)
	spy := &metricsSpy{}
	return &service.ShieldedExecutor{Next: reg, Shield: s, Metrics: spy, Logger: slogx.Discard()}, spy
}

var loginArgs = json.RawMessage(`{"userId":"u1","scopes":["read"],"agentId":"a1"}`)

func TestShieldedDenied(t *testing.T) {
	s := &stubShield{resp: &shield.Response{Denied: true, Error: "agent a1 is blocked"}}
	exec, spy := shielded(t, s)

	res := exec.Execute(context.Background(), service.ToolAgentLogin, loginArgs)
	require.False(t, res.Success)
	require.Equal(t, service.KindSecurity, res.Kind)
	require.Contains(t, res.Error, "agent a1 is blocked")

	require.Equal(t, "proxy", s.action)
	require.Equal(t, "u1", s.metadata["userId"])
	require.Equal(t, "a1", s.metadata["agentId"])

	require.Len(t, spy.metrics, 1)
	m := spy.metrics[0]
	require.True(t, m.Denied)
	require.Equal(t, "agent a1 is blocked", m.DenialReason)
	require.Equal(t, service.ToolAgentLogin, m.ToolName)
	require.Equal(t, []string{"read"}, m.Scopes)
}

func TestShieldedRemoteData(t *testing.T) {
	s := &stubShield{resp: &shield.Response{Success: true, Data: json.RawMessage(`{"token":"remote"}`)}}
	exec, spy := shielded(t, s)

	res := exec.Execute(context.Background(), service.ToolAgentLogin, loginArgs)
	require.True(t, res.Success)
	require.JSONEq(t, `{"token":"remote"}`, string(res.Data.(json.RawMessage)))
	require.Equal(t, "remote", spy.metrics[0].Action)
}

func TestShieldedLocalFallthrough(t *testing.T) {
	s := &stubShield{resp: &shield.Response{Success: true, Data: json.RawMessage(`null`)}}
	exec, spy := shielded(t, s)

	res := exec.Execute(context.Background(), service.ToolAgentLogin, loginArgs)
	require.True(t, res.Success)
	require.IsType(t, service.AgentToken{}, res.Data)
	require.Equal(t, "local", spy.metrics[0].Action)
	require.False(t, spy.metrics[0].Denied)
}

func TestShieldedFailsClosed(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		exec, spy := shielded(t, &stubShield{err: errors.New("dial tcp: connection refused")})
		res := exec.Execute(context.Background(), service.ToolAgentLogin, loginArgs)
		require.False(t, res.Success)
		require.Equal(t, "policy service unavailable", res.Error)
		require.Equal(t, service.KindUpstream, res.Kind)
		require.Len(t, spy.metrics, 1)
	})

	t.Run("not successful", func(t *testing.T) {
		exec, _ := shielded(t, &stubShield{resp: &shield.Response{Error: "bad action"}})
		res := exec.Execute(context.Background(), service.ToolAgentLogin, loginArgs)
		require.False(t, res.Success)
		require.Equal(t, "bad action", res.Error)
	})
}

func TestShieldedAnnotatesFromToken(t *testing.T) {
	s := &stubShield{resp: &shield.Response{Success: true}}
	exec, spy := shielded(t, s)
	ctx := context.Background()

	res := exec.Execute(ctx, service.ToolAgentLogin, json.RawMessage(`{"userId":"u9","scopes":["debug"],"agentId":"a9"}`))
	require.True(t, res.Success)
	tok := res.Data.(service.AgentToken)

	args, _ := json.Marshal(service.GetSessionArgs{Token: tok.Token})
	res = exec.Execute(ctx, service.ToolRevokeToken, args)
	require.True(t, res.Success)

	require.Len(t, spy.metrics, 2)
	m := spy.metrics[1]
	require.Equal(t, "u9", m.UserID)
	require.Equal(t, "a9", m.AgentID)
	require.Equal(t, []string{"debug"}, m.Scopes)
}
