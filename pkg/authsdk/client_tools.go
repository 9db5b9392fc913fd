package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Tool names served by agentauth.
const (
	ToolAgentLogin  = "agent_login"
	ToolGetSession  = "get_session"
	ToolRevokeToken = "revoke_token"
)

// ListTools returns the tools and their input schemas.
func (c *SDKClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	resp, err := c.doToolRequest(ctx, http.MethodGet, "/v1/tools", nil)
	if err != nil {
		return nil, err
	}

	var list ToolListResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}
	return list.Tools, nil
}

// CallTool runs the named tool with args, which must marshal to a JSON
// object. A failed tool call is returned as an *APIError.
func (c *SDKClient) CallTool(ctx context.Context, name string, args any) (*ToolCallResponse, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool args: %w", err)
	}

	resp, err := c.doToolRequest(ctx, http.MethodPost, "/v1/tools", ToolCallRequest{Tool: name, Args: raw})
	if err != nil {
		return nil, err
	}

	var result ToolCallResponse
	if err := decodeJSON(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// AgentLogin issues a delegated token for an agent.
func (c *SDKClient) AgentLogin(ctx context.Context, req AgentLoginRequest) (*AgentTokenResponse, error) {
	var out AgentTokenResponse
	if err := c.callInto(ctx, ToolAgentLogin, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession introspects an agent token.
func (c *SDKClient) GetSession(ctx context.Context, token string) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.callInto(ctx, ToolGetSession, map[string]string{"token": token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeToken revokes an agent token. Revoking twice succeeds.
func (c *SDKClient) RevokeToken(ctx context.Context, token string) error {
	var out RevokeResponse
	return c.callInto(ctx, ToolRevokeToken, map[string]string{"token": token}, &out)
}

// GetAgentSession checks an agent token the way a resource server would,
// by presenting it as a bearer token.
func (c *SDKClient) GetAgentSession(ctx context.Context, agentToken string) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/agent/session", nil, map[string]string{
		"Authorization": "Bearer " + agentToken,
	})
	if err != nil {
		return nil, err
	}

	var session SessionResponse
	if err := decodeJSON(resp, &session, http.StatusOK); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SDKClient) callInto(ctx context.Context, name string, args, out any) error {
	res, err := c.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", name, err)
	}
	return nil
}
