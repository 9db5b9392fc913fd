package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const mcpServerName = "agentauth"

// NewMCPServer exposes the registry tools as an MCP server. Calls go
// through exec, so the policy check applies here too.
func NewMCPServer(reg *service.ToolRegistry, exec service.Executor, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: mcpServerName, Version: version}, nil)

	addMCPTool[service.AgentLoginArgs](srv, reg, exec, service.ToolAgentLogin)
	addMCPTool[service.GetSessionArgs](srv, reg, exec, service.ToolGetSession)
	addMCPTool[service.RevokeTokenArgs](srv, reg, exec, service.ToolRevokeToken)
	return srv
}

// MCPHandler serves NewMCPServer over the streamable HTTP transport.
func MCPHandler(reg *service.ToolRegistry, exec service.Executor, version string) http.Handler {
	srv := NewMCPServer(reg, exec, version)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
}

// addMCPTool registers a registry tool with the MCP server. The SDK infers
// the input schema from In and validates arguments before the handler runs.
// Out is any, so no output schema is advertised.
func addMCPTool[In any](srv *mcp.Server, reg *service.ToolRegistry, exec service.Executor, name string) {
	t, ok := reg.Lookup(name)
	if !ok {
		return
	}

	mcp.AddTool(srv, &mcp.Tool{Name: t.Name, Description: t.Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
			args, err := json.Marshal(in)
			if err != nil {
				return nil, nil, err
			}
			return mcpResult(exec.Execute(ctx, name, args)), nil, nil
		})
}

// mcpResult renders a ToolResult as one JSON text block. Failures are tool
// errors, not protocol errors, so the model can see them.
func mcpResult(res service.ToolResult) *mcp.CallToolResult {
	body, err := json.Marshal(res)
	if err != nil {
		body = []byte(`{"success":false,"error":"internal error"}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
		IsError: !res.Success,
	}
}
