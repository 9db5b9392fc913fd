package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/elnormous/contenttype"
)

const maxToolRequestBytes = 64 << 10

var (
	jsonMediaType  = contenttype.NewMediaType("application/json")
	jsonMediaTypes = []contenttype.MediaType{jsonMediaType}
)

// ToolsHandler serves the delegation tools over plain JSON.
type ToolsHandler struct {
	Tools    []*service.Tool
	Executor service.Executor
}

// HandleList lists the tools.
//
//	@Summary		List tools
//	@Description	Returns the delegation tools with their JSON Schema input definitions.
//	@Tags			Tools
//	@Security		APIKeyAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ToolListResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid API key"
//	@Failure		406	{object}	authsdk.ErrorResponse	"JSON not acceptable"
//	@Router			/v1/tools [get].
func (h *ToolsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(w, r) {
		return
	}

	resp := authsdk.ToolListResponse{Tools: make([]authsdk.ToolInfo, 0, len(h.Tools))}
	for _, t := range h.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			slogx.FromContext(r.Context()).Error("tool schema", "tool", t.Name, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Tools = append(resp.Tools, authsdk.ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCall runs one tool.
//
//	@Summary		Call a tool
//	@Description	Runs agent_login, get_session or revoke_token. Failures carry {"success":false,"error":...}; security failures share generic messages.
//	@Tags			Tools
//	@Security		APIKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ToolCallRequest	true	"Tool name and arguments"
//	@Success		200		{object}	authsdk.ToolCallResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Unknown tool or invalid arguments"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid API key"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Revoked, expired or invalid token, or denied by policy"
//	@Failure		415		{object}	authsdk.ErrorResponse	"Not JSON"
//	@Failure		502		{object}	authsdk.ErrorResponse	"Policy service or store unavailable"
//	@Router			/v1/tools [post].
func (h *ToolsHandler) HandleCall(w http.ResponseWriter, r *http.Request) {
	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		httpx.WriteError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}
	if !acceptsJSON(w, r) {
		return
	}

	var req authsdk.ToolCallRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxToolRequestBytes))
	if err := dec.Decode(&req); err != nil || req.Tool == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res := h.Executor.Execute(r.Context(), req.Tool, req.Args)
	if !res.Success {
		slogx.FromContext(r.Context()).Info("tool call failed", "tool", req.Tool, "kind", res.Kind, "err", res.Error)
		httpx.WriteJSON(w, statusFor(res.Kind), res)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	if _, _, err := contenttype.GetAcceptableMediaType(r, jsonMediaTypes); err != nil {
		httpx.WriteError(w, http.StatusNotAcceptable, "only application/json is available")
		return false
	}
	return true
}
