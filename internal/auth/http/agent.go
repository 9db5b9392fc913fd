package http

import (
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

// AgentSessionHandler godoc
//
//	@Summary		Agent session
//	@Description	Introspects the bearer agent token. Revoked, expired and non-agent tokens are rejected.
//	@Tags			Agent
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid agent token"
//	@Router			/v1/agent/session [get].
func AgentSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		s := domain.NewSession(httpx.TokenFromContext(r.Context()), claims, "")
		httpx.WriteJSON(w, http.StatusOK, sessionResponse(s))
	}
}
