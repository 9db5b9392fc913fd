package http

import (
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

type SessionHandler struct {
	Sessions *service.SessionManager
	Secure   bool
}

// HandleGet returns the session of the session cookie.
//
//	@Summary		Current session
//	@Description	Returns the signed-in user of the session cookie. Signed-out sessions are rejected even before their token expires.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"No valid session"
//	@Router			/v1/session [get].
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s := h.Sessions.Session(r.Context(), r)
	if s == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "no session")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse(s))
}

// HandleSignOut ends the session.
//
//	@Summary		Sign out
//	@Description	Deletes the session record and clears the session cookie. Always succeeds.
//	@Tags			Session
//	@Success		204
//	@Router			/v1/signout [post].
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.Sessions.SignOut(r.Context(), r, service.AuthConfig{Secure: h.Secure}))
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
