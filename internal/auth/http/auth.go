package http

import (
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/elnormous/contenttype"
)

var formMediaType = contenttype.NewMediaType("application/x-www-form-urlencoded")

// AuthHandler runs the browser login flows for every configured provider.
type AuthHandler struct {
	Providers map[string]*service.ProviderConfig
	Sessions  *service.SessionManager
	Options   Options
}

// HandleGet handles provider redirects and callbacks.
//
//	@Summary		Start or complete a login
//	@Description	OAuth providers: without a code, redirects to the provider authorize URL (PKCE, CSRF state bound to a flow cookie). With code and state, completes the login and sets the session cookie.
//	@Description	Email providers: with ?token=, redeems a magic link.
//	@Tags			Auth
//	@Produce		json
//	@Param			provider	path		string	true	"Provider name"
//	@Param			code		query		string	false	"Authorization code (callback)"
//	@Param			state		query		string	false	"CSRF state (callback)"
//	@Param			token		query		string	false	"Magic link token"
//	@Success		200			{object}	authsdk.SessionResponse	"Signed in (no success URL configured)"
//	@Success		302			"Redirect to provider, success URL or error URL"
//	@Failure		400			{object}	authsdk.ErrorResponse	"Login failed (no error URL configured)"
//	@Failure		404			{object}	authsdk.ErrorResponse	"Unknown provider"
//	@Router			/auth/{provider} [get].
func (h *AuthHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r)
}

// HandlePost handles the email login form.
//
//	@Summary		Submit the email login form
//	@Description	With email, sends a magic link or a 6-digit code (202). With identifier and code, completes a code login.
//	@Tags			Auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			provider	path		string	true	"Provider name"
//	@Param			email		formData	string	false	"Email address"
//	@Param			identifier	formData	string	false	"Challenge id from the 202 response"
//	@Param			code		formData	string	false	"6-digit code"
//	@Success		200			{object}	authsdk.SessionResponse		"Signed in"
//	@Success		202			{object}	authsdk.EmailSentResponse	"Link or code sent"
//	@Failure		400			{object}	authsdk.ErrorResponse		"Login failed"
//	@Failure		415			{object}	authsdk.ErrorResponse		"Not a form"
//	@Router			/auth/{provider} [post].
func (h *AuthHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(formMediaType) {
		httpx.WriteError(w, http.StatusUnsupportedMediaType, "content-type must be application/x-www-form-urlencoded")
		return
	}
	h.authenticate(w, r)
}

func (h *AuthHandler) authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	name := r.PathValue("provider")
	p, ok := h.Providers[name]
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}

	cfg := service.AuthConfig{Provider: p, Secure: h.Options.Secure, DelegationEnabled: h.Options.DelegationEnabled}
	res := h.Sessions.Authenticate(ctx, cfg, r, nil)
	for _, c := range res.Cookies {
		http.SetCookie(w, c)
	}

	switch {
	case res.Error != nil:
		log.Info("login failed", "provider", name, "kind", res.Kind, "err", res.Error)
		if h.Options.ErrorURL != "" {
			httpx.RedirectWithError(w, r, h.Options.ErrorURL, res.Message())
			return
		}
		httpx.WriteError(w, statusFor(res.Kind), res.Message())

	case res.RedirectURL != "":
		httpx.NoCache(w)
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)

	case res.Session != nil:
		if h.Options.SuccessURL != "" {
			httpx.NoCache(w)
			http.Redirect(w, r, h.Options.SuccessURL, http.StatusFound)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, sessionResponse(res.Session))

	default:
		httpx.WriteJSON(w, http.StatusAccepted, authsdk.EmailSentResponse{Success: true, ChallengeID: res.ChallengeID})
	}
}

// statusFor maps a failure kind to a response status.
func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindInput:
		return http.StatusBadRequest
	case service.KindSecurity:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func sessionResponse(s *domain.Session) authsdk.SessionResponse {
	return authsdk.SessionResponse{
		User: authsdk.SessionUser{
			ID:      s.User.ID,
			Email:   s.User.Email,
			Name:    s.User.Name,
			Picture: s.User.Picture,
		},
		Expires: s.Expires,
		Kind:    string(s.Kind),
		Scopes:  s.Scopes,
		AgentID: s.AgentID,
	}
}
