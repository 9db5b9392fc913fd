package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
)

// AgentVerifier resolves a raw bearer token to live agent claims. It must
// reject revoked and non-agent tokens.
type AgentVerifier interface {
	VerifyAgent(ctx context.Context, token string) (*jwtx.Claims, error)
}

// AgentAuthnMiddleware requires a valid agent bearer token and stores its
// claims in the request context.
func AgentAuthnMiddleware(v AgentVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := BearerToken(r)
			if raw == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.VerifyAgent(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("agent token rejected", "err", err)
				writeBearerError(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAgent(ctx, raw, claims)))
		})
	}
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, desc)
}
