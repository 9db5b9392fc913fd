package httpx

import (
	"context"

	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID  ctxKey = "user_id"
	CtxKeyAgentID ctxKey = "agent_id"
	CtxKeyScopes  ctxKey = "scopes"
	CtxKeyToken   ctxKey = "token"
	CtxKeyClaims  ctxKey = "claims"
)

// ContextWithAgent stores verified agent claims and the raw token.
func ContextWithAgent(ctx context.Context, token string, c *jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyAgentID, c.AgentID)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes)
	ctx = context.WithValue(ctx, CtxKeyToken, token)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// ClaimsFromContext returns the claims stored by AgentAuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok
}

// TokenFromContext returns the raw bearer token stored by AgentAuthnMiddleware.
func TokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeyToken).(string)
	return s
}
