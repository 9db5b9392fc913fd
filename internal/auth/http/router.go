package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"

	_ "github.com/aussiebroadwan/agentauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options are the web flow settings shared by the auth handlers.
type Options struct {
	// Secure sets the Secure attribute on cookies (prod).
	Secure bool

	// SuccessURL receives the browser after a completed login. When empty
	// the session is returned as JSON.
	SuccessURL string

	// ErrorURL receives the browser with ?error=<message> on failure. When
	// empty failures are returned as JSON.
	ErrorURL string

	// ToolsAPIKey guards /v1/tools and /mcp. Empty disables both.
	ToolsAPIKey string

	// DelegationEnabled lets Authenticate short-circuit to agent login.
	DelegationEnabled bool

	// AuthLimit and ToolLimit override httpx.AuthLimit and httpx.ToolLimit
	// when non-zero.
	AuthLimit httpx.RateLimitConfig
	ToolLimit httpx.RateLimitConfig

	// TrustedProxies may set X-Forwarded-For. Other peers are keyed by
	// their own address.
	TrustedProxies []netip.Prefix
}

func (o Options) authLimit() httpx.RateLimitConfig {
	limit := httpx.AuthLimit
	if o.AuthLimit.RequestsPerWindow > 0 {
		limit = o.AuthLimit
	}
	limit.TrustedProxies = o.TrustedProxies
	return limit
}

func (o Options) toolLimit() httpx.RateLimitConfig {
	limit := httpx.ToolLimit
	if o.ToolLimit.RequestsPerWindow > 0 {
		limit = o.ToolLimit
	}
	limit.TrustedProxies = o.TrustedProxies
	return limit
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	opts         Options
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store      store.Store
	TokenStore Pinger // optional, the remote token store

	Providers  map[string]*service.ProviderConfig
	Sessions   *service.SessionManager
	Delegation *service.DelegationService
	Registry   *service.ToolRegistry
	Tools      service.Executor // Registry, possibly shielded
}

func NewRouter(opts Options, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		opts:         opts,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSession()
	r.registerAgent()
	r.registerTools()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			agentauth API
//	@version		0.1.0
//	@description	Sign-in for people (OAuth2 with PKCE, magic links, email codes) and short-lived delegated tokens for agents acting on their behalf.
//	@description
//	@description				Session and agent tokens are HS256 JWTs signed with separate keys derived from one master secret.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/agentauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Agent token. Format: "Bearer {token}".
//
//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				Tool API key.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Providers: r.Providers,
		Sessions:  r.Sessions,
		Options:   r.opts,
	}

	// Code submissions are also limited per challenge, from any address.
	codes := httpx.RateLimitByField(r.opts.authLimit(), "identifier")

	// GET /auth/{provider} - initiate, OAuth callback, magic link landing
	r.Mux.Handle("GET /auth/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(r.opts.authLimit()),
			codes,
		),
	)

	// POST /auth/{provider} - email form. Limited by IP + email so one
	// address cannot be flooded with links.
	r.Mux.Handle("POST /auth/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandlePost),
			httpx.RateLimitByIPAndField(r.opts.authLimit(), "email"),
			codes,
		),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{Sessions: r.Sessions, Secure: r.opts.Secure}

	r.Mux.Handle("GET /v1/session", http.HandlerFunc(h.HandleGet))
	r.Mux.Handle("POST /v1/signout",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			httpx.RateLimitByIP(r.opts.authLimit()),
		),
	)
}

func (r *Router) registerAgent() {
	// GET /v1/agent/session - agent bearer introspection, revocation aware
	r.Mux.Handle("GET /v1/agent/session",
		httpx.Chain(AgentSessionHandler(),
			httpx.AgentAuthnMiddleware(r.Delegation),
			httpx.RateLimitByAgent(r.opts.toolLimit()),
		),
	)
}

func (r *Router) registerTools() {
	h := &ToolsHandler{Tools: r.Registry.Tools(), Executor: r.Tools}
	guard := httpx.RequireAPIKey(r.opts.ToolsAPIKey)

	r.Mux.Handle("GET /v1/tools",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.RateLimitByIP(r.opts.toolLimit()),
			guard,
		),
	)
	r.Mux.Handle("POST /v1/tools",
		httpx.Chain(http.HandlerFunc(h.HandleCall),
			httpx.RateLimitByIP(r.opts.toolLimit()),
			guard,
		),
	)

	// MCP streamable HTTP transport over the same executor
	r.Mux.Handle("/mcp",
		httpx.Chain(MCPHandler(r.Registry, r.Tools, r.buildVersion),
			httpx.RateLimitByIP(r.opts.toolLimit()),
			guard,
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.TokenStore))
}
