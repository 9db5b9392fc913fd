package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/idx"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
)

// AuthConfig selects the login provider for one Authenticate call.
type AuthConfig struct {
	Provider          *ProviderConfig
	DelegationEnabled bool

	// Secure sets the Secure attribute on every cookie (production).
	Secure bool
}

// AuthResult is the outcome of Authenticate. Exactly one of Session,
// RedirectURL or Error is set, except for a sent email, where all three are
// empty and ChallengeID may carry the 2FA handle. Cookies must be written
// to the response in every case.
type AuthResult struct {
	Session     *domain.Session
	AgentToken  *AgentToken
	Error       error
	Kind        ErrorKind
	RedirectURL string
	ChallengeID string
	Cookies     []*http.Cookie
}

// Message is the caller-safe text for Error. Security failures all read the
// same.
func (r AuthResult) Message() string {
	switch {
	case r.Error == nil:
		return ""
	case r.Kind == KindSecurity && errors.Is(r.Error, ErrInvalidCSRF):
		return ErrInvalidCSRF.Error()
	case r.Kind == KindSecurity:
		return "authentication failed"
	case r.Kind == KindUpstream:
		return "login provider unavailable"
	default:
		return r.Error.Error()
	}
}

func failed(err error, cookies ...*http.Cookie) AuthResult {
	return AuthResult{Error: err, Kind: KindOf(err), Cookies: cookies}
}

// SessionManager turns provider callbacks, magic links and 2FA codes into
// signed sessions.
type SessionManager struct {
	Codec      *jwtx.Codec
	Users      UserStore
	OAuth      *OAuthNegotiator
	MagicLinks *MagicLinkService
	Codes      *TwoFactorService
	Mailer     Mailer
	Delegation *DelegationService

	// Records is optional. When set, sessions are recorded on sign-in and
	// must still be on record to be accepted.
	Records store.Sessions

	// SessionTTL defaults to jwtx.DefaultSessionTTL.
	SessionTTL string
	Logger     *slog.Logger
}

// Authenticate runs one step of a login flow. It never panics and reports
// every expected failure through AuthResult.Error.
func (m *SessionManager) Authenticate(ctx context.Context, cfg AuthConfig, r *http.Request, delegation *AgentLoginArgs) AuthResult {
	if delegation != nil && cfg.DelegationEnabled {
		return m.agentLogin(ctx, *delegation)
	}

	p := cfg.Provider
	switch {
	case p == nil:
		return failed(ErrNoProvider)
	case r == nil:
		return failed(ErrRequestRequired)
	case p.Kind == ProviderOAuth:
		return m.authenticateOAuth(ctx, cfg, r)
	case p.Kind == ProviderEmail:
		return m.authenticateEmail(ctx, cfg, r)
	default:
		return failed(ErrNoProvider)
	}
}

func (m *SessionManager) agentLogin(ctx context.Context, args AgentLoginArgs) AuthResult {
	if m.Delegation == nil {
		return failed(ErrNoProvider)
	}
	tok, claims, err := m.Delegation.issue(args)
	if err != nil {
		return failed(err)
	}
	m.logger().InfoContext(ctx, "agent token issued", "user_id", claims.Subject, "agent_id", claims.AgentID)
	return AuthResult{Session: domain.NewSession(tok.Token, claims, ""), AgentToken: &tok}
}

func (m *SessionManager) authenticateOAuth(ctx context.Context, cfg AuthConfig, r *http.Request) AuthResult {
	q := r.URL.Query()

	if q.Get("code") == "" {
		if e := q.Get("error"); e != "" {
			err := &UpstreamError{Op: "authorize", Err: errors.New(e)}
			return failed(err, httpx.ClearFlowCookie(cfg.Secure))
		}
		if q.Get("state") != "" {
			return failed(ErrInvalidCallback, httpx.ClearFlowCookie(cfg.Secure))
		}

		flow, err := m.OAuth.Initiate(ctx, cfg.Provider)
		if err != nil {
			return failed(err)
		}
		return AuthResult{
			RedirectURL: flow.AuthorizeURL,
			Cookies:     []*http.Cookie{httpx.CreateFlowCookie(flow.FlowKey, flow.ExpiresAt, cfg.Secure)},
		}
	}

	clearFlow := httpx.ClearFlowCookie(cfg.Secure)
	flowKey := httpx.CookieValue(r, httpx.FlowCookieName)

	profile, err := m.OAuth.Callback(ctx, cfg.Provider, flowKey, q.Get("code"), q.Get("state"))
	if err != nil {
		m.logFailure(ctx, "oauth callback failed", cfg.Provider, err)
		return failed(err, clearFlow)
	}

	res := m.signIn(ctx, profile, cfg.Secure)
	res.Cookies = append(res.Cookies, clearFlow)
	return res
}

func (m *SessionManager) authenticateEmail(ctx context.Context, cfg AuthConfig, r *http.Request) AuthResult {
	if err := r.ParseForm(); err != nil {
		return failed(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	p := cfg.Provider

	if token := r.Form.Get("token"); token != "" {
		email, err := m.MagicLinks.Redeem(ctx, token)
		if err != nil {
			m.logFailure(ctx, "magic link rejected", p, err)
			return failed(err)
		}
		return m.signIn(ctx, domain.Profile{Email: email, Provider: p.Name}, cfg.Secure)
	}

	if id, code := r.Form.Get("identifier"), r.Form.Get("code"); id != "" || code != "" {
		email, err := m.Codes.Verify(ctx, id, code)
		if err != nil {
			m.logFailure(ctx, "login code rejected", p, err)
			return failed(err)
		}
		return m.signIn(ctx, domain.Profile{Email: email, Provider: p.Name}, cfg.Secure)
	}

	email := r.Form.Get("email")
	if email == "" {
		return failed(ErrEmailRequired)
	}

	if p.Method == EmailMethodCode {
		ch, err := m.Codes.Issue(ctx, email)
		if err != nil {
			return failed(err)
		}
		if err := m.Mailer.SendCode(ctx, email, ch.Code); err != nil {
			return failed(&UpstreamError{Op: "send code", Err: err})
		}
		return AuthResult{ChallengeID: ch.ID}
	}

	link, err := m.MagicLinks.Issue(ctx, email, p.CallbackURL)
	if err != nil {
		return failed(err)
	}
	if err := m.Mailer.SendMagicLink(ctx, email, link); err != nil {
		return failed(&UpstreamError{Op: "send magic link", Err: err})
	}
	return AuthResult{}
}

// signIn upserts the user and issues a standard session token and cookie.
func (m *SessionManager) signIn(ctx context.Context, p domain.Profile, secure bool) AuthResult {
	user, err := m.Users.UpsertByEmail(ctx, p)
	if err != nil {
		return failed(err)
	}

	ttl := m.SessionTTL
	if ttl == "" {
		ttl = jwtx.DefaultSessionTTL
	}
	token, err := m.Codec.Sign(jwtx.NewStandardClaims(user.ID, user.Email, user.Name), ttl)
	if err != nil {
		return failed(fmt.Errorf("sign session: %w", err))
	}
	claims := jwtx.Decode(token)

	if m.Records != nil {
		rec := domain.SessionRecord{
			ID:        idx.New().String(),
			UserID:    user.ID,
			TokenHash: cryptox.FingerprintToken(token),
			ExpiresAt: claims.Expires(),
		}
		if err := m.Records.CreateSession(ctx, rec); err != nil {
			return failed(fmt.Errorf("record session: %w", err))
		}
	}

	session := domain.NewSession(token, claims, user.Picture)
	m.logger().InfoContext(ctx, "user signed in", "user_id", user.ID, "provider", p.Provider)
	return AuthResult{
		Session: session,
		Cookies: []*http.Cookie{CreateSessionCookie(session, secure)},
	}
}

// Session returns the session of the request cookie, or nil. Unlike the
// stateless GetSession it also requires the session to still be on record
// when Records is configured.
func (m *SessionManager) Session(ctx context.Context, r *http.Request) *domain.Session {
	token := httpx.CookieValue(r, httpx.SessionCookieName)
	if token == "" {
		return nil
	}
	claims, err := m.Codec.Verify(token)
	if err != nil || claims.Kind != jwtx.KindStandard {
		return nil
	}
	if m.Records != nil {
		if _, err := m.Records.GetSessionByHash(ctx, cryptox.FingerprintToken(token)); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				m.logger().WarnContext(ctx, "session lookup failed", "err", err)
			}
			return nil
		}
	}
	return domain.NewSession(token, claims, "")
}

// SignOut deletes the session record, if any, and always returns the
// clearing cookie. Store failures are logged and otherwise ignored.
func (m *SessionManager) SignOut(ctx context.Context, r *http.Request, cfg AuthConfig) *http.Cookie {
	if token := httpx.CookieValue(r, httpx.SessionCookieName); token != "" && m.Records != nil {
		if err := m.Records.DeleteSessionByHash(ctx, cryptox.FingerprintToken(token)); err != nil {
			m.logger().WarnContext(ctx, "sign-out record delete failed", "err", err)
		}
	}
	return ClearSessionCookie(cfg.Secure)
}

func (m *SessionManager) logFailure(ctx context.Context, msg string, p *ProviderConfig, err error) {
	m.logger().WarnContext(ctx, msg, "provider", p.Name, "kind", KindOf(err), "err", err)
}

func (m *SessionManager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// GetSession verifies the session cookie of r with secret. It returns nil
// on any failure and never consults a store.
func GetSession(r *http.Request, secret []byte) *domain.Session {
	token := httpx.CookieValue(r, httpx.SessionCookieName)
	if token == "" {
		return nil
	}
	claims := jwtx.Verify(token, secret)
	if claims == nil || claims.Kind != jwtx.KindStandard {
		return nil
	}
	return domain.NewSession(token, claims, "")
}

func CreateSessionCookie(s *domain.Session, secure bool) *http.Cookie {
	return httpx.CreateSessionCookie(s.Token, s.Expires, secure)
}

func ClearSessionCookie(secure bool) *http.Cookie {
	return httpx.ClearSessionCookie(secure)
}
