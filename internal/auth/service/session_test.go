package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// initiate runs the first OAuth leg and returns the authorize URL query and
// the flow cookie.
func initiate(t *testing.T, f *fixture, cfg service.AuthConfig) (url.Values, *http.Cookie) {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/auth/github", nil)
	res := f.manager.Authenticate(context.Background(), cfg, r, nil)
	require.NoError(t, res.Error)
	require.Nil(t, res.Session)
	require.NotEmpty(t, res.RedirectURL)

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	flow := cookieNamed(res.Cookies, httpx.FlowCookieName)
	require.NotNil(t, flow)
	return u.Query(), flow
}

func callback(f *fixture, cfg service.AuthConfig, flow *http.Cookie, code, state string) service.AuthResult {
	q := url.Values{"code": {code}, "state": {state}}
	r := httptest.NewRequest(http.MethodGet, "/auth/github?"+q.Encode(), nil)
	if flow != nil {
		r.AddCookie(flow)
	}
	return f.manager.Authenticate(context.Background(), cfg, r, nil)
}

func TestOAuthInitiate(t *testing.T) {
	f := newFixture(t)
	p := newFakeProvider(t)
	cfg := service.AuthConfig{Provider: p.config()}

	q, flow := initiate(t, f, cfg)

	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "client-1", q.Get("client_id"))
	require.Equal(t, "https://app.example.com/auth/github", q.Get("redirect_uri"))
	require.Equal(t, "read:user user:email", q.Get("scope"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.NotEmpty(t, q.Get("state"))
	require.Empty(t, q.Get("code_verifier"))

	require.True(t, flow.HttpOnly)
	require.Equal(t, 1, f.csrf.Len())

	// The stored state matches the URL and its verifier produces the challenge.
	entry, err := f.csrf.Consume(context.Background(), flow.Value, q.Get("state"))
	require.NoError(t, err)
	require.True(t, cryptox.VerifyPKCE(q.Get("code_challenge"), "S256", entry.Verifier))
}

func TestOAuthInitiatePlain(t *testing.T) {
	f := newFixture(t)
	p := newFakeProvider(t)
	pc := p.config()
	pc.PKCEMethod = cryptox.PKCEMethodPlain

	q, flow := initiate(t, f, service.AuthConfig{Provider: pc})
	require.Equal(t, "plain", q.Get("code_challenge_method"))

	entry, err := f.csrf.Consume(context.Background(), flow.Value, q.Get("state"))
	require.NoError(t, err)
	require.Equal(t, entry.Verifier, q.Get("code_challenge"))
}

func TestOAuthCallback(t *testing.T) {
	f := newFixture(t)
	p := newFakeProvider(t)
	cfg := service.AuthConfig{Provider: p.config(), Secure: true}

	q, flow := initiate(t, f, cfg)
	code := p.issueCode(q.Get("code_challenge"), q.Get("code_challenge_method"))

	res := callback(f, cfg, flow, code, q.Get("state"))
	require.NoError(t, res.Error)
	require.NotNil(t, res.Session)
	require.Equal(t, "octo@example.com", res.Session.User.Email)
	require.Equal(t, "octo", res.Session.User.Name)
	require.Equal(t, "https://example.com/octo.png", res.Session.User.Picture)
	require.Equal(t, jwtx.KindStandard, res.Session.Kind)

	sc := cookieNamed(res.Cookies, httpx.SessionCookieName)
	require.NotNil(t, sc)
	require.True(t, sc.Secure)
	require.Equal(t, res.Session.Token, sc.Value)
	require.Equal(t, -1, cookieNamed(res.Cookies, httpx.FlowCookieName).MaxAge)

	t.Run("session cookie verifies", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		r.AddCookie(sc)
		require.NotNil(t, service.GetSession(r, sessionSecret))
		require.NotNil(t, f.manager.Session(context.Background(), r))
		require.Nil(t, service.GetSession(r, agentSecret))
	})

	t.Run("state cannot be replayed", func(t *testing.T) {
		code := p.issueCode(q.Get("code_challenge"), q.Get("code_challenge_method"))
		res := callback(f, cfg, flow, code, q.Get("state"))
		require.ErrorIs(t, res.Error, service.ErrInvalidCSRF)
		require.Equal(t, "Invalid CSRF token", res.Message())
	})
}

func TestOAuthPKCEBinding(t *testing.T) {
	f := newFixture(t)
	p := newFakeProvider(t)
	cfg := service.AuthConfig{Provider: p.config()}

	qa, _ := initiate(t, f, cfg)
	qb, flowB := initiate(t, f, cfg)

	// A code issued for flow A's challenge, redeemed through flow B, is
	// exchanged with B's verifier and must fail.
	code := p.issueCode(qa.Get("code_challenge"), "S256")
	res := callback(f, cfg, flowB, code, qb.Get("state"))

	require.Nil(t, res.Session)
	var ue *service.UpstreamError
	require.ErrorAs(t, res.Error, &ue)
	require.Equal(t, http.StatusBadRequest, ue.Status)
	require.Equal(t, service.KindUpstream, res.Kind)
}

func TestOAuthCallbackFailures(t *testing.T) {
	f := newFixture(t)
	p := newFakeProvider(t)
	cfg := service.AuthConfig{Provider: p.config()}

	t.Run("wrong state", func(t *testing.T) {
		q, flow := initiate(t, f, cfg)
		code := p.issueCode(q.Get("code_challenge"), "S256")
		res := callback(f, cfg, flow, code, "forged")
		require.ErrorIs(t, res.Error, service.ErrInvalidCSRF)
		require.Equal(t, service.KindSecurity, res.Kind)
	})

	t.Run("missing flow cookie", func(t *testing.T) {
		q, _ := initiate(t, f, cfg)
		res := callback(f, cfg, nil, "code", q.Get("state"))
		require.ErrorIs(t, res.Error, service.ErrInvalidCSRF)
	})

	t.Run("state without code", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/github?state=abc", nil)
		res := f.manager.Authenticate(context.Background(), cfg, r, nil)
		require.ErrorIs(t, res.Error, service.ErrInvalidCallback)
		require.Equal(t, "invalid callback", res.Message())
	})

	t.Run("code without state", func(t *testing.T) {
		_, flow := initiate(t, f, cfg)
		res := callback(f, cfg, flow, "code", "")
		require.ErrorIs(t, res.Error, service.ErrInvalidCallback)
	})

	t.Run("provider error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/github?error=access_denied", nil)
		res := f.manager.Authenticate(context.Background(), cfg, r, nil)
		require.Equal(t, service.KindUpstream, res.Kind)
	})

	t.Run("userinfo failure", func(t *testing.T) {
		pc := p.config()
		pc.UserInfoURL = p.srv.URL + "/missing"
		cfg := service.AuthConfig{Provider: pc}

		q, flow := initiate(t, f, cfg)
		code := p.issueCode(q.Get("code_challenge"), "S256")
		res := callback(f, cfg, flow, code, q.Get("state"))

		var ue *service.UpstreamError
		require.ErrorAs(t, res.Error, &ue)
		require.Equal(t, "userinfo", ue.Op)
		require.Equal(t, http.StatusNotFound, ue.Status)
	})
}

func TestAuthenticateBranches(t *testing.T) {
	f := newFixture(t)
	p := newFakeProvider(t)

	t.Run("request required", func(t *testing.T) {
		res := f.manager.Authenticate(context.Background(), service.AuthConfig{Provider: p.config()}, nil, nil)
		require.ErrorIs(t, res.Error, service.ErrRequestRequired)
		require.Equal(t, "request required", res.Message())
		require.Equal(t, service.KindInput, res.Kind)
	})

	t.Run("delegation bypasses the request", func(t *testing.T) {
		cfg := service.AuthConfig{Provider: p.config(), DelegationEnabled: true}
		args := &service.AgentLoginArgs{UserID: "u1", Scopes: []string{"read"}, AgentID: "a1"}

		res := f.manager.Authenticate(context.Background(), cfg, nil, args)
		require.NoError(t, res.Error)
		require.Equal(t, jwtx.KindAgent, res.Session.Kind)
		require.Equal(t, "a1", res.Session.AgentID)
		require.Equal(t, res.Session.Token, res.AgentToken.Token)
		require.Empty(t, res.Cookies)
	})

	t.Run("delegation disabled falls through", func(t *testing.T) {
		cfg := service.AuthConfig{Provider: p.config()}
		args := &service.AgentLoginArgs{UserID: "u1", AgentID: "a1"}
		res := f.manager.Authenticate(context.Background(), cfg, nil, args)
		require.ErrorIs(t, res.Error, service.ErrRequestRequired)
	})

	t.Run("no provider", func(t *testing.T) {
		res := f.manager.Authenticate(context.Background(), service.AuthConfig{}, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		require.ErrorIs(t, res.Error, service.ErrNoProvider)
	})
}

func emailConfig(method string) service.AuthConfig {
	return service.AuthConfig{Provider: &service.ProviderConfig{
		Name:        "email",
		Kind:        service.ProviderEmail,
		Method:      method,
		CallbackURL: "https://app.example.com/auth/email",
	}}
}

func postForm(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/auth/email", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestMagicLinkFlow(t *testing.T) {
	f := newFixture(t)
	cfg := emailConfig(service.EmailMethodLink)
	ctx := context.Background()

	res := f.manager.Authenticate(ctx, cfg, postForm(url.Values{"email": {"Ada@Example.com"}}), nil)
	require.NoError(t, res.Error)
	require.Nil(t, res.Session, "link sent, not yet authenticated")
	require.Len(t, f.mailer.links, 1)

	link, err := url.Parse(f.mailer.links[0])
	require.NoError(t, err)
	require.Equal(t, "app.example.com", link.Host)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	r := httptest.NewRequest(http.MethodGet, "/auth/email?token="+url.QueryEscape(token), nil)
	res = f.manager.Authenticate(ctx, cfg, r, nil)
	require.NoError(t, res.Error)
	require.Equal(t, "ada@example.com", res.Session.User.Email)

	// Single use
	r = httptest.NewRequest(http.MethodGet, "/auth/email?token="+url.QueryEscape(token), nil)
	res = f.manager.Authenticate(ctx, cfg, r, nil)
	require.ErrorIs(t, res.Error, service.ErrInvalidLink)
	require.Equal(t, "authentication failed", res.Message())
}

func TestMagicLinkUsesConfiguredCallback(t *testing.T) {
	f := newFixture(t)

	r := postForm(url.Values{"email": {"victim@example.com"}})
	r.Host = "attacker.example"
	r.Header.Set("X-Forwarded-Proto", "https")

	res := f.manager.Authenticate(context.Background(), emailConfig(service.EmailMethodLink), r, nil)
	require.NoError(t, res.Error)
	require.Len(t, f.mailer.links, 1)

	link, err := url.Parse(f.mailer.links[0])
	require.NoError(t, err)
	require.Equal(t, "app.example.com", link.Host)
	require.Equal(t, "/auth/email", link.Path)
}

func TestEmailRequired(t *testing.T) {
	f := newFixture(t)
	res := f.manager.Authenticate(context.Background(), emailConfig(""), postForm(url.Values{}), nil)
	require.ErrorIs(t, res.Error, service.ErrEmailRequired)
	require.Equal(t, "email required", res.Message())

	res = f.manager.Authenticate(context.Background(), emailConfig(""), postForm(url.Values{"email": {"nope"}}), nil)
	require.ErrorIs(t, res.Error, service.ErrInvalidEmail)
}

func TestTwoFactorFlow(t *testing.T) {
	f := newFixture(t)
	cfg := emailConfig(service.EmailMethodCode)
	ctx := context.Background()

	res := f.manager.Authenticate(ctx, cfg, postForm(url.Values{"email": {"bob@example.com"}}), nil)
	require.NoError(t, res.Error)
	require.NotEmpty(t, res.ChallengeID)
	require.Len(t, f.mailer.codes, 1)
	code := f.mailer.codes[0]
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	// A wrong code does not burn the challenge.
	res = f.manager.Authenticate(ctx, cfg, postForm(url.Values{"identifier": {res.ChallengeID}, "code": {wrong}}), nil)
	require.ErrorIs(t, res.Error, service.ErrInvalidCode)

	id := f.manager.Authenticate(ctx, cfg, postForm(url.Values{"email": {"bob@example.com"}}), nil).ChallengeID
	code = f.mailer.codes[1]

	res = f.manager.Authenticate(ctx, cfg, postForm(url.Values{"identifier": {id}, "code": {code}}), nil)
	require.NoError(t, res.Error)
	require.Equal(t, "bob@example.com", res.Session.User.Email)

	res = f.manager.Authenticate(ctx, cfg, postForm(url.Values{"identifier": {id}, "code": {code}}), nil)
	require.ErrorIs(t, res.Error, service.ErrInvalidCode)
}

func TestTwoFactorWrongCodeKeepsChallenge(t *testing.T) {
	f := newFixture(t)
	cfg := emailConfig(service.EmailMethodCode)
	ctx := context.Background()

	id := f.manager.Authenticate(ctx, cfg, postForm(url.Values{"email": {"eve@example.com"}}), nil).ChallengeID
	code := f.mailer.codes[0]
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	res := f.manager.Authenticate(ctx, cfg, postForm(url.Values{"identifier": {id}, "code": {wrong}}), nil)
	require.ErrorIs(t, res.Error, service.ErrInvalidCode)

	res = f.manager.Authenticate(ctx, cfg, postForm(url.Values{"identifier": {id}, "code": {code}}), nil)
	require.NoError(t, res.Error)
	require.NotNil(t, res.Session)
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := emailConfig(service.EmailMethodCode)

	id := f.manager.Authenticate(ctx, cfg, postForm(url.Values{"email": {"ada@example.com"}}), nil).ChallengeID
	res := f.manager.Authenticate(ctx, cfg, postForm(url.Values{"identifier": {id}, "code": {f.mailer.codes[0]}}), nil)
	require.NoError(t, res.Error)
	sc := cookieNamed(res.Cookies, httpx.SessionCookieName)

	r := httptest.NewRequest(http.MethodPost, "/v1/signout", nil)
	r.AddCookie(sc)
	require.NotNil(t, f.manager.Session(ctx, r))

	cleared := f.manager.SignOut(ctx, r, cfg)
	require.Equal(t, httpx.SessionCookieName, cleared.Name)
	require.Contains(t, cleared.String(), "Max-Age=0")

	// The token still verifies statelessly but is no longer on record.
	require.NotNil(t, service.GetSession(r, sessionSecret))
	require.Nil(t, f.manager.Session(ctx, r))

	// Signing out without a cookie still clears.
	anon := httptest.NewRequest(http.MethodPost, "/v1/signout", nil)
	require.NotNil(t, f.manager.SignOut(ctx, anon, cfg))
}
