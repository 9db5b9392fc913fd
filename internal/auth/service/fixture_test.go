package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

var (
	sessionSecret = []byte("session-secret-session-secret-32")
	agentSecret   = []byte("agent-secret-agent-secret-agent!")
)

// fakeProvider is a minimal OAuth provider. Codes are bound to the PKCE
// challenge they were issued for and the token endpoint enforces it.
type fakeProvider struct {
	srv *httptest.Server

	mu    sync.Mutex
	codes map[string]grant

	userInfo map[string]any
}

type grant struct {
	challenge, method string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		codes: map[string]grant{},
		userInfo: map[string]any{
			"id":         12345,
			"login":      "octo",
			"email":      "octo@example.com",
			"avatar_url": "https://example.com/octo.png",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", p.token)
	mux.HandleFunc("GET /userinfo", p.info)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

// issueCode plays the authorize endpoint: the user consented and the
// provider redirects back with a code bound to challenge.
func (p *fakeProvider) issueCode(challenge, method string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	code := fmt.Sprintf("code-%d", len(p.codes)+1)
	p.codes[code] = grant{challenge: challenge, method: method}
	return code
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	p.mu.Lock()
	g, ok := p.codes[r.PostForm.Get("code")]
	delete(p.codes, r.PostForm.Get("code"))
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok || r.PostForm.Get("client_id") != "client-1" ||
		!cryptox.VerifyPKCE(g.challenge, g.method, r.PostForm.Get("code_verifier")) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
}

func (p *fakeProvider) info(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer at-1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p.userInfo)
}

func (p *fakeProvider) config() *service.ProviderConfig {
	return &service.ProviderConfig{
		Name:         "github",
		Kind:         service.ProviderOAuth,
		ClientID:     "client-1",
		ClientSecret: "shh",
		RedirectURL:  "https://app.example.com/auth/github",
		AuthorizeURL: p.srv.URL + "/authorize",
		TokenURL:     p.srv.URL + "/token",
		UserInfoURL:  p.srv.URL + "/userinfo",
		Scopes:       []string{"read:user", "user:email"},
	}
}

// recordingMailer captures what would have been sent.
type recordingMailer struct {
	mu    sync.Mutex
	links []string
	codes []string
}

func (m *recordingMailer) SendMagicLink(_ context.Context, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *recordingMailer) SendCode(_ context.Context, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, code)
	return nil
}

type fixture struct {
	manager    *service.SessionManager
	delegation *service.DelegationService
	users      *service.UserService
	store      *sqlite.Store
	csrf       *memory.TokenStore
	mailer     *recordingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db") + "?_busy_timeout=5000&_time_format=sqlite"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	f := &fixture{
		store:  st,
		users:  &service.UserService{Store: st},
		csrf:   memory.NewTokenStore(),
		mailer: &recordingMailer{},
		delegation: &service.DelegationService{
			Codec:   jwtx.MustCodec(agentSecret),
			Revoked: memory.NewRevocationSet(),
		},
	}

	f.manager = &service.SessionManager{
		Codec:      jwtx.MustCodec(sessionSecret),
		Users:      f.users,
		OAuth:      &service.OAuthNegotiator{CSRF: f.csrf},
		MagicLinks: &service.MagicLinkService{Tokens: memory.NewTokenStore()},
		Codes:      &service.TwoFactorService{Tokens: memory.NewTokenStore()},
		Mailer:     f.mailer,
		Delegation: f.delegation,
		Records:    st.Sessions(),
		Logger:     slogx.Discard(),
	}
	return f
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
