package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"golang.org/x/oauth2"
)

const (
	DefaultCSRFTTL = 10 * time.Minute

	maxUserInfoBytes = 1 << 20
)

// InitiateResult is the first leg of an authorization code flow. FlowKey
// must be returned to the browser (flow cookie) and presented on callback.
type InitiateResult struct {
	AuthorizeURL string
	FlowKey      string
	State        string
	ExpiresAt    time.Time
}

// OAuthNegotiator runs the authorization code flow with PKCE against a
// third-party provider. The CSRF state and PKCE verifier never leave the
// server; only the flow key does.
type OAuthNegotiator struct {
	CSRF       store.TokenStore
	HTTPClient *http.Client
	TTL        time.Duration
}

// Initiate stores a fresh CSRF state and PKCE verifier under a new flow key
// and returns the provider authorize URL.
func (n *OAuthNegotiator) Initiate(ctx context.Context, p *ProviderConfig) (InitiateResult, error) {
	flowKey, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("oauth: flow key: %w", err)
	}
	state, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("oauth: state: %w", err)
	}
	pkce, err := cryptox.NewPKCEChallenge(p.PKCEMethod)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("oauth: %w", err)
	}

	ttl := n.ttl()
	expiresAt := time.Now().Add(ttl)
	entry := store.Token{Secret: state, Verifier: pkce.Verifier, ExpiresAt: expiresAt}
	if err := n.CSRF.Create(ctx, flowKey, entry, ttl); err != nil {
		return InitiateResult{}, fmt.Errorf("oauth: store state: %w", err)
	}

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(pkce.Verifier)}
	if pkce.Method == cryptox.PKCEMethodPlain {
		opts = []oauth2.AuthCodeOption{
			oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
			oauth2.SetAuthURLParam("code_challenge_method", cryptox.PKCEMethodPlain),
		}
	}

	return InitiateResult{
		AuthorizeURL: oauthConfig(p).AuthCodeURL(state, opts...),
		FlowKey:      flowKey,
		State:        state,
		ExpiresAt:    expiresAt,
	}, nil
}

// Callback completes the flow: consume the CSRF entry, exchange the code
// with the stored verifier and fetch the user profile.
func (n *OAuthNegotiator) Callback(ctx context.Context, p *ProviderConfig, flowKey, code, state string) (domain.Profile, error) {
	if code == "" || state == "" {
		return domain.Profile{}, ErrInvalidCallback
	}
	if flowKey == "" {
		return domain.Profile{}, ErrInvalidCSRF
	}

	entry, err := n.CSRF.Consume(ctx, flowKey, state)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Profile{}, ErrInvalidCSRF
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("oauth: consume state: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, n.client())
	tok, err := oauthConfig(p).Exchange(ctx, code, oauth2.VerifierOption(entry.Verifier))
	if err != nil {
		ue := &UpstreamError{Op: "token exchange", Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			ue.Status = re.Response.StatusCode
		}
		return domain.Profile{}, ue
	}

	raw, err := n.fetchUserInfo(ctx, p.UserInfoURL, tok.AccessToken)
	if err != nil {
		return domain.Profile{}, err
	}

	profile := normalizeProfile(raw)
	profile.Provider = p.Name
	return profile, nil
}

func (n *OAuthNegotiator) fetchUserInfo(ctx context.Context, userInfoURL, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, &UpstreamError{Op: "userinfo", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client().Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "userinfo", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, &UpstreamError{Op: "userinfo", Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: "userinfo", Status: resp.StatusCode}
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, &UpstreamError{Op: "userinfo", Status: resp.StatusCode, Err: err}
	}
	return raw, nil
}

func (n *OAuthNegotiator) client() *http.Client {
	if n.HTTPClient == nil {
		return &http.Client{Timeout: 10 * time.Second}
	}
	return n.HTTPClient
}

func (n *OAuthNegotiator) ttl() time.Duration {
	if n.TTL <= 0 {
		return DefaultCSRFTTL
	}
	return n.TTL
}

func oauthConfig(p *ProviderConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthorizeURL,
			TokenURL:  p.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// normalizeProfile maps provider specific user info fields onto Profile.
// Providers disagree on names: GitHub uses id/login/avatar_url, Facebook
// nests the picture under picture.data.url, OIDC uses sub/name/picture.
func normalizeProfile(raw map[string]any) domain.Profile {
	var p domain.Profile
	p.ID = firstString(raw, "sub", "id")
	p.Email = strings.TrimSpace(firstString(raw, "email"))
	p.Name = firstString(raw, "name", "display_name", "login")
	p.Picture = firstString(raw, "picture", "avatar_url")

	if p.Picture == "" {
		if pic, ok := raw["picture"].(map[string]any); ok {
			if data, ok := pic["data"].(map[string]any); ok {
				p.Picture = firstString(data, "url")
			}
		}
	}
	return p
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
