package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/coreos/go-oidc/v3/oidc"
)

type ProviderKind string

const (
	ProviderOAuth ProviderKind = "oauth"
	ProviderEmail ProviderKind = "email"
)

// Email delivery methods.
const (
	EmailMethodLink = "link"
	EmailMethodCode = "code"
)

// ProviderConfig describes one login provider. It is loaded from the
// providers file; OAuth endpoints may instead come from OIDC discovery when
// Issuer is set.
type ProviderConfig struct {
	Name string       `yaml:"name"`
	Kind ProviderKind `yaml:"kind"`

	// OAuth
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthorizeURL string   `yaml:"authorize_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	Issuer       string   `yaml:"issuer"`
	Scopes       []string `yaml:"scopes"`
	PKCEMethod   string   `yaml:"pkce_method"`

	// Email. CallbackURL is the public URL magic links point at. Links are
	// never built from request headers.
	Method      string `yaml:"method"`
	CallbackURL string `yaml:"callback_url"`
}

// Discover fills empty OAuth endpoints from the issuer's OIDC discovery
// document. It is a no-op when Issuer is empty.
func (p *ProviderConfig) Discover(ctx context.Context) error {
	if p.Kind != ProviderOAuth || p.Issuer == "" {
		return nil
	}

	op, err := oidc.NewProvider(ctx, p.Issuer)
	if err != nil {
		return fmt.Errorf("provider %s: oidc discovery: %w", p.Name, err)
	}

	ep := op.Endpoint()
	if p.AuthorizeURL == "" {
		p.AuthorizeURL = ep.AuthURL
	}
	if p.TokenURL == "" {
		p.TokenURL = ep.TokenURL
	}
	if p.UserInfoURL == "" {
		p.UserInfoURL = op.UserInfoEndpoint()
	}
	if len(p.Scopes) == 0 {
		p.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}
	return nil
}

// Validate checks the provider is usable. It runs at startup so a bad
// providers file fails before the server accepts requests.
func (p *ProviderConfig) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("provider: name is required")
	}

	switch p.Kind {
	case ProviderOAuth:
		if p.ClientID == "" || p.AuthorizeURL == "" || p.TokenURL == "" || p.UserInfoURL == "" || p.RedirectURL == "" {
			return fmt.Errorf("provider %s: %w", p.Name, ErrMissingOAuthConfig)
		}
		switch p.PKCEMethod {
		case "", cryptox.PKCEMethodS256, cryptox.PKCEMethodPlain:
		default:
			return fmt.Errorf("provider %s: unsupported pkce_method %q", p.Name, p.PKCEMethod)
		}
	case ProviderEmail:
		switch p.Method {
		case "", EmailMethodLink:
			u, err := url.Parse(p.CallbackURL)
			if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("provider %s: %w", p.Name, ErrMissingCallback)
			}
		case EmailMethodCode:
		default:
			return fmt.Errorf("provider %s: unsupported method %q", p.Name, p.Method)
		}
	default:
		return fmt.Errorf("provider %s: unknown kind %q", p.Name, p.Kind)
	}
	return nil
}
