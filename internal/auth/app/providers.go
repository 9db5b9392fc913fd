package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"gopkg.in/yaml.v3"
)

// DefaultEmailProvider is used when no providers file is configured.
const DefaultEmailProvider = "email"

type providersFile struct {
	Providers []*service.ProviderConfig `yaml:"providers"`
}

// LoadProviders reads the providers file at path. ${VAR} references are
// expanded from the environment before parsing so client secrets can stay
// out of the file. OAuth providers with an issuer are completed from OIDC
// discovery, then every provider is validated.
func LoadProviders(ctx context.Context, path, publicURL string) (map[string]*service.ProviderConfig, error) {
	if path == "" {
		providers := DefaultProviders(publicURL)
		if err := providers[DefaultEmailProvider].Validate(); err != nil {
			return nil, err
		}
		return providers, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}
	return ParseProviders(ctx, []byte(os.ExpandEnv(string(raw))), publicURL)
}

// ParseProviders decodes, discovers and validates a providers document.
// Email link providers without a callback_url get one under publicURL.
func ParseProviders(ctx context.Context, doc []byte, publicURL string) (map[string]*service.ProviderConfig, error) {
	var f providersFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("providers: parse: %w", err)
	}
	if len(f.Providers) == 0 {
		return nil, fmt.Errorf("providers: no providers configured")
	}

	out := make(map[string]*service.ProviderConfig, len(f.Providers))
	for _, p := range f.Providers {
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("providers: duplicate name %q", p.Name)
		}
		if p.Kind == service.ProviderEmail && p.Method != service.EmailMethodCode && p.CallbackURL == "" {
			p.CallbackURL = authURL(publicURL, p.Name)
		}
		if err := p.Discover(ctx); err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[p.Name] = p
	}
	return out, nil
}

// DefaultProviders is a single magic link provider whose links point at
// publicURL.
func DefaultProviders(publicURL string) map[string]*service.ProviderConfig {
	return map[string]*service.ProviderConfig{
		DefaultEmailProvider: {
			Name:        DefaultEmailProvider,
			Kind:        service.ProviderEmail,
			Method:      service.EmailMethodLink,
			CallbackURL: authURL(publicURL, DefaultEmailProvider),
		},
	}
}

func authURL(publicURL, provider string) string {
	if publicURL == "" {
		return ""
	}
	return strings.TrimRight(publicURL, "/") + "/auth/" + provider
}
