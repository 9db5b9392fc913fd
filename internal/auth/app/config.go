package app

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/redisstore"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/joeshaw/envdecode"
)

// Token store backends.
const (
	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
)

var ErrMissingSecret = fmt.Errorf("config: AGENTAUTH_SECRET: %w", service.ErrMissingSecret)

type Config struct {
	// Secret is the master secret session and agent keys are derived from.
	Secret string `env:"AGENTAUTH_SECRET"`

	Env       string `env:"ENV,default=dev"`        // dev, staging, prod
	LogLevel  string `env:"LOG_LEVEL,default=info"`  // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT,default=json"` // json, text
	Port      int    `env:"PORT,default=8080"`

	DatabaseFile string `env:"AGENTAUTH_DATABASE_FILE,default=agentauth.db"`

	// TokenStore selects where CSRF entries, magic links, codes and
	// revocations live: memory (single process) or redis.
	TokenStore string `env:"AGENTAUTH_TOKEN_STORE,default=memory"`
	Redis      redisstore.Config

	// ProvidersFile is a YAML list of login providers. When empty a single
	// magic link provider named "email" is configured.
	ProvidersFile string `env:"AGENTAUTH_PROVIDERS_FILE"`
	// PublicURL is the externally visible base URL. Email link providers
	// without a callback_url send links to {PublicURL}/auth/{name}.
	PublicURL string `env:"AGENTAUTH_PUBLIC_URL,default=http://localhost:8080"`

	SuccessURL        string `env:"AGENTAUTH_SUCCESS_URL"`
	ErrorURL          string `env:"AGENTAUTH_ERROR_URL"`
	DelegationEnabled bool   `env:"AGENTAUTH_DELEGATION_ENABLED,default=false"`
	SessionTTL        string `env:"AGENTAUTH_SESSION_TTL,default=7d"`

	// ToolsAPIKey guards /v1/tools and /mcp. Empty rejects every call.
	ToolsAPIKey string `env:"AGENTAUTH_TOOLS_API_KEY"`

	// Shield is optional. Setting the API key routes tool calls through
	// the remote policy service first. An empty URL means the default.
	ShieldURL    string `env:"SHIELD_URL"`
	ShieldAPIKey string `env:"SHIELD_API_KEY"`

	// Per-minute request budgets. Zero keeps the built-in limits.
	RateLimitAuthRequests int `env:"RATELIMIT_AUTH_REQUESTS,default=0"`
	RateLimitAuthBurst    int `env:"RATELIMIT_AUTH_BURST,default=0"`
	RateLimitToolRequests int `env:"RATELIMIT_TOOL_REQUESTS,default=0"`
	RateLimitToolBurst    int `env:"RATELIMIT_TOOL_BURST,default=0"`

	// TrustedProxies are CIDRs or addresses, separated by ";", whose
	// X-Forwarded-For header is used for rate limiting.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD,default=10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL,default=10m"`
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail on first use.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Secret) == "" {
		return ErrMissingSecret
	}
	if len(c.Secret) < jwtx.MinSecretLength {
		return fmt.Errorf("config: AGENTAUTH_SECRET must be at least %d bytes: %w", jwtx.MinSecretLength, jwtx.ErrWeakSecret)
	}

	switch c.TokenStore {
	case TokenStoreMemory, TokenStoreRedis:
	default:
		return fmt.Errorf("config: unknown AGENTAUTH_TOKEN_STORE %q", c.TokenStore)
	}

	if _, err := jwtx.ParseTTL(c.SessionTTL); err != nil {
		return fmt.Errorf("config: AGENTAUTH_SESSION_TTL: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}
	return nil
}

// Proxies returns the parsed TrustedProxies. Validate has already
// rejected bad entries.
func (c Config) Proxies() []netip.Prefix {
	p, _ := httpx.ParseTrustedProxies(c.TrustedProxies)
	return p
}

// Secure reports whether cookies carry the Secure attribute.
func (c Config) Secure() bool { return c.Env == "prod" }

// AuthLimit is the login route budget, zero when not overridden.
func (c Config) AuthLimit() httpx.RateLimitConfig {
	return perMinute(c.RateLimitAuthRequests, c.RateLimitAuthBurst)
}

// ToolLimit is the tool route budget, zero when not overridden.
func (c Config) ToolLimit() httpx.RateLimitConfig {
	return perMinute(c.RateLimitToolRequests, c.RateLimitToolBurst)
}

func perMinute(requests, burst int) httpx.RateLimitConfig {
	if requests <= 0 {
		return httpx.RateLimitConfig{}
	}
	if burst <= 0 {
		burst = requests
	}
	return httpx.RateLimitConfig{RequestsPerWindow: requests, Window: time.Minute, Burst: burst}
}

// ShieldEnabled reports whether tool calls are gated by the policy service.
func (c Config) ShieldEnabled() bool { return c.ShieldAPIKey != "" }
