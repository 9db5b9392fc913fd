package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
)

// AgentLoginArgs requests a delegated token for an agent acting as UserID.
type AgentLoginArgs struct {
	UserID    string   `json:"userId"`
	Scopes    []string `json:"scopes"`
	AgentID   string   `json:"agentId"`
	ExpiresIn string   `json:"expiresIn,omitempty"`
}

type AgentToken struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// DelegationService issues, introspects and revokes agent tokens. It does
// not consult the user store: callers are trusted to have authorized the
// user and scopes they delegate.
type DelegationService struct {
	Codec   *jwtx.Codec
	Revoked store.RevocationSet
}

var _ httpx.AgentVerifier = (*DelegationService)(nil)

// AgentLogin signs an agent token. ExpiresIn defaults to 15 minutes.
func (s *DelegationService) AgentLogin(ctx context.Context, args AgentLoginArgs) (AgentToken, error) {
	tok, _, err := s.issue(args)
	return tok, err
}

func (s *DelegationService) issue(args AgentLoginArgs) (AgentToken, *jwtx.Claims, error) {
	if strings.TrimSpace(args.UserID) == "" || strings.TrimSpace(args.AgentID) == "" {
		return AgentToken{}, nil, fmt.Errorf("%w: userId and agentId are required", ErrInvalidInput)
	}

	ttl := args.ExpiresIn
	if ttl == "" {
		ttl = jwtx.DefaultAgentTTL
	}
	if _, err := jwtx.ParseTTL(ttl); err != nil {
		return AgentToken{}, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	claims := jwtx.NewAgentClaims(args.UserID, args.AgentID, args.Scopes)
	token, err := s.Codec.Sign(claims, ttl)
	if err != nil {
		return AgentToken{}, nil, fmt.Errorf("sign agent token: %w", err)
	}

	// Sign stamps a copy; read the expiry back from the token itself.
	signed := jwtx.Decode(token)
	return AgentToken{Token: token, Expires: signed.Expires()}, signed, nil
}

// GetSession returns the claims of a live agent token. Revocation is checked
// first and wins over every other outcome.
func (s *DelegationService) GetSession(ctx context.Context, token string) (*jwtx.Claims, error) {
	revoked, err := s.Revoked.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	claims, err := s.Codec.Verify(token)
	if err != nil || !claims.IsAgent() {
		return nil, ErrInvalidOrExpired
	}
	return claims, nil
}

// VerifyAgent is GetSession under the name the bearer middleware expects.
func (s *DelegationService) VerifyAgent(ctx context.Context, token string) (*jwtx.Claims, error) {
	return s.GetSession(ctx, token)
}

// RevokeToken revokes a well-formed token until its own expiry. Revoking an
// already revoked token succeeds.
func (s *DelegationService) RevokeToken(ctx context.Context, token string) error {
	claims := jwtx.Decode(token)
	if claims == nil {
		return ErrInvalidToken
	}

	until := claims.Expires()
	if until.IsZero() {
		until = time.Now().Add(24 * time.Hour)
	}
	if err := s.Revoked.Revoke(ctx, token, until); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

// VerifyRequest reads the bearer token from r and returns the agent session,
// or nil when the token is absent, invalid, revoked or not an agent token.
func (s *DelegationService) VerifyRequest(ctx context.Context, r *http.Request) *domain.Session {
	token := httpx.BearerToken(r)
	if token == "" {
		return nil
	}
	claims, err := s.GetSession(ctx, token)
	if err != nil {
		return nil
	}
	return domain.NewSession(token, claims, "")
}

// VerifyAgentToken is the stateless agent check: a valid, unexpired agent
// token signed with secret. It does not see revocations.
func VerifyAgentToken(r *http.Request, secret []byte) *domain.Session {
	token := httpx.BearerToken(r)
	if token == "" {
		return nil
	}
	claims := jwtx.Verify(token, secret)
	if claims == nil || !claims.IsAgent() {
		return nil
	}
	return domain.NewSession(token, claims, "")
}

// HasAnyScope grants access when granted shares at least one scope with
// required. An empty required list grants.
func HasAnyScope(granted, required []string) bool {
	return jwtx.HasAnyScope(granted, required)
}
