package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
)

const DefaultMagicLinkTTL = 15 * time.Minute

// MagicLinkService issues and redeems single-use email links. Entries are
// keyed by the token fingerprint so the raw token never sits in a store key.
type MagicLinkService struct {
	Tokens store.TokenStore
	TTL    time.Duration
}

// Issue creates a link token for email and returns callbackURL with the
// token appended as the "token" query parameter.
func (s *MagicLinkService) Issue(ctx context.Context, email, callbackURL string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(callbackURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("magic link: invalid callback url %q", callbackURL)
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("magic link: %w", err)
	}

	ttl := s.ttl()
	entry := store.Token{Secret: token, Email: email, ExpiresAt: time.Now().Add(ttl)}
	if err := s.Tokens.Create(ctx, cryptox.FingerprintToken(token), entry, ttl); err != nil {
		return "", fmt.Errorf("magic link: store token: %w", err)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Redeem consumes a link token and returns the email it was issued for.
func (s *MagicLinkService) Redeem(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidLink
	}

	entry, err := s.Tokens.Consume(ctx, cryptox.FingerprintToken(token), token)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidLink
	}
	if err != nil {
		return "", fmt.Errorf("magic link: consume: %w", err)
	}
	return entry.Email, nil
}

func (s *MagicLinkService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultMagicLinkTTL
	}
	return s.TTL
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
