package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	DefaultCodeTTL = 10 * time.Minute

	// DefaultCodeAttempts is how many wrong codes a challenge survives.
	DefaultCodeAttempts = 5
)

// Challenge is an issued 2FA code. ID is the unguessable handle the client
// submits back alongside the code; Code is only ever sent to the user.
type Challenge struct {
	ID        string
	Code      string
	ExpiresAt time.Time
}

// TwoFactorService issues 6-digit email codes. Each code comes from HOTP
// over a fresh one-shot secret, so codes are independent per challenge.
type TwoFactorService struct {
	Tokens      store.TokenStore
	Issuer      string
	TTL         time.Duration
	MaxAttempts int
}

// Issue creates a code for email and stores it under a new challenge id.
func (s *TwoFactorService) Issue(ctx context.Context, email string) (Challenge, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Challenge{}, err
	}

	key, err := hotp.Generate(hotp.GenerateOpts{
		Issuer:      s.issuer(),
		AccountName: email,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Challenge{}, fmt.Errorf("2fa: generate secret: %w", err)
	}

	code, err := hotp.GenerateCodeCustom(key.Secret(), 0, hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return Challenge{}, fmt.Errorf("2fa: generate code: %w", err)
	}

	id, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return Challenge{}, fmt.Errorf("2fa: %w", err)
	}

	ttl := s.ttl()
	ch := Challenge{ID: id, Code: code, ExpiresAt: time.Now().Add(ttl)}
	entry := store.Token{Secret: code, Email: email, ExpiresAt: ch.ExpiresAt, MaxAttempts: s.maxAttempts()}
	if err := s.Tokens.Create(ctx, id, entry, ttl); err != nil {
		return Challenge{}, fmt.Errorf("2fa: store code: %w", err)
	}
	return ch, nil
}

// Verify consumes the challenge when code matches and returns its email.
// A wrong code leaves the challenge in place until MaxAttempts wrong codes
// have been tried, then the challenge is gone.
func (s *TwoFactorService) Verify(ctx context.Context, id, code string) (string, error) {
	id, code = strings.TrimSpace(id), strings.TrimSpace(code)
	if id == "" || code == "" {
		return "", ErrInvalidCode
	}

	entry, err := s.Tokens.Consume(ctx, id, code)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCode
	}
	if err != nil {
		return "", fmt.Errorf("2fa: consume: %w", err)
	}
	return entry.Email, nil
}

func (s *TwoFactorService) issuer() string {
	if s.Issuer == "" {
		return "agentauth"
	}
	return s.Issuer
}

func (s *TwoFactorService) maxAttempts() int {
	if s.MaxAttempts <= 0 {
		return DefaultCodeAttempts
	}
	return s.MaxAttempts
}

func (s *TwoFactorService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultCodeTTL
	}
	return s.TTL
}
