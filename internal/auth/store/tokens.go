package store

import (
	"context"
	"time"
)

// Token is the value held by every ephemeral store: CSRF state, magic-link
// tokens and 2FA codes. Secret is what Consume compares the expected value
// against.
type Token struct {
	Secret    string    `json:"secret"`
	Email     string    `json:"email,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Verifier  string    `json:"verifier,omitempty"` // PKCE verifier, CSRF entries only
	ExpiresAt time.Time `json:"expires_at"`

	// MaxAttempts caps mismatched Consume calls. The entry is deleted on
	// the MaxAttempts-th mismatch. Zero means no cap.
	MaxAttempts int `json:"max_attempts,omitempty"`
	// Failures counts mismatches so far.
	Failures int `json:"failures,omitempty"`
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenStore is an expiring, single-use key/value store.
//
// Create and Consume on the same key are linearizable: of any number of
// concurrent Consume calls for one entry, at most one succeeds.
type TokenStore interface {
	// Create stores value under key for ttl, replacing any previous entry.
	Create(ctx context.Context, key string, value Token, ttl time.Duration) error

	// Consume atomically reads and deletes the entry. When expected is not
	// empty and does not match the stored Secret, it returns ErrNotFound and
	// the entry is kept until its MaxAttempts are used up. Missing and
	// expired entries return ErrNotFound.
	Consume(ctx context.Context, key, expected string) (*Token, error)

	// Sweep evicts expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

// RevocationSet records revoked tokens, keyed by the raw token string.
type RevocationSet interface {
	// Revoke marks token as revoked. Entries may be dropped after until,
	// the token's own expiry. Revoking twice is not an error.
	Revoke(ctx context.Context, token string, until time.Time) error

	// IsRevoked reports whether token has been revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Sweep evicts entries for tokens that have expired on their own.
	Sweep(ctx context.Context) (int, error)
}
