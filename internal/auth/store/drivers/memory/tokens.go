// Package memory implements the ephemeral token stores and the revocation
// set in process memory. It is the single-node driver; use the redis driver
// when more than one process serves the same users.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
)

// TokenStore is an in-memory store.TokenStore. One mutex guards the whole
// map so a Consume's read, compare and delete happen as one step.
type TokenStore struct {
	mu      sync.Mutex
	entries map[string]store.Token

	// Now overrides the clock, for tests.
	Now func() time.Time
}

var _ store.TokenStore = (*TokenStore)(nil)

func NewTokenStore() *TokenStore {
	return &TokenStore{entries: make(map[string]store.Token)}
}

func (s *TokenStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenStore) Create(_ context.Context, key string, value store.Token, ttl time.Duration) error {
	value.ExpiresAt = s.now().Add(ttl)

	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
	return nil
}

func (s *TokenStore) Consume(_ context.Context, key, expected string) (*store.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.entries[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	if tok.Expired(s.now()) {
		delete(s.entries, key)
		return nil, store.ErrNotFound
	}
	// A wrong guess keeps the entry until MaxAttempts is reached.
	if expected != "" && !cryptox.EqualTokens(tok.Secret, expected) {
		tok.Failures++
		if tok.MaxAttempts > 0 && tok.Failures >= tok.MaxAttempts {
			delete(s.entries, key)
		} else {
			s.entries[key] = tok
		}
		return nil, store.ErrNotFound
	}

	delete(s.entries, key)
	return &tok, nil
}

func (s *TokenStore) Sweep(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, tok := range s.entries {
		if tok.Expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of entries, expired or not.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
