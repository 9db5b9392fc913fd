package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
)

// RevocationSet is an in-memory store.RevocationSet keyed by token
// fingerprint.
type RevocationSet struct {
	mu      sync.RWMutex
	revoked map[string]time.Time

	// Now overrides the clock, for tests.
	Now func() time.Time
}

var _ store.RevocationSet = (*RevocationSet)(nil)

func NewRevocationSet() *RevocationSet {
	return &RevocationSet{revoked: make(map[string]time.Time)}
}

func (s *RevocationSet) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *RevocationSet) Revoke(_ context.Context, token string, until time.Time) error {
	fp := cryptox.FingerprintToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.revoked[fp]; ok && prev.After(until) {
		return nil
	}
	s.revoked[fp] = until
	return nil
}

func (s *RevocationSet) IsRevoked(_ context.Context, token string) (bool, error) {
	fp := cryptox.FingerprintToken(token)

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[fp]
	return ok, nil
}

// Sweep drops entries whose tokens have expired anyway. A zero until keeps
// the entry forever.
func (s *RevocationSet) Sweep(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for fp, until := range s.revoked {
		if !until.IsZero() && now.After(until) {
			delete(s.revoked, fp)
			n++
		}
	}
	return n, nil
}
