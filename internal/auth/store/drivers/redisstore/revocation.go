package redisstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/redis/go-redis/v9"
)

// minRevocationTTL keeps a revocation for tokens that are already expired
// or carry no expiry, long enough to outlive clock skew between nodes.
const minRevocationTTL = time.Hour

// RevocationSet is a store.RevocationSet backed by Redis keys that expire
// together with the revoked token.
type RevocationSet struct {
	client redis.UniversalClient
	prefix string
}

var _ store.RevocationSet = (*RevocationSet)(nil)

func NewRevocationSet(client redis.UniversalClient, prefix string) *RevocationSet {
	return &RevocationSet{client: client, prefix: prefixOr(prefix) + "revoked:"}
}

func (s *RevocationSet) key(token string) string {
	return s.prefix + cryptox.FingerprintToken(token)
}

func (s *RevocationSet) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	// Finish the write even if the caller goes away.
	c := context.WithoutCancel(ctx)
	return s.client.Set(c, s.key(token), "1", ttl).Err()
}

func (s *RevocationSet) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Sweep is a no-op: Redis expires keys on its own.
func (s *RevocationSet) Sweep(context.Context) (int, error) { return 0, nil }
