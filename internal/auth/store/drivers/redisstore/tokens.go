package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/redis/go-redis/v9"
)

// consumeScript is the compare-and-delete that makes Consume linearizable.
// Secrets are compared by fingerprint so the raw value never reaches Redis
// and the string compare leaks nothing useful. A mismatch bumps the
// failure count and deletes the entry once it reaches max.
var consumeScript = redis.NewScript(`
local fp = redis.call('HGET', KEYS[1], 'fp')
if not fp then
  return false
end
if ARGV[1] ~= '' and fp ~= ARGV[1] then
  local max = tonumber(redis.call('HGET', KEYS[1], 'max') or '0')
  local fails = redis.call('HINCRBY', KEYS[1], 'fails', 1)
  if max > 0 and fails >= max then
    redis.call('DEL', KEYS[1])
  end
  return false
end
local data = redis.call('HGET', KEYS[1], 'data')
redis.call('DEL', KEYS[1])
return data
`)

// TokenStore is a store.TokenStore backed by Redis hashes with a TTL.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
}

var _ store.TokenStore = (*TokenStore)(nil)

// NewTokenStore returns a store whose keys live under prefix+name+":".
// Use a distinct name per store (csrf, magiclink, 2fa).
func NewTokenStore(client redis.UniversalClient, prefix, name string) *TokenStore {
	return &TokenStore{client: client, prefix: prefixOr(prefix) + name + ":"}
}

func (s *TokenStore) key(k string) string { return s.prefix + k }

func (s *TokenStore) Create(ctx context.Context, key string, value store.Token, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redisstore: ttl must be positive, got %s", ttl)
	}
	value.ExpiresAt = time.Now().Add(ttl)

	// The secret is only stored as a fingerprint.
	fp := cryptox.FingerprintToken(value.Secret)
	value.Secret = ""
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redisstore: encode token: %w", err)
	}

	k := s.key(key)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, "fp", fp, "data", data, "max", value.MaxAttempts)
		p.PExpire(ctx, k, ttl)
		return nil
	})
	return err
}

func (s *TokenStore) Consume(ctx context.Context, key, expected string) (*store.Token, error) {
	var fp string
	if expected != "" {
		fp = cryptox.FingerprintToken(expected)
	}

	raw, err := consumeScript.Run(ctx, s.client, []string{s.key(key)}, fp).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var tok store.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("redisstore: decode token: %w", err)
	}
	if tok.Expired(time.Now()) {
		return nil, store.ErrNotFound
	}
	if expected != "" {
		tok.Secret = expected
	}
	return &tok, nil
}

// Sweep is a no-op: Redis expires keys on its own.
func (s *TokenStore) Sweep(context.Context) (int, error) { return 0, nil }
