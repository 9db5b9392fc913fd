package redisstore_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway Redis container. Tests are skipped when no
// container runtime is available.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping redis tests: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	client, err := redisstore.Connect(ctx, redisstore.Config{Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisTokenStore(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	s := redisstore.NewTokenStore(client, "test:", "2fa")

	t.Run("single use", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "id-1", store.Token{Secret: "123456", Email: "a@example.com"}, time.Minute))

		tok, err := s.Consume(ctx, "id-1", "123456")
		require.NoError(t, err)
		require.Equal(t, "a@example.com", tok.Email)
		require.Equal(t, "123456", tok.Secret)

		_, err = s.Consume(ctx, "id-1", "123456")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("mismatch keeps entry", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "id-2", store.Token{Secret: "111111"}, time.Minute))

		_, err := s.Consume(ctx, "id-2", "222222")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Consume(ctx, "id-2", "111111")
		require.NoError(t, err)
	})

	t.Run("attempt cap", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "id-5", store.Token{Secret: "111111", MaxAttempts: 2}, time.Minute))

		_, err := s.Consume(ctx, "id-5", "000000")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Consume(ctx, "id-5", "000000")
		require.ErrorIs(t, err, store.ErrNotFound)

		exists, err := client.Exists(ctx, "test:2fa:id-5").Result()
		require.NoError(t, err)
		require.Zero(t, exists)

		_, err = s.Consume(ctx, "id-5", "111111")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("secret is not stored in clear", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "id-3", store.Token{Secret: "999999"}, time.Minute))
		vals, err := client.HGetAll(ctx, "test:2fa:id-3").Result()
		require.NoError(t, err)
		require.NotContains(t, vals["data"], "999999")
		require.NotEqual(t, "999999", vals["fp"])
	})

	t.Run("expires", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "id-4", store.Token{Secret: "x"}, 50*time.Millisecond))
		time.Sleep(150 * time.Millisecond)
		_, err := s.Consume(ctx, "id-4", "")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent consume", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "race", store.Token{Secret: "tok"}, time.Minute))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Consume(ctx, "race", "tok"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})
}

func TestRedisRevocationSet(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	s := redisstore.NewRevocationSet(client, "test:")

	revoked, err := s.IsRevoked(ctx, "tok-a")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "tok-a", time.Now().Add(15*time.Minute)))
	require.NoError(t, s.Revoke(ctx, "tok-a", time.Now().Add(15*time.Minute)))

	revoked, err = s.IsRevoked(ctx, "tok-a")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "tok-b")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")

	cfg, err := redisstore.ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, "cache:6380", cfg.Addr)
	require.Equal(t, 2, cfg.DB)
	require.Equal(t, "agentauth:", cfg.KeyPrefix)
}
