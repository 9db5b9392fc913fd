package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

func TestConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := memory.NewTokenStore()

	require.NoError(t, s.Create(ctx, "flow-1", store.Token{Secret: "state-abc", Verifier: "v"}, time.Minute))

	tok, err := s.Consume(ctx, "flow-1", "state-abc")
	require.NoError(t, err)
	require.Equal(t, "v", tok.Verifier)

	_, err = s.Consume(ctx, "flow-1", "state-abc")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeConcurrent(t *testing.T) {
	ctx := context.Background()
	s := memory.NewTokenStore()

	for round := 0; round < 50; round++ {
		require.NoError(t, s.Create(ctx, "link", store.Token{Secret: "tok", Email: "a@example.com"}, time.Minute))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Consume(ctx, "link", ""); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load(), "round %d", round)
	}
}

func TestConsumeMismatchKeepsEntry(t *testing.T) {
	ctx := context.Background()
	s := memory.NewTokenStore()

	require.NoError(t, s.Create(ctx, "id-1", store.Token{Secret: "123456"}, time.Minute))

	_, err := s.Consume(ctx, "id-1", "654321")
	require.ErrorIs(t, err, store.ErrNotFound)

	tok, err := s.Consume(ctx, "id-1", "123456")
	require.NoError(t, err)
	require.Equal(t, "123456", tok.Secret)
}

func TestConsumeMismatchAttemptCap(t *testing.T) {
	ctx := context.Background()
	s := memory.NewTokenStore()

	require.NoError(t, s.Create(ctx, "id-1", store.Token{Secret: "123456", MaxAttempts: 3}, time.Minute))

	for range 2 {
		_, err := s.Consume(ctx, "id-1", "000000")
		require.ErrorIs(t, err, store.ErrNotFound)
		require.Equal(t, 1, s.Len())
	}

	_, err := s.Consume(ctx, "id-1", "000000")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, s.Len(), "third mismatch deletes the entry")

	_, err = s.Consume(ctx, "id-1", "123456")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := memory.NewTokenStore()
	s.Now = func() time.Time { return now }

	require.NoError(t, s.Create(ctx, "k", store.Token{Secret: "x"}, 10*time.Minute))

	now = now.Add(10 * time.Minute)
	_, err := s.Consume(ctx, "k", "x")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, s.Len(), "expired entry is dropped on read")
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := memory.NewTokenStore()
	s.Now = func() time.Time { return now }

	require.NoError(t, s.Create(ctx, "short", store.Token{Secret: "a"}, time.Minute))
	require.NoError(t, s.Create(ctx, "long", store.Token{Secret: "b"}, time.Hour))

	now = now.Add(2 * time.Minute)
	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, s.Len())

	_, err = s.Consume(ctx, "long", "b")
	require.NoError(t, err)
}
