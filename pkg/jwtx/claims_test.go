package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestHasAnyScope(t *testing.T) {
	c := jwtx.NewAgentClaims("u1", "a1", []string{"read"})

	t.Run("one of required granted", func(t *testing.T) {
		require.True(t, c.HasAnyScope("read", "write"))
	})

	t.Run("none of required granted", func(t *testing.T) {
		require.False(t, c.HasAnyScope("write", "admin"))
	})

	t.Run("nothing required", func(t *testing.T) {
		require.True(t, c.HasAnyScope())
	})

	t.Run("no scopes granted", func(t *testing.T) {
		require.False(t, jwtx.HasAnyScope(nil, []string{"read"}))
	})
}

func TestNewAgentClaimsCopiesScopes(t *testing.T) {
	scopes := []string{"debug", "read"}
	c := jwtx.NewAgentClaims("u1", "a1", scopes)
	scopes[0] = "admin"

	require.Equal(t, []string{"debug", "read"}, c.Scopes)
	require.True(t, c.IsAgent())
	require.Equal(t, "u1", c.UserID())
}

func TestExpires(t *testing.T) {
	require.True(t, (&jwtx.Claims{}).Expires().IsZero())

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}}
	require.True(t, exp.Equal(c.Expires()))
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"15m", 15 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{" 30s ", 30 * time.Second},
		{"106751d", 106751 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := jwtx.ParseTTL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "d", "xd", "-5m", "0s", "forever", "106752d", "15251w", "9223372036854775807w", "-9223372036854775807d"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := jwtx.ParseTTL(bad)
			require.Error(t, err)
		})
	}
}
