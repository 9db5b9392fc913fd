package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*jwtx.Claims

func (s stubVerifier) VerifyAgent(_ context.Context, token string) (*jwtx.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("nope")
}

func TestAgentAuthnMiddleware(t *testing.T) {
	claims := jwtx.NewAgentClaims("u1", "a1", []string{"read"})
	v := stubVerifier{"good": &claims}

	var seen *jwtx.Claims
	h := httpx.AgentAuthnMiddleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		require.Equal(t, "good", httpx.TokenFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "a1", seen.AgentID)
	})
}

func TestRequireAPIKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name, key, header string
		want              int
	}{
		{"match", "k1", "k1", http.StatusNoContent},
		{"mismatch", "k1", "k2", http.StatusUnauthorized},
		{"missing", "k1", "", http.StatusUnauthorized},
		{"unconfigured", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
			if tt.header != "" {
				r.Header.Set(httpx.APIKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()
			httpx.RequireAPIKey(tt.key)(ok).ServeHTTP(w, r)
			require.Equal(t, tt.want, w.Code)
		})
	}
}
