package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionCookie(t *testing.T) {
	c := httpx.CreateSessionCookie("tok", time.Now().Add(time.Hour), true)
	s := c.String()

	require.Equal(t, httpx.SessionCookieName, c.Name)
	require.InDelta(t, 3600, c.MaxAge, 1)
	require.Contains(t, s, "HttpOnly")
	require.Contains(t, s, "Secure")
	require.Contains(t, s, "SameSite=Lax")
	require.Contains(t, s, "Path=/")
}

func TestCreateSessionCookieExpired(t *testing.T) {
	c := httpx.CreateSessionCookie("tok", time.Now().Add(-time.Hour), false)
	s := c.String()

	require.Contains(t, s, "Max-Age=0")
	require.NotContains(t, s, "Max-Age=-")
	require.NotContains(t, s, "Secure")
}

func TestClearSessionCookie(t *testing.T) {
	s := httpx.ClearSessionCookie(false).String()
	require.True(t, strings.HasPrefix(s, httpx.SessionCookieName+"="))
	require.Contains(t, s, "Max-Age=0")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		require.Equal(t, tt.want, httpx.BearerToken(r), tt.header)
	}
}
