package auth_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func postEmail(t *testing.T, baseURL, email string) *http.Response {
	t.Helper()

	form := url.Values{"email": {email}}
	resp, err := http.Post(baseURL+"/auth/email", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

// TestRateLimitEmailLogin verifies that magic link requests for one address
// are rate limited, so an inbox cannot be flooded.
func TestRateLimitEmailLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	// The auth burst is 5 requests.
	for i := range 5 {
		resp := postEmail(t, baseURL, "victim@example.com")
		require.Equal(t, http.StatusAccepted, resp.StatusCode, "request %d should not be rate limited", i+1)
	}

	resp := postEmail(t, baseURL, "victim@example.com")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "Should be rate limited after 5 requests")
	require.NotEmpty(t, resp.Header.Get("Retry-After"), "Should include Retry-After header")

	// A different address has its own bucket.
	resp = postEmail(t, baseURL, "someone-else@example.com")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	t.Logf("Successfully rate limited POST /auth/email")
}

// TestRateLimitHealthEndpoints verifies health checks are never limited.
func TestRateLimitHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL, "")

	for i := range 30 {
		health, err := client.GetLiveness(t.Context())
		require.NoError(t, err, "Liveness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)

		health, err = client.GetReadiness(t.Context())
		require.NoError(t, err, "Readiness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)
	}

	t.Logf("Successfully made 30 requests each to /livez and /readyz without rate limiting")
}
