package auth_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestToolsRequireAPIKey verifies the tool API rejects missing and wrong keys.
func TestToolsRequireAPIKey(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	for _, key := range []string{"", "wrong-key"} {
		client := authsdk.NewSDKClient(baseURL, key)

		_, err := client.ListTools(t.Context())
		assertStatus(t, err, http.StatusUnauthorized, "list tools with key "+key)

		_, err = client.AgentLogin(t.Context(), authsdk.AgentLoginRequest{UserID: testUserID, AgentID: testAgentID})
		assertStatus(t, err, http.StatusUnauthorized, "agent_login with key "+key)
	}

	t.Logf("Tool API correctly rejected requests without a valid API key")
}

// TestForgedAgentToken verifies a tampered token is rejected by both the
// introspection tool and the bearer endpoint with the same generic error.
func TestForgedAgentToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL, toolsAPIKey)
	tok := agentLogin(t, client, "read")

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err := client.GetSession(t.Context(), forged)
	assertStatus(t, err, http.StatusForbidden, "forged token introspection")

	_, err = client.GetSession(t.Context(), "not-a-token")
	assertStatus(t, err, http.StatusForbidden, "garbage token introspection")

	_, err = client.GetAgentSession(t.Context(), forged)
	assertStatus(t, err, http.StatusUnauthorized, "forged bearer token")
}

// TestSessionWithoutCookie verifies the session endpoint needs a cookie.
func TestSessionWithoutCookie(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	resp, err := http.Get(baseURL + "/v1/session")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
