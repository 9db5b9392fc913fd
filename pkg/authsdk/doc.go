/*
Package authsdk is a Go client for the agentauth tool API.

# Overview

The agentauth service exposes its delegation operations as named tools. The
tool API is protected by an API key; agent tokens issued through it are then
presented by agents as bearer tokens.

	client := authsdk.NewSDKClient("https://auth.example.com", apiKey)

	// Issue a 15 minute token for an agent acting as user u1.
	tok, err := client.AgentLogin(ctx, authsdk.AgentLoginRequest{
		UserID:  "u1",
		AgentID: "deploy-bot",
		Scopes:  []string{"read", "debug"},
	})

	// Introspect it.
	info, err := client.GetSession(ctx, tok.Token)

	// Revoke it before it expires.
	err = client.RevokeToken(ctx, tok.Token)

Any tool, including ones added later on the server, can be called by name:

	res, err := client.CallTool(ctx, "get_session", map[string]string{"token": t})

# Agent side

An agent holding a token can check it against the service:

	session, err := client.GetAgentSession(ctx, agentToken)

# Error Handling

Every non-2xx response becomes an *APIError carrying the status code and the
server message. Security failures (revoked, expired, forged tokens) all share
a small set of generic messages:

	info, err := client.GetSession(ctx, token)
	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		// token is revoked or invalid
	}

# Thread Safety

SDKClient holds no mutable state and is safe for concurrent use.
*/
package authsdk
