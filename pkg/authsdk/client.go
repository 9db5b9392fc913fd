package authsdk

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

// APIKeyHeader carries the tool API key.
const APIKeyHeader = httpx.APIKeyHeader

// SDKClient is a client for the agentauth tool API.
type SDKClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10 second request timeout.
func NewSDKClient(baseURL, apiKey string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
