package config

import (
	"strings"
	"time"
)

const (
	apiKeyVar       = "SHOPIFY_API_KEY"
	apiSecretVar    = "SHOPIFY_API_SECRET"
	scopesVar       = "SCOPES"
	apiVersionVar   = "SHOPIFY_API_VERSION"
	httpTimeoutVar  = "SHOPIFY_HTTP_TIMEOUT"
	installStateTTL = "INSTALL_STATE_TTL"

	DefaultAPIVersion      = "2024-10"
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultInstallStateTTL = 10 * time.Minute
)

type ShopifyConfig interface {
	GetAPIKey() string
	GetAPISecret() string
	GetScopes() []string
	GetAPIVersion() string
	GetHTTPTimeout() time.Duration
	GetInstallStateTTL() time.Duration
}

type Shopify struct{}

var _ ShopifyConfig = Shopify{}

// GetAPIKey is the app's public client id.
func (Shopify) GetAPIKey() string {
	return GetEnv(apiKeyVar, "")
}

// GetAPISecret is the shared secret used for HMAC verification and token exchange.
// Never log the returned value.
func (Shopify) GetAPISecret() string {
	return GetEnv(apiSecretVar, "")
}

func (Shopify) GetScopes() []string {
	var scopes []string
	for _, scope := range splitList(GetEnv(scopesVar, "")) {
		scopes = append(scopes, strings.ToLower(scope))
	}
	return scopes
}

func (Shopify) GetAPIVersion() string {
	return GetEnv(apiVersionVar, DefaultAPIVersion)
}

func (Shopify) GetHTTPTimeout() time.Duration {
	return getDuration(httpTimeoutVar, DefaultHTTPTimeout)
}

func (Shopify) GetInstallStateTTL() time.Duration {
	return getDuration(installStateTTL, DefaultInstallStateTTL)
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
