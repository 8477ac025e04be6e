package config_test

import (
	"testing"
	"time"

	"github.com/ifrederico/shopify-bulkexport/internal/config"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SHOPIFY_API_KEY", "client-id")
	t.Setenv("SHOPIFY_API_SECRET", "testsecret")
	t.Setenv("SCOPES", "read_orders, read_products,READ_CUSTOMERS")
	t.Setenv("HOST", "https://apps.example.com/")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("REDIS_ADDR", "")
}

func TestValidate(t *testing.T) {
	t.Run("all required values present", func(t *testing.T) {
		setRequired(t)
		require.NoError(t, config.New().Validate())
	})

	t.Run("missing secret and host", func(t *testing.T) {
		setRequired(t)
		t.Setenv("SHOPIFY_API_SECRET", "")
		t.Setenv("HOST", "")
		err := config.New().Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "SHOPIFY_API_SECRET")
		require.Contains(t, err.Error(), "HOST")
	})

	t.Run("relative host", func(t *testing.T) {
		setRequired(t)
		t.Setenv("HOST", "apps.example.com")
		require.Error(t, config.New().Validate())
	})

	t.Run("redis backend needs an address", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORE_BACKEND", "redis")
		require.Error(t, config.New().Validate())

		t.Setenv("REDIS_ADDR", "localhost:6379")
		require.NoError(t, config.New().Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORE_BACKEND", "bolt")
		require.Error(t, config.New().Validate())
	})
}

func TestGetters(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8081")
	t.Setenv("APP_BASE_PATH", "embedded/")
	t.Setenv("SHOPIFY_HTTP_TIMEOUT", "nonsense")
	t.Setenv("INSTALL_STATE_TTL", "2m")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://admin.shopify.com")

	c := config.New()
	require.Equal(t, ":8081", c.GetPort())
	require.Equal(t, "https://apps.example.com", c.GetHost())
	require.Equal(t, "/embedded", c.GetBasePath())
	require.Equal(t, []string{"read_orders", "read_products", "read_customers"}, c.GetScopes())
	require.Equal(t, config.DefaultHTTPTimeout, c.GetHTTPTimeout())
	require.Equal(t, 2*time.Minute, c.GetInstallStateTTL())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://localhost:5173"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("*"))
}
