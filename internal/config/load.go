package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Load reads an optional .env file from the working directory and returns a validated
// Config. Missing required values fail here, at startup, rather than per request.
func Load() (Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("[config Load] working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(wd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("[config Load] .env: %w", err)
	}

	c := New()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c mainConfig) Validate() error {
	var missing []string
	if c.GetAPIKey() == "" {
		missing = append(missing, apiKeyVar)
	}
	if c.GetAPISecret() == "" {
		missing = append(missing, apiSecretVar)
	}
	if len(c.GetScopes()) == 0 {
		missing = append(missing, scopesVar)
	}
	if c.GetHost() == "" {
		missing = append(missing, hostVar)
	}
	if len(missing) > 0 {
		return fmt.Errorf("[config Validate] missing required environment variables: %v", missing)
	}

	host, err := url.Parse(c.GetHost())
	if err != nil || host.Scheme == "" || host.Host == "" {
		return fmt.Errorf("[config Validate] %s must be an absolute URL, got %q", hostVar, c.GetHost())
	}

	switch c.GetStoreBackend() {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if c.GetRedisAddr() == "" {
			return fmt.Errorf("[config Validate] %s is required when %s=%s", redisAddrVar, storeBackendVar, StoreBackendRedis)
		}
	default:
		return fmt.Errorf("[config Validate] invalid %s %q (must be %q or %q)",
			storeBackendVar, c.GetStoreBackend(), StoreBackendMemory, StoreBackendRedis)
	}
	return nil
}
