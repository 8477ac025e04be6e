package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	hostVar        = "HOST"
	basePathVar    = "APP_BASE_PATH"
	distDirVar     = "DIST_DIR"
	logLevelEnvVar = "LOG_LEVEL"
	logFileEnvVar  = "LOG_FILE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Shopify Bulk Export")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return env
}

// GetHost returns the externally reachable base URL (e.g. "https://apps.example.com").
// OAuth redirect URIs and the post-install landing URL are built from it.
func (EnvVars) GetHost() string {
	return strings.TrimSuffix(GetEnv(hostVar, ""), "/")
}

// GetBasePath is the path the embedded UI is mounted under.
func (EnvVars) GetBasePath() string {
	base := strings.TrimSuffix(GetEnv(basePathVar, "/shopify-bulkexport"), "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}

func (EnvVars) GetDistDir() string {
	return GetEnv(distDirVar, "./dist")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func (EnvVars) GetLogFile() string {
	return GetEnv(logFileEnvVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
