package shops

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const DomainSuffix = ".myshopify.com"

// Source records how a credential was obtained.
type Source string

const (
	SourceOAuth  Source = "oauth"  // install flow token exchange
	SourceManual Source = "manual" // pasted Admin API token via /api/connect
)

// Credential is the access credential for one shop. AccessToken must never be logged.
type Credential struct {
	ID          string    `json:"id"`
	Shop        string    `json:"shop"`
	AccessToken string    `json:"access_token"`
	Scope       string    `json:"scope,omitempty"`
	Source      Source    `json:"source"`
	ConnectedAt time.Time `json:"connected_at"`
}

var shopNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// NormalizeDomain turns user or platform input into a canonical "<name>.myshopify.com"
// host. Bare store names get the suffix appended; anything that is not a myshopify host
// is rejected so the value is safe to build outbound URLs from.
func NormalizeDomain(value string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "", fmt.Errorf("shops: shop domain is required")
	}
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("shops: parse shop domain: %w", err)
		}
		trimmed = strings.ToLower(parsed.Hostname())
	}
	trimmed = strings.TrimSuffix(trimmed, "/")
	if !strings.Contains(trimmed, ".") {
		trimmed += DomainSuffix
	}
	name, ok := strings.CutSuffix(trimmed, DomainSuffix)
	if !ok || !shopNamePattern.MatchString(name) {
		return "", fmt.Errorf("shops: invalid shop domain %q", value)
	}
	return trimmed, nil
}
