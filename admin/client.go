// Package admin reads from the Shopify Admin REST API on behalf of a connected shop.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
)

const (
	DefaultAPIVersion = "2024-10"
	DefaultTimeout    = 10 * time.Second
	DefaultLimit      = 5
	MaxLimit          = 250

	accessTokenHeader = "X-Shopify-Access-Token"
	maxBodyBytes      = 4 << 20
)

// Resource is a collection the proxy is allowed to read.
type Resource string

const (
	ResourceOrders    Resource = "orders"
	ResourceProducts  Resource = "products"
	ResourceCustomers Resource = "customers"
)

// Resources lists every readable collection.
var Resources = []Resource{ResourceOrders, ResourceProducts, ResourceCustomers}

func ParseResource(name string) (Resource, bool) {
	for _, r := range Resources {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// ClampLimit maps a requested page size into 1..MaxLimit; zero or negative means DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

type BreakerSettings struct {
	// MinRequests in one interval before the failure ratio is considered
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

var DefaultBreakerSettings = BreakerSettings{
	MinRequests:  5,
	FailureRatio: 0.6,
	Interval:     time.Minute,
	OpenTimeout:  30 * time.Second,
}

type Config struct {
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    BreakerSettings
	// BuildBaseURL overrides https://{shop}
	BuildBaseURL func(shop string) string
}

// Client calls the Admin API with a shop's access token. One circuit breaker is kept per
// shop so a failing store does not cut off the others. The breaker never retries.
type Client struct {
	apiVersion   string
	httpClient   *http.Client
	breaker      BreakerSettings
	buildBaseURL func(shop string) string

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Breaker == (BreakerSettings{}) {
		cfg.Breaker = DefaultBreakerSettings
	}
	if cfg.BuildBaseURL == nil {
		cfg.BuildBaseURL = func(shop string) string {
			return (&url.URL{Scheme: "https", Host: shop}).String()
		}
	}
	return &Client{
		apiVersion:   cfg.APIVersion,
		httpClient:   cfg.HTTPClient,
		breaker:      cfg.Breaker,
		buildBaseURL: cfg.BuildBaseURL,
		breakers:     make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Shop returns the raw "shop" object from shop.json. It doubles as the credential check
// for manually connected stores.
func (c *Client) Shop(ctx context.Context, shop, token string) (json.RawMessage, error) {
	body, err := c.get(ctx, shop, token, "shop.json", nil)
	if err != nil {
		return nil, err
	}
	result := gjson.GetBytes(body, "shop")
	if !result.IsObject() {
		return nil, fmt.Errorf("%w: shop.json has no shop object", apperrors.ErrUpstreamMalformed)
	}
	return json.RawMessage(result.Raw), nil
}

// List returns the raw collection array for resource, at most limit entries.
func (c *Client) List(ctx context.Context, shop, token string, resource Resource, limit int) (json.RawMessage, error) {
	if _, ok := ParseResource(string(resource)); !ok {
		return nil, apperrors.Wrapf(apperrors.ErrBadRequest, "unknown resource %q", resource)
	}
	query := url.Values{"limit": {strconv.Itoa(ClampLimit(limit))}}
	body, err := c.get(ctx, shop, token, string(resource)+".json", query)
	if err != nil {
		return nil, err
	}
	result := gjson.GetBytes(body, string(resource))
	if !result.IsArray() {
		return nil, fmt.Errorf("%w: %s.json has no %s array", apperrors.ErrUpstreamMalformed, resource, resource)
	}
	return json.RawMessage(result.Raw), nil
}

func (c *Client) get(ctx context.Context, shop, token, resource string, query url.Values) ([]byte, error) {
	if shop == "" || token == "" {
		return nil, apperrors.Wrapf(apperrors.ErrBadRequest, "shop and access token are required")
	}

	endpoint := fmt.Sprintf("%s/admin/api/%s/%s", strings.TrimSuffix(c.buildBaseURL(shop), "/"), c.apiVersion, resource)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	out, err := c.breakerFor(shop).Execute(func() (interface{}, error) {
		return c.do(ctx, endpoint, token)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrUpstreamUnreachable, shop, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, endpoint, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", apperrors.ErrBadRequest, err)
	}
	req.Header.Set(accessTokenHeader, token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnreachable, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", apperrors.ErrUpstreamUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body, resp.StatusCode),
			Cause:      apperrors.ErrUpstreamAuth,
		}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", apperrors.ErrUpstreamMalformed)
	}
	return body, nil
}

// upstreamMessage extracts Shopify's "errors" (a string or an object of field errors).
func upstreamMessage(body []byte, status int) string {
	errs := gjson.GetBytes(body, "errors")
	switch {
	case errs.Type == gjson.String:
		return errs.String()
	case errs.Exists():
		return errs.Raw
	default:
		if msg := gjson.GetBytes(body, "error").String(); msg != "" {
			return msg
		}
		return http.StatusText(status)
	}
}

func (c *Client) breakerFor(shop string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[shop]; ok {
		return cb
	}
	settings := c.breaker
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "shopify-admin-" + shop,
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Shopify Admin API circuit breaker state changed")
		},
	})
	c.breakers[shop] = cb
	return cb
}

// isBreakerSuccess counts only transport failures and 5xx answers against a shop.
// A 4xx means Shopify is up and said no.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode < http.StatusInternalServerError
	}
	return !errors.Is(err, apperrors.ErrUpstreamUnreachable)
}

// redactURLError drops the request URL from transport errors; it is safe but noisy.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
