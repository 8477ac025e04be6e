package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
	"github.com/ifrederico/shopify-bulkexport/shops"
	"golang.org/x/oauth2"
)

const (
	DefaultExchangeTimeout = 10 * time.Second

	authorizePath = "/admin/oauth/authorize"
	tokenPath     = "/admin/oauth/access_token"
)

// AccessCredential is the result of a successful exchange. Ownership passes to the
// caller, which hands it to storage; it is never logged.
type AccessCredential struct {
	AccessToken string
	Scope       string
}

type Exchanger interface {
	Exchange(ctx context.Context, shop, code string) (*AccessCredential, error)
}

type ExchangerConfig struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	HTTPClient   *http.Client
	// BuildTokenURL overrides https://{shop}/admin/oauth/access_token
	BuildTokenURL func(shop string) string
}

// TokenExchanger performs exactly one POST per call and never retries; authorization codes
// are single use.
type TokenExchanger struct {
	clientID      string
	clientSecret  string
	timeout       time.Duration
	httpClient    *http.Client
	buildTokenURL func(shop string) string
}

func NewTokenExchanger(cfg ExchangerConfig) *TokenExchanger {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	builder := cfg.BuildTokenURL
	if builder == nil {
		builder = TokenURL
	}
	return &TokenExchanger{
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		timeout:       timeout,
		httpClient:    httpClient,
		buildTokenURL: builder,
	}
}

func (e *TokenExchanger) Exchange(ctx context.Context, shop, code string) (*AccessCredential, error) {
	if code == "" {
		return nil, apperrors.Wrapf(apperrors.ErrBadRequest, "[TokenExchanger Exchange] code is required")
	}
	domain, err := shops.NormalizeDomain(shop)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrBadRequest, "[TokenExchanger Exchange] %v", err)
	}

	conf := &oauth2.Config{
		ClientID:     e.clientID,
		ClientSecret: e.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  e.buildTokenURL(domain),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, classifyExchangeError(err)
	}

	scope, _ := token.Extra("scope").(string)
	return &AccessCredential{AccessToken: token.AccessToken, Scope: scope}, nil
}

func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		message := retrieveErr.ErrorDescription
		if message == "" {
			message = "shopify token exchange failed"
		}
		return &apperrors.UpstreamError{
			StatusCode: status,
			ErrorCode:  retrieveErr.ErrorCode,
			Message:    message,
			Cause:      apperrors.ErrUpstreamAuth,
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: token exchange: %v", apperrors.ErrUpstreamUnreachable, err)
	}
	return fmt.Errorf("%w: token exchange: %v", apperrors.ErrUpstreamMalformed, err)
}

// TokenURL is Shopify's per-shop token endpoint.
func TokenURL(shop string) string {
	return (&url.URL{Scheme: "https", Host: shop, Path: tokenPath}).String()
}

// AuthorizeURL is Shopify's per-shop consent screen.
func AuthorizeURL(shop string) string {
	return (&url.URL{Scheme: "https", Host: shop, Path: authorizePath}).String()
}

// JoinScopes renders scopes the way Shopify expects them: comma separated.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, ",")
}

var _ Exchanger = (*TokenExchanger)(nil)
