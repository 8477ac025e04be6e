package server_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/ifrederico/shopify-bulkexport/oauth"
	"github.com/stretchr/testify/require"
)

func signCallback(t *testing.T, values url.Values) url.Values {
	t.Helper()
	v, err := oauth.NewVerifier(testSecret)
	require.NoError(t, err)
	values.Set("hmac", v.Digest(oauth.ParamsFromValues(values)))
	return values
}

// beginInstall runs /auth and returns the state nonce from the authorize redirect.
func beginInstall(t *testing.T, f *fixture, shop string) string {
	t.Helper()
	rec := f.get(t, "/shopify-bulkexport/auth?shop="+shop)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func callbackValues(state string) url.Values {
	return url.Values{
		"shop":      {testShop},
		"code":      {"abc123"},
		"state":     {state},
		"timestamp": {"1700000000"},
	}
}

func TestAuthHandler(t *testing.T) {
	t.Run("missing shop", func(t *testing.T) {
		f := newFixture(t)
		rec := f.get(t, "/shopify-bulkexport/auth")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Missing ?shop param")
	})

	t.Run("invalid shop", func(t *testing.T) {
		f := newFixture(t)
		rec := f.get(t, "/shopify-bulkexport/auth?shop=evil.example.com")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Zero(t, f.states.Len())
	})

	t.Run("redirects to the authorize url", func(t *testing.T) {
		f := newFixture(t)
		rec := f.get(t, "/shopify-bulkexport/auth?shop="+testShop)
		require.Equal(t, http.StatusFound, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, testShop, location.Host)
		require.Equal(t, "/admin/oauth/authorize", location.Path)

		q := location.Query()
		require.Equal(t, testClientID, q.Get("client_id"))
		require.Equal(t, "read_orders,read_products,read_customers", q.Get("scope"))
		require.Equal(t, testHost+"/shopify-bulkexport/auth/callback", q.Get("redirect_uri"))
		require.Len(t, q.Get("state"), 64)
		require.Equal(t, 1, f.states.Len())
		require.Zero(t, f.shopify.calls.Load())
	})

	t.Run("lives under the app base path", func(t *testing.T) {
		f := newFixture(t)
		rec := f.get(t, "/shopify-bulkexport/auth?shop="+testShop)
		require.Equal(t, http.StatusFound, rec.Code)
		require.NotContains(t, rec.Body.String(), indexHTML)
		require.Contains(t, rec.Header().Get("Location"), "https://"+testShop+"/admin/oauth/authorize")

		require.Equal(t, http.StatusNotFound, f.get(t, "/auth?shop="+testShop).Code)
		require.Equal(t, 1, f.states.Len())
	})

	t.Run("pending installs are capped", func(t *testing.T) {
		f := newFixture(t)
		f.states.WithLimit(1)
		require.Equal(t, http.StatusFound, f.get(t, "/shopify-bulkexport/auth?shop="+testShop).Code)

		rec := f.get(t, "/shopify-bulkexport/auth?shop="+testShop)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, 1, f.states.Len())
	})
}

func TestAuthCallbackHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("completes the install", func(t *testing.T) {
		f := newFixture(t)
		state := beginInstall(t, f, testShop)

		rec := f.get(t, "/shopify-bulkexport/auth/callback?"+signCallback(t, callbackValues(state)).Encode())
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, testHost+"/shopify-bulkexport?shop=demo.myshopify.com", rec.Header().Get("Location"))
		require.EqualValues(t, 1, f.shopify.calls.Load())

		cred, err := f.shops.Get(ctx, testShop)
		require.NoError(t, err)
		require.Equal(t, "tok_xyz", cred.AccessToken)

		status := decodeBody(t, f.get(t, "/api/status"))
		require.Equal(t, true, status["connected"])
		require.Equal(t, testShop, status["domain"])
	})

	t.Run("missing params", func(t *testing.T) {
		f := newFixture(t)
		values := signCallback(t, callbackValues("n0nce"))
		values.Del("code")

		rec := f.get(t, "/shopify-bulkexport/auth/callback?"+values.Encode())
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Missing required params")
		require.Zero(t, f.shopify.calls.Load())
	})

	t.Run("bad signature makes no exchange", func(t *testing.T) {
		f := newFixture(t)
		state := beginInstall(t, f, testShop)
		values := callbackValues(state)
		values.Set("hmac", strings.Repeat("0", 64))

		rec := f.get(t, "/shopify-bulkexport/auth/callback?"+values.Encode())
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "HMAC validation failed")
		require.NotContains(t, rec.Body.String(), testSecret)
		require.Zero(t, f.shopify.calls.Load())
	})

	t.Run("signed callback for a non shopify domain", func(t *testing.T) {
		f := newFixture(t)
		values := callbackValues("n0nce")
		values.Set("shop", "evil.example.com")

		rec := f.get(t, "/shopify-bulkexport/auth/callback?"+signCallback(t, values).Encode())
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid shop domain")
		require.NotContains(t, rec.Body.String(), "Missing required params")
		require.Zero(t, f.shopify.calls.Load())
	})

	t.Run("state this server never issued", func(t *testing.T) {
		f := newFixture(t)
		rec := f.get(t, "/shopify-bulkexport/auth/callback?"+signCallback(t, callbackValues("n0nce")).Encode())
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid state parameter")
		require.Zero(t, f.shopify.calls.Load())
	})

	t.Run("exchange failure is a 500", func(t *testing.T) {
		f := newFixture(t)
		f.shopify.tokenFail.Store(true)
		state := beginInstall(t, f, testShop)

		rec := f.get(t, "/shopify-bulkexport/auth/callback?"+signCallback(t, callbackValues(state)).Encode())
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "Error obtaining access token")

		_, err := f.shops.Current(ctx)
		require.Error(t, err)
	})
}
