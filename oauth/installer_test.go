package oauth_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ifrederico/shopify-bulkexport/installstate"
	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
	"github.com/ifrederico/shopify-bulkexport/oauth"
	"github.com/ifrederico/shopify-bulkexport/shops"
	"github.com/stretchr/testify/require"
)

type countingExchanger struct {
	calls atomic.Int32
	token string
	err   error
}

func (e *countingExchanger) Exchange(_ context.Context, _, _ string) (*oauth.AccessCredential, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return &oauth.AccessCredential{AccessToken: e.token, Scope: "read_orders"}, nil
}

type installerFixture struct {
	installer *oauth.Installer
	states    *installstate.InMemoryRepo
	creds     *shops.InMemoryRepo
}

func newInstallerFixture(t *testing.T, exchanger oauth.Exchanger) *installerFixture {
	t.Helper()
	f := &installerFixture{
		states: installstate.NewInMemoryRepo(),
		creds:  shops.NewInMemoryRepo(),
	}
	f.installer = oauth.NewInstaller(oauth.InstallerConfig{
		ClientID:    "client-id",
		Scopes:      []string{"read_orders", "read_products"},
		RedirectURL: "https://app.example.com/auth/callback",
		StateTTL:    time.Minute,
	}, newVerifier(t), exchanger, f.states, f.creds)
	return f
}

func (f *installerFixture) pending(t *testing.T, state, shop string) {
	t.Helper()
	require.NoError(t, f.states.Save(context.Background(), state, installstate.Pending{Shop: shop, CreatedAt: time.Now()}, time.Minute))
}

func TestInstallerCallbackOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("valid callback exchanges and stores the credential", func(t *testing.T) {
		stub := newTokenStub(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"access_token":"tok_xyz"}`)
		})
		f := newInstallerFixture(t, stub.exchanger(time.Second))
		f.pending(t, "n0nce", "demo.myshopify.com")

		inst, cred, err := f.installer.Complete(ctx, signedCallback(t))
		require.NoError(t, err)
		require.Equal(t, oauth.PhaseExchanged, inst.Phase)
		require.Equal(t, "tok_xyz", cred.AccessToken)
		require.Equal(t, shops.SourceOAuth, cred.Source)
		require.EqualValues(t, 1, stub.calls.Load())

		stored, err := f.creds.Get(ctx, "demo.myshopify.com")
		require.NoError(t, err)
		require.Equal(t, "tok_xyz", stored.AccessToken)
		require.NotEmpty(t, stored.ID)
	})

	t.Run("zeroed hmac fails without an exchange", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)
		f.pending(t, "n0nce", "demo.myshopify.com")

		values := signedCallback(t)
		values.Set("hmac", strings.Repeat("0", 64))

		inst, cred, err := f.installer.Complete(ctx, values)
		require.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
		require.Nil(t, cred)
		require.Equal(t, oauth.PhaseFailed, inst.Phase)
		require.Zero(t, exchanger.calls.Load())

		_, err = f.creds.Current(ctx)
		require.ErrorIs(t, err, shops.ErrNotFound)
	})
}

func TestInstallerComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("missing params is a bad request", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)

		values := signedCallback(t)
		values.Del("timestamp")
		inst, _, err := f.installer.Complete(ctx, values)
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
		require.Contains(t, err.Error(), "timestamp")
		require.Equal(t, oauth.PhaseFailed, inst.Phase)
		require.Zero(t, exchanger.calls.Load())
	})

	t.Run("signed callback for a non shopify domain", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)
		values := callbackQuery()
		values.Set("shop", "evil.example.com")
		values.Set("hmac", sign(t, testSecret, "code=abc123&shop=evil.example.com&state=n0nce&timestamp=1700000000"))

		inst, _, err := f.installer.Complete(ctx, values)
		require.ErrorIs(t, err, apperrors.ErrInvalidShop)
		require.Equal(t, oauth.PhaseFailed, inst.Phase)
		require.Zero(t, exchanger.calls.Load())
	})

	t.Run("unknown state is rejected", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)

		inst, _, err := f.installer.Complete(ctx, signedCallback(t))
		require.ErrorIs(t, err, apperrors.ErrStateInvalid)
		require.Equal(t, oauth.PhaseFailed, inst.Phase)
		require.Zero(t, exchanger.calls.Load())
	})

	t.Run("state issued for another shop is rejected", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)
		f.pending(t, "n0nce", "other.myshopify.com")

		_, _, err := f.installer.Complete(ctx, signedCallback(t))
		require.ErrorIs(t, err, apperrors.ErrStateInvalid)
		require.Zero(t, exchanger.calls.Load())
	})

	t.Run("state is single use", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)
		f.pending(t, "n0nce", "demo.myshopify.com")

		_, _, err := f.installer.Complete(ctx, signedCallback(t))
		require.NoError(t, err)

		_, _, err = f.installer.Complete(ctx, signedCallback(t))
		require.ErrorIs(t, err, apperrors.ErrStateInvalid)
		require.EqualValues(t, 1, exchanger.calls.Load())
	})

	t.Run("expired state is rejected", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)
		now := time.Now()
		f.states.WithClock(func() time.Time { return now })
		f.pending(t, "n0nce", "demo.myshopify.com")
		now = now.Add(2 * time.Minute)

		_, _, err := f.installer.Complete(ctx, signedCallback(t))
		require.ErrorIs(t, err, apperrors.ErrStateInvalid)
		require.Zero(t, exchanger.calls.Load())
	})

	t.Run("exchange failure fails the install", func(t *testing.T) {
		exchanger := &countingExchanger{err: apperrors.ErrUpstreamUnreachable}
		f := newInstallerFixture(t, exchanger)
		f.pending(t, "n0nce", "demo.myshopify.com")

		inst, _, err := f.installer.Complete(ctx, signedCallback(t))
		require.ErrorIs(t, err, apperrors.ErrUpstreamUnreachable)
		require.Equal(t, oauth.PhaseFailed, inst.Phase)
		require.ErrorIs(t, inst.Err, apperrors.ErrUpstreamUnreachable)

		_, err = f.creds.Get(ctx, "demo.myshopify.com")
		require.ErrorIs(t, err, shops.ErrNotFound)
	})
}

func TestInstallerBegin(t *testing.T) {
	ctx := context.Background()

	t.Run("redirects to the shop's consent screen", func(t *testing.T) {
		f := newInstallerFixture(t, &countingExchanger{token: "tok_xyz"})

		inst, redirect, err := f.installer.Begin(ctx, "Demo")
		require.NoError(t, err)
		require.Equal(t, oauth.PhaseAwaitingCallback, inst.Phase)
		require.Equal(t, "demo.myshopify.com", inst.Shop)

		u, err := url.Parse(redirect)
		require.NoError(t, err)
		require.Equal(t, "https", u.Scheme)
		require.Equal(t, "demo.myshopify.com", u.Host)
		require.Equal(t, "/admin/oauth/authorize", u.Path)

		q := u.Query()
		require.Equal(t, "client-id", q.Get("client_id"))
		require.Equal(t, "read_orders,read_products", q.Get("scope"))
		require.Equal(t, "https://app.example.com/auth/callback", q.Get("redirect_uri"))
		require.Equal(t, inst.State, q.Get("state"))
		require.Len(t, q.Get("state"), 64)
		require.Equal(t, 1, f.states.Len())
	})

	t.Run("issues a distinct state per install", func(t *testing.T) {
		f := newInstallerFixture(t, &countingExchanger{token: "tok_xyz"})

		first, _, err := f.installer.Begin(ctx, "demo.myshopify.com")
		require.NoError(t, err)
		second, _, err := f.installer.Begin(ctx, "demo.myshopify.com")
		require.NoError(t, err)
		require.NotEqual(t, first.State, second.State)
	})

	t.Run("issued state completes the install", func(t *testing.T) {
		exchanger := &countingExchanger{token: "tok_xyz"}
		f := newInstallerFixture(t, exchanger)

		inst, _, err := f.installer.Begin(ctx, "demo.myshopify.com")
		require.NoError(t, err)

		values := callbackQuery()
		values.Set("state", inst.State)
		values.Set("hmac", newVerifier(t).Digest(oauth.ParamsFromValues(values)))

		done, cred, err := f.installer.Complete(ctx, values)
		require.NoError(t, err)
		require.Equal(t, oauth.PhaseExchanged, done.Phase)
		require.Equal(t, "tok_xyz", cred.AccessToken)
	})

	t.Run("invalid shop is a bad request", func(t *testing.T) {
		f := newInstallerFixture(t, &countingExchanger{token: "tok_xyz"})

		inst, _, err := f.installer.Begin(ctx, "evil.example.com")
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
		require.ErrorIs(t, err, apperrors.ErrInvalidShop)
		require.Equal(t, oauth.PhaseFailed, inst.Phase)
		require.Zero(t, f.states.Len())
	})
}

func TestPhase(t *testing.T) {
	require.Equal(t, "awaiting_callback", oauth.PhaseAwaitingCallback.String())
	require.True(t, oauth.PhaseExchanged.Terminal())
	require.True(t, oauth.PhaseFailed.Terminal())
	require.False(t, oauth.PhaseVerified.Terminal())
}

func TestNewState(t *testing.T) {
	a, err := oauth.NewState()
	require.NoError(t, err)
	b, err := oauth.NewState()
	require.NoError(t, err)
	require.Len(t, a, 64)
	require.NotEqual(t, a, b)
}
