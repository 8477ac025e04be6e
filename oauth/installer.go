package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ifrederico/shopify-bulkexport/installstate"
	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
	"github.com/ifrederico/shopify-bulkexport/shops"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const stateBytes = 32

// CredentialSink receives the credential once an install succeeds.
type CredentialSink interface {
	Upsert(ctx context.Context, cred *shops.Credential) error
}

type InstallerConfig struct {
	ClientID    string
	Scopes      []string
	RedirectURL string
	StateTTL    time.Duration
	// BuildAuthorizeURL overrides https://{shop}/admin/oauth/authorize
	BuildAuthorizeURL func(shop string) string
}

// Installer drives an install from the initial redirect to a stored credential.
type Installer struct {
	cfg       InstallerConfig
	verifier  *Verifier
	exchanger Exchanger
	states    installstate.Repo
	sink      CredentialSink
	now       func() time.Time
}

func NewInstaller(cfg InstallerConfig, verifier *Verifier, exchanger Exchanger, states installstate.Repo, sink CredentialSink) *Installer {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.BuildAuthorizeURL == nil {
		cfg.BuildAuthorizeURL = AuthorizeURL
	}
	return &Installer{
		cfg:       cfg,
		verifier:  verifier,
		exchanger: exchanger,
		states:    states,
		sink:      sink,
		now:       time.Now,
	}
}

// Begin issues a fresh state nonce for shop, remembers it, and returns the Shopify
// authorize URL the merchant must be redirected to.
func (in *Installer) Begin(ctx context.Context, shop string) (*Installation, string, error) {
	inst := &Installation{Phase: PhaseUninitiated}

	domain, err := shops.NormalizeDomain(shop)
	if err != nil {
		return inst, "", inst.fail(apperrors.InvalidShop(err))
	}
	inst.Shop = domain

	state, err := NewState()
	if err != nil {
		return inst, "", inst.fail(err)
	}
	pending := installstate.Pending{Shop: domain, CreatedAt: in.now().UTC()}
	if err := in.states.Save(ctx, state, pending, in.cfg.StateTTL); err != nil {
		return inst, "", inst.fail(fmt.Errorf("[Installer Begin] save state: %w", err))
	}
	inst.State = state

	conf := &oauth2.Config{
		ClientID:    in.cfg.ClientID,
		RedirectURL: in.cfg.RedirectURL,
		// Shopify wants one comma separated scope value, not oauth2's space join
		Scopes:   []string{JoinScopes(in.cfg.Scopes)},
		Endpoint: oauth2.Endpoint{AuthURL: in.cfg.BuildAuthorizeURL(domain)},
	}
	if err := inst.advance(PhaseAwaitingCallback); err != nil {
		return inst, "", inst.fail(err)
	}
	return inst, conf.AuthCodeURL(state), nil
}

// Complete handles the callback. The returned Installation is always non-nil and ends in
// PhaseExchanged or PhaseFailed; on failure the error carries the taxonomy sentinel.
func (in *Installer) Complete(ctx context.Context, query url.Values) (*Installation, *shops.Credential, error) {
	inst := &Installation{
		Shop:  query.Get("shop"),
		State: query.Get("state"),
		Phase: PhaseAwaitingCallback,
	}

	if missing := MissingParams(query); len(missing) > 0 {
		return inst, nil, inst.fail(apperrors.Wrapf(apperrors.ErrBadRequest, "missing required params %s", strings.Join(missing, ", ")))
	}

	valid, err := in.verifier.Verify(ParamsFromValues(query))
	if err != nil {
		return inst, nil, inst.fail(apperrors.Wrapf(apperrors.ErrBadRequest, "%v", err))
	}
	if !valid {
		log.Warn().Str("shop", inst.Shop).Msg("OAuth callback HMAC validation failed")
		return inst, nil, inst.fail(apperrors.ErrSignatureInvalid)
	}

	domain, err := shops.NormalizeDomain(inst.Shop)
	if err != nil {
		return inst, nil, inst.fail(apperrors.InvalidShop(err))
	}
	inst.Shop = domain

	pending, err := in.states.Consume(ctx, inst.State)
	if err != nil {
		log.Warn().Str("shop", domain).Err(err).Msg("OAuth callback state not recognised")
		return inst, nil, inst.fail(apperrors.Wrapf(apperrors.ErrStateInvalid, "%v", err))
	}
	if pending.Shop != domain {
		log.Warn().Str("shop", domain).Str("expected_shop", pending.Shop).Msg("OAuth callback state issued for another shop")
		return inst, nil, inst.fail(apperrors.Wrapf(apperrors.ErrStateInvalid, "state was issued for a different shop"))
	}

	if err := inst.advance(PhaseVerified); err != nil {
		return inst, nil, inst.fail(err)
	}

	access, err := in.exchanger.Exchange(ctx, domain, query.Get("code"))
	if err != nil {
		return inst, nil, inst.fail(err)
	}

	cred := &shops.Credential{
		Shop:        domain,
		AccessToken: access.AccessToken,
		Scope:       access.Scope,
		Source:      shops.SourceOAuth,
		ConnectedAt: in.now().UTC(),
	}
	if err := in.sink.Upsert(ctx, cred); err != nil {
		return inst, nil, inst.fail(fmt.Errorf("[Installer Complete] store credential: %w", err))
	}
	if err := inst.advance(PhaseExchanged); err != nil {
		return inst, nil, inst.fail(err)
	}
	return inst, cred, nil
}

// NewState returns a hex encoded 32-byte nonce from crypto/rand.
func NewState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
