// Package sessiontoken verifies the session tokens App Bridge attaches to requests made
// from the embedded admin UI.
package sessiontoken

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
	"github.com/ifrederico/shopify-bulkexport/shops"
	"github.com/pkg/errors"
)

const DefaultLeeway = 5 * time.Second

// Claims are the fields Shopify puts in a session token.
type Claims struct {
	jwt.RegisteredClaims
	// Dest is the shop's URL, e.g. https://demo.myshopify.com
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
}

// Verifier checks HS256 session tokens signed with the app's shared secret.
type Verifier struct {
	clientID string
	secret   []byte
	leeway   time.Duration
	nowFunc  func() time.Time
}

func NewVerifier(clientID, secret string) *Verifier {
	return &Verifier{
		clientID: clientID,
		secret:   []byte(secret),
		leeway:   DefaultLeeway,
		nowFunc:  time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.nowFunc = now
	return v
}

// Verify validates signature, audience and lifetime, and returns the claims together with
// the shop domain the token was issued for.
func (v *Verifier) Verify(raw string) (*Claims, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", errors.Wrap(apperrors.ErrUnauthorized, "session token is empty")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.nowFunc),
	)
	if err != nil {
		return nil, "", errors.Wrapf(apperrors.ErrUnauthorized, "session token: %v", err)
	}

	shop, err := destShop(claims.Dest)
	if err != nil {
		return nil, "", errors.Wrapf(apperrors.ErrUnauthorized, "session token dest: %v", err)
	}
	if claims.Issuer != "" {
		issuer, err := url.Parse(claims.Issuer)
		if err != nil || !strings.EqualFold(issuer.Hostname(), shop) {
			return nil, "", errors.Wrap(apperrors.ErrUnauthorized, "session token issuer does not match dest")
		}
	}
	return claims, shop, nil
}

func (v *Verifier) verificationKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}

func destShop(dest string) (string, error) {
	if dest == "" {
		return "", errors.New("dest claim is missing")
	}
	u, err := url.Parse(dest)
	if err != nil || u.Hostname() == "" {
		return "", errors.Errorf("dest claim %q is not a URL", dest)
	}
	return shops.NormalizeDomain(u.Hostname())
}

// FromRequest returns the bearer token from the Authorization header.
func FromRequest(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
