package oauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrMissingSignature = errors.New("oauth: hmac parameter is missing")
	ErrEmptySecret      = errors.New("oauth: shared secret is empty")
)

// Verifier checks request signatures made with the app's shared secret. It holds no
// mutable state and is safe for concurrent use.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Digest is the lowercase hex HMAC-SHA256 of the canonical message.
func (v *Verifier) Digest(params Params) string {
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write([]byte(CanonicalMessage(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the hmac parameter matches. A mismatch is (false, nil); only a
// missing hmac is an error, since that request is malformed rather than forged.
func (v *Verifier) Verify(params Params) (bool, error) {
	received, ok := params.Get("hmac")
	if !ok || received == "" {
		return false, ErrMissingSignature
	}
	return equalDigest(v.Digest(params), received), nil
}

// VerifyWebhook checks the base64 X-Shopify-Hmac-Sha256 header against the raw body.
func (v *Verifier) VerifyWebhook(body []byte, header string) error {
	if header == "" {
		return fmt.Errorf("oauth: webhook signature header is required")
	}
	received, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return fmt.Errorf("oauth: decode webhook signature: %w", err)
	}
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(body)
	if !hmac.Equal(received, mac.Sum(nil)) {
		return fmt.Errorf("oauth: webhook signature mismatch")
	}
	return nil
}

// equalDigest compares in constant time. Lengths are public (a hex SHA-256 digest is
// always 64 bytes) so a length mismatch may return early.
func equalDigest(expected, received string) bool {
	if len(expected) != len(received) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
