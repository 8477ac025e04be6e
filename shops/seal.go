package shops

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealKeyInfo    = "shopify-bulkexport/credential-seal/v1"
	sealNonceBytes = 24
)

var ErrSealCorrupt = errors.New("sealed credential corrupt or key mismatch")

// Sealer encrypts credentials before they leave the process. The key is derived from the
// app's shared secret, so rotating the secret invalidates previously sealed records.
type Sealer struct {
	key [32]byte
}

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sealer secret cannot be empty")
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealKeyInfo))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	return s, nil
}

// Seal returns nonce || secretbox(plain).
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	var nonce [sealNonceBytes]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("seal nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < sealNonceBytes+secretbox.Overhead {
		return nil, ErrSealCorrupt
	}
	var nonce [sealNonceBytes]byte
	copy(nonce[:], sealed[:sealNonceBytes])
	plain, ok := secretbox.Open(nil, sealed[sealNonceBytes:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealCorrupt
	}
	return plain, nil
}
