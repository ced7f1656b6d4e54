// Package crypto provides the default AEAD implementation of the narrow
// collaborator interface the connector injects for key generation and
// envelope sealing/opening. Swapping this package out for another
// implementation of wcbridge.Crypto is fully supported; this one exists so
// the connector is runnable out of the box, using
// golang.org/x/crypto/nacl/secretbox for authenticated encryption.
package crypto

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the length in bytes of a symmetric session key.
const KeySize = 32

// nonceSize is the length in bytes of a secretbox nonce.
const nonceSize = 24

// sealedEnvelope is the on-the-wire JSON shape produced by Encrypt. It is
// treated as opaque by every layer above the crypto package.
type sealedEnvelope struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Crypto is the default implementation, using a nacl secretbox (XSalsa20 +
// Poly1305) AEAD.
type Crypto struct {
	rand io.Reader
}

// New returns a Crypto reading randomness from crypto/rand.
func New() *Crypto {
	return &Crypto{rand: rand.Reader}
}

// GenerateKey returns a fresh random symmetric key.
func (c *Crypto) GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(c.rand, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plaintext under key, returning the JSON-encoded envelope.
// Returns nil, nil if key is empty: callers must not emit a frame.
func (c *Crypto) Encrypt(plaintext []byte, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if len(key) != KeySize {
		return nil, errors.New("crypto: invalid key size")
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
		return nil, err
	}
	var k [KeySize]byte
	copy(k[:], key)

	sealed := secretbox.Seal(nil, plaintext, &nonce, &k)
	return json.Marshal(sealedEnvelope{Nonce: nonce[:], Ciphertext: sealed})
}

// Decrypt opens an envelope produced by Encrypt. Returns nil, nil
// (no error) if key is empty or the envelope fails to authenticate.
func (c *Crypto) Decrypt(envelope []byte, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if len(key) != KeySize {
		return nil, errors.New("crypto: invalid key size")
	}

	var sealed sealedEnvelope
	if err := json.Unmarshal(envelope, &sealed); err != nil {
		return nil, err
	}
	if len(sealed.Nonce) != nonceSize {
		return nil, nil
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed.Nonce)
	var k [KeySize]byte
	copy(k[:], key)

	plaintext, ok := secretbox.Open(nil, sealed.Ciphertext, &nonce, &k)
	if !ok {
		return nil, nil
	}
	return plaintext, nil
}
