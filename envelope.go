package wcbridge

import "encoding/json"

// Crypto is the narrow collaborator interface injected into the
// connector for key generation and AEAD sealing/opening. The core
// treats the envelope it produces as opaque JSON.
type Crypto interface {
	// GenerateKey returns a fresh symmetric key.
	GenerateKey() ([]byte, error)

	// Encrypt seals plaintext under key. Returns nil, nil if key is
	// empty or encryption is otherwise unavailable.
	Encrypt(plaintext []byte, key []byte) ([]byte, error)

	// Decrypt opens envelope under key. Returns nil, nil if key is
	// empty or the envelope does not authenticate.
	Decrypt(envelope []byte, key []byte) ([]byte, error)
}

// sealPayload JSON-encodes payload and seals it under key via crypto.
// Returns ErrCryptoUnavailable if the crypto collaborator reports no
// key/failure.
func sealPayload(c Crypto, payload interface{}, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	envelope, err := c.Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}
	if envelope == nil {
		return nil, ErrCryptoUnavailable
	}
	return envelope, nil
}

// openPayload opens envelope under key and unmarshals it into out.
// Returns ErrCryptoUnavailable if decryption yields nothing.
func openPayload(c Crypto, envelope []byte, key []byte, out interface{}) error {
	plaintext, err := openRaw(c, envelope, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, out)
}

// openRaw opens envelope under key and returns the plaintext, without
// assuming anything about its shape. Returns ErrCryptoUnavailable if
// decryption yields nothing.
func openRaw(c Crypto, envelope []byte, key []byte) ([]byte, error) {
	plaintext, err := c.Decrypt(envelope, key)
	if err != nil {
		return nil, err
	}
	if plaintext == nil {
		return nil, ErrCryptoUnavailable
	}
	return plaintext, nil
}
