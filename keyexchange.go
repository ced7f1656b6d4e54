package wcbridge

import (
	"encoding/hex"
	"fmt"
	"sync"
)

// KeyManager owns the session's current symmetric key and the staged
// nextKey of an in-flight two-phase swap. It does not itself speak
// JSON-RPC or touch the transport — Session drives the wc_exchangeKey
// choreography and calls back into KeyManager at each state transition.
type KeyManager struct {
	mu      sync.Mutex
	crypto  Crypto
	key     []byte
	nextKey []byte
}

// NewKeyManager constructs a KeyManager with an initial key. key may be
// nil; the caller must install one before any outbound encryption.
func NewKeyManager(crypto Crypto, key []byte) *KeyManager {
	return &KeyManager{crypto: crypto, key: key}
}

// Key returns the current symmetric key.
func (k *KeyManager) Key() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key
}

// SetKey installs key as current, discarding any staged nextKey. Used
// when adopting a freshly generated or freshly loaded key outside a swap
// (session creation, session resumption).
func (k *KeyManager) SetKey(key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = key
	k.nextKey = nil
}

// BeginSwap generates and stages a nextKey for the initiator side of a
// two-phase swap. Returns ErrPreconditionViolation if a swap is already
// in flight: only one key exchange may run at a time.
func (k *KeyManager) BeginSwap() (nextKey []byte, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.nextKey != nil {
		return nil, fmt.Errorf("%w: key exchange already in flight", ErrPreconditionViolation)
	}
	nextKey, err = k.crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	k.nextKey = nextKey
	return nextKey, nil
}

// StageIncoming decodes and stages a peer-supplied nextKey for the
// responder side of a swap. Returns ErrPreconditionViolation if a swap is
// already staged: overlapping rotations are rejected rather than queued.
func (k *KeyManager) StageIncoming(nextKeyHex string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.nextKey != nil {
		return fmt.Errorf("%w: key exchange already in flight", ErrPreconditionViolation)
	}
	decoded, err := hex.DecodeString(nextKeyHex)
	if err != nil {
		return fmt.Errorf("wcbridge: malformed nextKey: %w", err)
	}
	k.nextKey = decoded
	return nil
}

// CompleteSwap atomically promotes the staged nextKey to key. It is a
// no-op if no swap is staged. Callers must only invoke this after the
// wc_exchangeKey response has been successfully encrypted (responder) or
// decrypted (initiator) — the ack is the last frame under the old key.
func (k *KeyManager) CompleteSwap() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.nextKey == nil {
		return
	}
	k.key = k.nextKey
	k.nextKey = nil
}

// AbortSwap discards a staged nextKey without promoting it, leaving key
// untouched. Used when a swap the caller started cannot complete (the
// peer rejected wc_exchangeKey, or the request could not be built or
// sent) — without this, a single rejected rotation would leave nextKey
// staged forever and every later BeginSwap would fail with
// ErrPreconditionViolation. It is a no-op if no swap is staged.
func (k *KeyManager) AbortSwap() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nextKey = nil
}

// HasPendingSwap reports whether a swap is currently staged.
func (k *KeyManager) HasPendingSwap() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.nextKey != nil
}

// exchangeKeyParams is the wc_exchangeKey request payload.
type exchangeKeyParams struct {
	PeerID   string     `json:"peerId"`
	PeerMeta ClientMeta `json:"peerMeta"`
	NextKey  string     `json:"nextKey"`
}
