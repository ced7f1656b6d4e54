package wcbridge

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

type sequentialCrypto struct {
	calls int
}

func (c *sequentialCrypto) GenerateKey() ([]byte, error) {
	c.calls++
	key := make([]byte, 32)
	key[0] = byte(c.calls)
	return key, nil
}

func (c *sequentialCrypto) Encrypt(plaintext []byte, key []byte) ([]byte, error) { return nil, nil }
func (c *sequentialCrypto) Decrypt(envelope []byte, key []byte) ([]byte, error)  { return nil, nil }

func TestKeyManagerBeginSwapStagesNextKey(t *testing.T) {
	require := require.New(t)

	c := &sequentialCrypto{}
	km := NewKeyManager(c, []byte("initial-key-000000000000000000"))

	nextKey, err := km.BeginSwap()
	require.NoError(err)
	require.NotEmpty(nextKey)
	require.True(km.HasPendingSwap())
	// Current key unchanged until CompleteSwap.
	require.Equal([]byte("initial-key-000000000000000000"), km.Key())
}

func TestKeyManagerBeginSwapRejectsOverlap(t *testing.T) {
	require := require.New(t)

	c := &sequentialCrypto{}
	km := NewKeyManager(c, []byte("k"))

	_, err := km.BeginSwap()
	require.NoError(err)

	_, err = km.BeginSwap()
	require.ErrorIs(err, ErrPreconditionViolation)
}

func TestKeyManagerCompleteSwapPromotesNextKey(t *testing.T) {
	require := require.New(t)

	c := &sequentialCrypto{}
	km := NewKeyManager(c, []byte("old"))

	nextKey, err := km.BeginSwap()
	require.NoError(err)
	km.CompleteSwap()

	require.Equal(nextKey, km.Key())
	require.False(km.HasPendingSwap())
}

func TestKeyManagerCompleteSwapNoOpWithoutStagedKey(t *testing.T) {
	require := require.New(t)

	km := NewKeyManager(&sequentialCrypto{}, []byte("old"))
	km.CompleteSwap()
	require.Equal([]byte("old"), km.Key())
}

func TestKeyManagerStageIncomingRejectsOverlap(t *testing.T) {
	require := require.New(t)

	km := NewKeyManager(&sequentialCrypto{}, []byte("old"))
	nextKey := make([]byte, 32)
	nextKey[0] = 9

	require.NoError(km.StageIncoming(hex.EncodeToString(nextKey)))
	err := km.StageIncoming(hex.EncodeToString(nextKey))
	require.ErrorIs(err, ErrPreconditionViolation)
}

func TestKeyManagerStageIncomingRejectsMalformedHex(t *testing.T) {
	require := require.New(t)

	km := NewKeyManager(&sequentialCrypto{}, []byte("old"))
	err := km.StageIncoming("not-hex")
	require.Error(err)
}

func TestKeyManagerAbortSwapClearsStagedKeyAndUnblocksFutureSwaps(t *testing.T) {
	require := require.New(t)

	km := NewKeyManager(&sequentialCrypto{}, []byte("old"))
	_, err := km.BeginSwap()
	require.NoError(err)
	require.True(km.HasPendingSwap())

	km.AbortSwap()
	require.False(km.HasPendingSwap())
	require.Equal([]byte("old"), km.Key())

	_, err = km.BeginSwap()
	require.NoError(err)
}

func TestKeyManagerAbortSwapNoOpWithoutStagedKey(t *testing.T) {
	require := require.New(t)

	km := NewKeyManager(&sequentialCrypto{}, []byte("old"))
	km.AbortSwap()
	require.False(km.HasPendingSwap())
	require.Equal([]byte("old"), km.Key())
}

func TestKeyManagerSetKeyDiscardsStagedSwap(t *testing.T) {
	require := require.New(t)

	km := NewKeyManager(&sequentialCrypto{}, []byte("old"))
	_, err := km.BeginSwap()
	require.NoError(err)
	require.True(km.HasPendingSwap())

	km.SetKey([]byte("fresh"))
	require.False(km.HasPendingSwap())
	require.Equal([]byte("fresh"), km.Key())
}
