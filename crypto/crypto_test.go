package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	require := require.New(t)

	c := New()
	key, err := c.GenerateKey()
	require.NoError(err)
	require.Len(key, KeySize)

	plaintext := []byte(`{"jsonrpc":"2.0","id":1,"method":"wc_sessionRequest"}`)
	envelope, err := c.Encrypt(plaintext, key)
	require.NoError(err)
	require.NotEmpty(envelope)

	opened, err := c.Decrypt(envelope, key)
	require.NoError(err)
	require.Equal(plaintext, opened)
}

func TestEncryptReturnsNilWithoutKey(t *testing.T) {
	require := require.New(t)

	c := New()
	envelope, err := c.Encrypt([]byte("hi"), nil)
	require.NoError(err)
	require.Nil(envelope)
}

func TestDecryptReturnsNilWithoutKey(t *testing.T) {
	require := require.New(t)

	c := New()
	plaintext, err := c.Decrypt([]byte(`{}`), nil)
	require.NoError(err)
	require.Nil(plaintext)
}

func TestDecryptFailsToAuthenticateUnderWrongKey(t *testing.T) {
	require := require.New(t)

	c := New()
	key1, err := c.GenerateKey()
	require.NoError(err)
	key2, err := c.GenerateKey()
	require.NoError(err)

	envelope, err := c.Encrypt([]byte("secret"), key1)
	require.NoError(err)

	opened, err := c.Decrypt(envelope, key2)
	require.NoError(err)
	require.Nil(opened)
}

func TestEncryptRejectsWrongKeySize(t *testing.T) {
	require := require.New(t)

	c := New()
	_, err := c.Encrypt([]byte("hi"), []byte("too-short"))
	require.Error(err)
}

func TestGenerateKeyProducesDistinctKeys(t *testing.T) {
	require := require.New(t)

	c := New()
	k1, err := c.GenerateKey()
	require.NoError(err)
	k2, err := c.GenerateKey()
	require.NoError(err)
	require.NotEqual(k1, k2)
}
