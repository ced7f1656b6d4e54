package wcbridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURIHappyPath(t *testing.T) {
	require := require.New(t)

	u, err := ParseURI("wc:abc123@1?bridge=https%3A%2F%2Fb.example&key=deadbeef")
	require.NoError(err)
	require.Equal("abc123", u.HandshakeTopic)
	require.Equal("https://b.example", u.Bridge)
	require.Equal("deadbeef", u.Key)
}

func TestFormatURIRoundTrip(t *testing.T) {
	require := require.New(t)

	u := HandshakeURI{
		HandshakeTopic: "abc123",
		Bridge:         "https://b.example",
		Key:            "deadbeef",
	}
	formatted := FormatURI(u)
	parsed, err := ParseURI(formatted)
	require.NoError(err)
	require.Equal(u, parsed)
}

func TestFormatURIEscapesSpecialBridgeChars(t *testing.T) {
	require := require.New(t)

	u := HandshakeURI{
		HandshakeTopic: "topic",
		Bridge:         "https://b.example/relay?x=1&y=2 three",
		Key:            "abcd",
	}
	formatted := FormatURI(u)
	parsed, err := ParseURI(formatted)
	require.NoError(err)
	require.Equal(u.Bridge, parsed.Bridge)
}

func TestParseURIRejectsWrongProtocol(t *testing.T) {
	require := require.New(t)

	_, err := ParseURI("notwc:abc123@1?bridge=https%3A%2F%2Fb.example&key=deadbeef")
	require.ErrorIs(err, ErrInvalidURI)
}

func TestParseURIRejectsUnsupportedVersion(t *testing.T) {
	require := require.New(t)

	_, err := ParseURI("wc:abc123@2?bridge=https%3A%2F%2Fb.example&key=deadbeef")
	require.ErrorIs(err, ErrInvalidURI)
}

func TestParseURIRejectsMissingFields(t *testing.T) {
	require := require.New(t)

	cases := []string{
		"wc:@1?bridge=https%3A%2F%2Fb.example&key=deadbeef",
		"wc:abc123@1?bridge=&key=deadbeef",
		"wc:abc123@1?bridge=https%3A%2F%2Fb.example&key=",
		"wc:abc123@1?bridge=https%3A%2F%2Fb.example",
		"wcabc123@1?bridge=https%3A%2F%2Fb.example&key=deadbeef",
	}
	for _, raw := range cases {
		_, err := ParseURI(raw)
		require.ErrorIs(err, ErrInvalidURI, raw)
	}
}

func TestParseURIRejectsMalformedVersion(t *testing.T) {
	require := require.New(t)

	_, err := ParseURI("wc:abc123@notanumber?bridge=https%3A%2F%2Fb.example&key=deadbeef")
	require.ErrorIs(err, ErrInvalidURI)
}
