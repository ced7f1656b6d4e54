package wcbridge

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// uriVersion is the only handshake URI version this connector understands.
const uriVersion = 1

// HandshakeURI is the parsed form of a `wc:` handshake URI: the rendezvous
// topic, relay bridge and symmetric key shared out-of-band via QR code.
type HandshakeURI struct {
	HandshakeTopic string
	Bridge         string
	Key            string // hex-encoded
}

// FormatURI emits the handshake URI for u: `wc:<topic>@<version>?bridge=<urlenc>&key=<hex>`.
func FormatURI(u HandshakeURI) string {
	v := url.Values{}
	v.Set("bridge", u.Bridge)
	v.Set("key", u.Key)
	return fmt.Sprintf("wc:%s@%d?%s", u.HandshakeTopic, uriVersion, v.Encode())
}

// ParseURI parses a handshake URI, failing with ErrInvalidURI if the
// protocol isn't "wc", the version is unsupported, or any of topic,
// bridge or key is empty.
func ParseURI(raw string) (HandshakeURI, error) {
	const protocol = "wc"

	rest, ok := strings.CutPrefix(raw, protocol+":")
	if !ok {
		return HandshakeURI{}, fmt.Errorf("%w: missing %q protocol", ErrInvalidURI, protocol)
	}

	topic, rest, ok := strings.Cut(rest, "@")
	if !ok {
		return HandshakeURI{}, fmt.Errorf("%w: missing version separator", ErrInvalidURI)
	}
	if topic == "" {
		return HandshakeURI{}, fmt.Errorf("%w: empty handshake topic", ErrInvalidURI)
	}

	versionStr, query, ok := strings.Cut(rest, "?")
	if !ok {
		return HandshakeURI{}, fmt.Errorf("%w: missing query", ErrInvalidURI)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return HandshakeURI{}, fmt.Errorf("%w: malformed version %q", ErrInvalidURI, versionStr)
	}
	if version != uriVersion {
		return HandshakeURI{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidURI, version)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return HandshakeURI{}, fmt.Errorf("%w: malformed query: %v", ErrInvalidURI, err)
	}

	bridge := values.Get("bridge")
	if bridge == "" {
		return HandshakeURI{}, fmt.Errorf("%w: empty bridge", ErrInvalidURI)
	}
	key := values.Get("key")
	if key == "" {
		return HandshakeURI{}, fmt.Errorf("%w: empty key", ErrInvalidURI)
	}

	return HandshakeURI{
		HandshakeTopic: topic,
		Bridge:         bridge,
		Key:            key,
	}, nil
}
