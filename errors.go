package wcbridge

import "errors"

// Error kinds returned by the connector.
var (
	// ErrMissingInitialization is returned by the constructor when none
	// of bridge, uri or session is supplied.
	ErrMissingInitialization = errors.New("wcbridge: one of bridge, uri or session is required")

	// ErrInvalidURI is returned for a malformed handshake URI, or one
	// with the wrong protocol or an unsupported version.
	ErrInvalidURI = errors.New("wcbridge: invalid handshake uri")

	// ErrPreconditionViolation is returned by a state-machine operation
	// invoked in the wrong state.
	ErrPreconditionViolation = errors.New("wcbridge: precondition violation")

	// ErrTransportProtocolError is returned when a relay frame or its
	// inner envelope is not valid JSON.
	ErrTransportProtocolError = errors.New("wcbridge: transport protocol error")

	// ErrRPCError is returned when a JSON-RPC response carries no result.
	ErrRPCError = errors.New("wcbridge: rpc error response")

	// ErrCryptoUnavailable is returned when the injected crypto
	// collaborator cannot encrypt or decrypt (e.g. no key).
	ErrCryptoUnavailable = errors.New("wcbridge: crypto unavailable")

	// ErrTimeout is returned when a pending call exceeds its deadline.
	ErrTimeout = errors.New("wcbridge: call timed out")

	// ErrQueueFull is returned by the pre-connect send queue once it is
	// at capacity.
	ErrQueueFull = errors.New("wcbridge: pre-connect queue is full")
)
