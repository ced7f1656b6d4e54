package wcbridge

import (
	"encoding/json"
	"math/rand"
	"sync/atomic"
	"time"
)

// jsonrpcVersion is the only JSON-RPC version this connector speaks.
const jsonrpcVersion = "2.0"

// payloadIDSeq disambiguates ids allocated within the same millisecond,
// keeping payloadID non-colliding within a session without requiring a
// global lock.
var payloadIDSeq uint32

// payloadID allocates a JSON-RPC id: time-based with an entropy suffix.
func payloadID() int64 {
	seq := atomic.AddUint32(&payloadIDSeq, 1) % 1000
	entropy := rand.Intn(1000)
	return time.Now().UnixMilli()*1_000_000 + int64(seq)*1000 + int64(entropy)
}

// Request is an outbound or inbound JSON-RPC 2.0 request.
type Request struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outbound or inbound JSON-RPC 2.0 response.
type Response struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is a JSON-RPC error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BuildRequest formats a new outbound request, allocating a fresh id and
// marshaling params.
func BuildRequest(method string, params interface{}) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:      payloadID(),
		JSONRPC: jsonrpcVersion,
		Method:  method,
		Params:  raw,
	}, nil
}

// classified is the structural classification of an inbound JSON-RPC
// payload: a request if it carries a method, a response if it carries a
// result or error.
type classified struct {
	Method  *string         `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   *ResponseError  `json:"error"`
	ID      int64           `json:"id"`
	Event   *string         `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// ParseIncoming classifies raw as a Request, Response or neither. At most
// one of the returned *Request/*Response is non-nil; both are nil, with no
// error, when raw carries neither a method nor a result or error.
func ParseIncoming(raw []byte) (*Request, *Response, error) {
	var c classified
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, nil, err
	}

	if c.Method != nil {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, nil, err
		}
		return &req, nil, nil
	}

	if c.Result != nil || c.Error != nil {
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, nil, err
		}
		return nil, &resp, nil
	}

	return nil, nil, nil
}

// unmarshalParams decodes a request's raw params into out. It exists
// alongside resultOrError as the single decode point for the other
// direction of the wire: inbound request params, rather than response
// results.
func unmarshalParams(raw json.RawMessage, out interface{}) error {
	return json.Unmarshal(raw, out)
}

// marshalResult encodes v as a JSON-RPC response result.
func marshalResult(v interface{}) (json.RawMessage, error) {
	return json.Marshal(v)
}

// resultOrError unwraps resp's result into out, or returns ErrRPCError if
// resp carries an error (or neither result nor error). This is the single
// unwrap point for a response's result: callers never unwrap it a second
// time downstream.
func resultOrError(resp *Response, out interface{}) error {
	if resp.Error != nil {
		return ErrRPCError
	}
	if resp.Result == nil {
		return ErrRPCError
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}
