package wcbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRequestAllocatesFreshIDs(t *testing.T) {
	require := require.New(t)

	r1, err := BuildRequest("eth_sign", []string{"a"})
	require.NoError(err)
	r2, err := BuildRequest("eth_sign", []string{"a"})
	require.NoError(err)

	require.NotEqual(r1.ID, r2.ID)
	require.Equal(jsonrpcVersion, r1.JSONRPC)
	require.Equal("eth_sign", r1.Method)
}

func TestParseIncomingClassifiesRequest(t *testing.T) {
	require := require.New(t)

	raw := []byte(`{"id":1,"jsonrpc":"2.0","method":"wc_sessionRequest","params":[{"peerId":"p"}]}`)
	req, resp, err := ParseIncoming(raw)
	require.NoError(err)
	require.Nil(resp)
	require.NotNil(req)
	require.Equal("wc_sessionRequest", req.Method)
	require.EqualValues(1, req.ID)
}

func TestParseIncomingClassifiesResponse(t *testing.T) {
	require := require.New(t)

	raw := []byte(`{"id":7,"jsonrpc":"2.0","result":"0xdeadbeef"}`)
	req, resp, err := ParseIncoming(raw)
	require.NoError(err)
	require.Nil(req)
	require.NotNil(resp)
	require.EqualValues(7, resp.ID)

	var result string
	require.NoError(json.Unmarshal(resp.Result, &result))
	require.Equal("0xdeadbeef", result)
}

func TestParseIncomingClassifiesErrorResponse(t *testing.T) {
	require := require.New(t)

	raw := []byte(`{"id":7,"jsonrpc":"2.0","error":{"code":-32000,"message":"nope"}}`)
	req, resp, err := ParseIncoming(raw)
	require.NoError(err)
	require.Nil(req)
	require.NotNil(resp)
	require.NotNil(resp.Error)
	require.Equal("nope", resp.Error.Message)
}

func TestParseIncomingNeitherShape(t *testing.T) {
	require := require.New(t)

	raw := []byte(`{"id":7,"jsonrpc":"2.0"}`)
	req, resp, err := ParseIncoming(raw)
	require.NoError(err)
	require.Nil(req)
	require.Nil(resp)
}

func TestParseIncomingMalformedJSON(t *testing.T) {
	require := require.New(t)

	_, _, err := ParseIncoming([]byte(`not json`))
	require.Error(err)
}

func TestResultOrErrorRejectsWithoutResult(t *testing.T) {
	require := require.New(t)

	var out string
	err := resultOrError(&Response{ID: 1, JSONRPC: jsonrpcVersion}, &out)
	require.ErrorIs(err, ErrRPCError)
}

func TestResultOrErrorRejectsOnErrorField(t *testing.T) {
	require := require.New(t)

	var out string
	resp := &Response{ID: 1, JSONRPC: jsonrpcVersion, Error: &ResponseError{Code: -1, Message: "bad"}}
	err := resultOrError(resp, &out)
	require.ErrorIs(err, ErrRPCError)
}

func TestResultOrErrorUnwrapsResult(t *testing.T) {
	require := require.New(t)

	raw, err := marshalResult("0xdeadbeef")
	require.NoError(err)
	resp := &Response{ID: 1, JSONRPC: jsonrpcVersion, Result: raw}

	var out string
	require.NoError(resultOrError(resp, &out))
	require.Equal("0xdeadbeef", out)
}
