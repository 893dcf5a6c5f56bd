package jsonrpc

import (
	"bytes"
	"fmt"

	"github.com/perfwatch/plugins/json"
)

// Version is the only protocol version this server speaks.
const Version = "2.0"

// Request is a single JSON-RPC request envelope. ID is a pointer so a
// present id of 0 can be told apart from a missing one: 0 is a valid id
// here, only an absent or non-integer id makes the envelope unanswerable.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a single success envelope. The result field is always present,
// even for zero values.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
	ID      int64  `json:"id"`
}

type errorResponse struct {
	JSONRPC string `json:"jsonrpc"`
	Error   *Error `json:"error"`
	ID      int64  `json:"id"`
}

// successEnvelope serializes a result envelope for id.
func successEnvelope(id int64, result any) ([]byte, error) {
	return json.Marshal(Response{JSONRPC: Version, Result: result, ID: id})
}

// errorEnvelope serializes an error envelope for id. Serialization of an
// Error cannot realistically fail, but if it does a preformatted fallback
// keeps the wire format intact.
func errorEnvelope(id int64, rpcErr *Error) []byte {
	data, err := json.Marshal(errorResponse{JSONRPC: Version, Error: rpcErr, ID: id})
	if err != nil {
		return []byte(fmt.Sprintf(
			`{"jsonrpc":"2.0","error":{"code":%d,"message":"Internal error."},"id":%d}`,
			CodeInternalError, id))
	}
	return data
}

// firstByte returns the first non-whitespace byte of data, or 0.
func firstByte(data []byte) byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
