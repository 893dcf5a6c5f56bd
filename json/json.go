// Package json wraps json-iterator behind a stdlib-compatible API so the
// rest of the module never imports a JSON library directly.
package json

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage is a raw encoded JSON value.
type RawMessage = jsoniter.RawMessage

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalToString(v any) (string, error) {
	return api.MarshalToString(v)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

func Valid(data []byte) bool {
	return api.Valid(data)
}

func NewEncoder(w io.Writer) *jsoniter.Encoder {
	return api.NewEncoder(w)
}

func NewDecoder(r io.Reader) *jsoniter.Decoder {
	return api.NewDecoder(r)
}
