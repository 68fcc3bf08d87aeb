// Package rpc contains the Connect bindings for the SplitEasy API:
// procedure names, message types, and handler/client constructors for each
// service. Messages are plain Go structs serialized with a JSON codec, so
// handlers and clients speak the Connect unary protocol with
// application/json payloads.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec implements connect.Codec over encoding/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		// Empty request bodies decode as the zero message.
		return nil
	}
	return json.Unmarshal(data, message)
}

// withHandlerCodec prepends the JSON codec to handler options so callers can
// still append interceptors and other options.
func withHandlerCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

func withClientCodec(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
}
