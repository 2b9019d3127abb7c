package netsimrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding/grpc's Codec interface with JSON instead of
// a real protobuf wire format, registered under the "proto" name so it is
// picked up by default (empty content-subtype) without a client/server
// needing to opt in explicitly. This is the stand-in for protoc-generated
// marshalling spec.md §1 assumes already exists.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
