package coordinatorrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this codec answers to: requests are
// negotiated as "application/grpc+json".
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals coordinatorrpc messages as JSON instead of protobuf
// wire format, so the protocol can run on real google.golang.org/grpc
// transport without protoc-generated message types.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
