package codec

import (
	"encoding/json"
	"fmt"
	"simple-rpc/message"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// JSONCodec encodes protobuf payloads with protojson and envelopes with encoding/json.
// Pros: human-readable, cross-language, easy to debug.
// Cons: slower, larger payloads, and field names travel with every message.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *message.RPCMessage:
		if msg == nil {
			return nil, ErrNilMessage
		}
		return json.Marshal(msg)
	case proto.Message:
		if !isValid(msg) {
			return nil, ErrNilMessage
		}
		// protojson output is not byte-stable across releases; it is stable within one build.
		return protojson.Marshal(msg)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	switch msg := v.(type) {
	case *message.RPCMessage:
		if msg == nil {
			return ErrNilMessage
		}
		return json.Unmarshal(data, msg)
	case proto.Message:
		if !isValid(msg) {
			return ErrNilMessage
		}
		return protojson.Unmarshal(data, msg)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
