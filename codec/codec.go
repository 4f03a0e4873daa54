// Package codec is the encode/decode boundary of the RPC core.
//
// A Codec turns a value into bytes and back, fallibly. Two kinds of values pass through
// it:
//
//   - protobuf messages (proto.Message): the typed request and response payloads
//   - *message.RPCMessage: the envelope used by the TCP transport
//
// Two codecs exist: BinaryCodec (protobuf wire format for payloads, a compact
// length-prefixed layout for envelopes) and JSONCodec (protojson for payloads,
// encoding/json for envelopes). Decoding never panics on malformed input.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
)

var (
	// ErrUnsupportedValue is returned when a codec is handed a value it cannot encode or decode into.
	ErrUnsupportedValue = errors.New("codec: unsupported value type")
	// ErrNilMessage is returned when asked to encode a nil message or decode into one.
	ErrNilMessage = errors.New("codec: nil message")
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=JSON, 1=Binary
}

// GetCodec returns the codec for a wire codec type. Unknown types fall back to Binary.
func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return &BinaryCodec{}
}

// Default is the codec used when none is configured.
func Default() Codec {
	return &BinaryCodec{}
}

// ParseCodecType maps a configuration name ("json", "binary" or its alias "proto") to a CodecType.
func ParseCodecType(name string) (CodecType, error) {
	switch strings.ToLower(name) {
	case "json":
		return CodecTypeJSON, nil
	case "binary", "proto", "protobuf", "":
		return CodecTypeBinary, nil
	}
	return 0, fmt.Errorf("codec: unknown codec %q", name)
}

func (t CodecType) String() string {
	switch t {
	case CodecTypeJSON:
		return "json"
	case CodecTypeBinary:
		return "binary"
	}
	return fmt.Sprintf("codec(%d)", byte(t))
}
