package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"simple-rpc/message"

	"google.golang.org/protobuf/proto"
)

// errTruncated is returned when an envelope ends before a declared field does.
var errTruncated = errors.New("BinaryCodec: truncated envelope")

// BinaryCodec encodes protobuf payloads in the protobuf wire format and envelopes in a
// length-prefixed layout:
//
//	┌────────┬─────────────┬────────┬─────────┬────────┬───────┬──────┐
//	│ u16 n  │ServiceMethod│ u32 n  │ Payload │ u16 n  │ Error │ kind │
//	└────────┴─────────────┴────────┴─────────┴────────┴───────┴──────┘
//
// Payload encoding is deterministic: the same message always yields the same bytes.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *message.RPCMessage:
		return c.encodeEnvelope(msg)
	case proto.Message:
		if !isValid(msg) {
			return nil, ErrNilMessage
		}
		opts := proto.MarshalOptions{Deterministic: true}
		// Pre-size the buffer so MarshalAppend never grows it.
		buf := make([]byte, 0, opts.Size(msg))
		return opts.MarshalAppend(buf, msg)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	switch msg := v.(type) {
	case *message.RPCMessage:
		if msg == nil {
			return ErrNilMessage
		}
		return c.decodeEnvelope(data, msg)
	case proto.Message:
		if !isValid(msg) {
			return ErrNilMessage
		}
		return proto.Unmarshal(data, msg)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

func (c *BinaryCodec) encodeEnvelope(msg *message.RPCMessage) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	if len(msg.ServiceMethod) > 0xffff {
		return nil, fmt.Errorf("BinaryCodec: service method too long (%d bytes)", len(msg.ServiceMethod))
	}
	if len(msg.Error) > 0xffff {
		return nil, fmt.Errorf("BinaryCodec: error text too long (%d bytes)", len(msg.Error))
	}

	total := 2 + len(msg.ServiceMethod) + 4 + len(msg.Payload) + 2 + len(msg.Error) + 1
	buf := make([]byte, 0, total)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(msg.ServiceMethod)))
	buf = append(buf, msg.ServiceMethod...)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(msg.Payload)))
	buf = append(buf, msg.Payload...)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(msg.Error)))
	buf = append(buf, msg.Error...)

	buf = append(buf, msg.ErrorKind)
	return buf, nil
}

func (c *BinaryCodec) decodeEnvelope(data []byte, msg *message.RPCMessage) error {
	r := reader{data: data}

	method, err := r.bytes(int(r.uint16()))
	if err != nil {
		return err
	}
	payload, err := r.bytes(int(r.uint32()))
	if err != nil {
		return err
	}
	errText, err := r.bytes(int(r.uint16()))
	if err != nil {
		return err
	}
	kind, err := r.bytes(1)
	if err != nil {
		return err
	}
	if r.off != len(data) {
		return fmt.Errorf("BinaryCodec: %d trailing bytes after envelope", len(data)-r.off)
	}

	msg.ServiceMethod = string(method)
	msg.Payload = append([]byte(nil), payload...)
	msg.Error = string(errText)
	msg.ErrorKind = kind[0]
	return nil
}

// reader walks an envelope buffer. A short read is sticky: once the buffer is exhausted
// every later call fails, so callers only need to check the error of bytes().
type reader struct {
	data  []byte
	off   int
	short bool
}

func (r *reader) uint16() uint16 {
	b, err := r.bytes(2)
	if err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b, err := r.bytes(4)
	if err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.short || n < 0 || n > len(r.data)-r.off {
		r.short = true
		return nil, errTruncated
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// isValid reports whether m is a usable message, i.e. not nil and not a typed nil pointer.
func isValid(m proto.Message) bool {
	return m != nil && m.ProtoReflect().IsValid()
}
