package codec

import "google.golang.org/protobuf/proto"

// Marshal encodes a typed message with c.
func Marshal[M proto.Message](c Codec, m M) ([]byte, error) {
	return c.Encode(m)
}

// Unmarshal decodes data into a freshly allocated *T with c. The type parameter pair is
// what lets generated code say codec.Unmarshal[pb.Request](c, data) and get a
// *pb.Request back without reflection.
func Unmarshal[T any, PT interface {
	*T
	proto.Message
}](c Codec, data []byte) (PT, error) {
	msg := PT(new(T))
	if err := c.Decode(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
