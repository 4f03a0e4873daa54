package protocol

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CompressThreshold is the smallest body worth compressing.
const CompressThreshold = 1 << 10

var (
	zOnce    sync.Once
	zEncoder *zstd.Encoder
	zDecoder *zstd.Decoder
	zErr     error
)

func coders() (*zstd.Encoder, *zstd.Decoder, error) {
	zOnce.Do(func() {
		zEncoder, zErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if zErr != nil {
			return
		}
		zDecoder, zErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxBodySize))
	})
	return zEncoder, zDecoder, zErr
}

// Compress returns body zstd-compressed. Both coders are shared and safe for concurrent use.
func Compress(body []byte) ([]byte, error) {
	enc, _, err := coders()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(body, make([]byte, 0, len(body)/2)), nil
}

// Decompress reverses Compress. Output larger than MaxBodySize is rejected.
func Decompress(body []byte) ([]byte, error) {
	_, dec, err := coders()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress body: %w", err)
	}
	return out, nil
}

// Pack prepares body for h: bodies of at least CompressThreshold bytes are compressed
// when compress is set, and h.Compressed is updated to match.
func Pack(h *Header, body []byte, compress bool) ([]byte, error) {
	h.Compressed = false
	if !compress || len(body) < CompressThreshold {
		return body, nil
	}
	packed, err := Compress(body)
	if err != nil {
		return nil, err
	}
	h.Compressed = true
	return packed, nil
}

// Unpack returns the plain body of a decoded frame.
func Unpack(h *Header, body []byte) ([]byte, error) {
	if !h.Compressed {
		return body, nil
	}
	return Decompress(body)
}
