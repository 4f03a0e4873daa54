package client

import (
	"context"
	"errors"
	"testing"

	"simple-rpc/codec"
	"simple-rpc/handler"
	"simple-rpc/rpcerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type echoMethod int

const echoEcho echoMethod = 0

func (echoMethod) Name() string { return "Echo" }
func (echoMethod) ProtoName() string { return "Echo" }
func (echoMethod) InputProtoType() string { return "google.protobuf.BytesValue" }
func (echoMethod) OutputProtoType() string { return "google.protobuf.BytesValue" }

// loopback echoes the request bytes back, counting calls.
type loopback struct {
	calls int
}

func (l *loopback) Call(_ context.Context, _ echoMethod, input []byte) ([]byte, error) {
	l.calls++
	return input, nil
}

func echo(ctx context.Context, c *Client[echoMethod], req proto.Message) (*wrapperspb.BytesValue, error) {
	return Invoke[echoMethod, wrapperspb.BytesValue](ctx, c, echoEcho, req)
}

func TestClientCall(t *testing.T) {
	for _, cdc := range []codec.Codec{&codec.BinaryCodec{}, &codec.JSONCodec{}} {
		t.Run(cdc.Type().String(), func(t *testing.T) {
			h := &loopback{}
			c := New[echoMethod](h, WithCodec(cdc))

			resp, err := echo(context.Background(), c, wrapperspb.Bytes([]byte{1, 2, 3}))
			require.NoError(t, err)
			assert.Equal(t, []byte{1, 2, 3}, resp.GetValue())
			assert.Equal(t, 1, h.calls)
		})
	}
}

func TestClientEncodeFailureSkipsHandler(t *testing.T) {
	h := &loopback{}
	c := New[echoMethod](h)

	var req *wrapperspb.BytesValue // nil messages cannot be encoded
	_, err := echo(context.Background(), c, req)

	require.Error(t, err)
	assert.ErrorIs(t, err, &rpcerr.Error{Kind: rpcerr.KindCodec, Op: rpcerr.OpEncode})
	assert.ErrorIs(t, err, codec.ErrNilMessage)
	assert.Equal(t, 0, h.calls, "handler invoked for an unencodable request")
}

func TestClientTransportFailure(t *testing.T) {
	disconnected := errors.New("disconnected")
	decoded := false
	h := handler.HandlerFunc[echoMethod](func(context.Context, echoMethod, []byte) ([]byte, error) {
		return []byte{0xff}, disconnected // garbage alongside an error must not be decoded
	})
	c := New[echoMethod](h, WithCodec(&spyCodec{Codec: codec.Default(), decoded: &decoded}))

	resp, err := echo(context.Background(), c, wrapperspb.Bytes([]byte{1}))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, rpcerr.ErrTransport)
	assert.ErrorIs(t, err, disconnected)
	assert.Contains(t, err.Error(), "disconnected")
	assert.False(t, decoded, "decode attempted after a transport failure")
}

func TestClientDecodeFailure(t *testing.T) {
	h := handler.HandlerFunc[echoMethod](func(context.Context, echoMethod, []byte) ([]byte, error) {
		return []byte{0x0a, 0x09, 0x01}, nil // length 9, one byte present
	})
	c := New[echoMethod](h)

	_, err := echo(context.Background(), c, wrapperspb.Bytes(nil))
	assert.ErrorIs(t, err, &rpcerr.Error{Kind: rpcerr.KindCodec, Op: rpcerr.OpDecode})
	assert.Equal(t, rpcerr.KindCodec, rpcerr.KindOf(err))
}

func TestClientCancelledContext(t *testing.T) {
	h := &loopback{}
	c := New[echoMethod](h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := echo(ctx, c, wrapperspb.Bytes([]byte{1}))
	assert.ErrorIs(t, err, rpcerr.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.calls)
}

func TestClientDropsResponseAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := handler.HandlerFunc[echoMethod](func(_ context.Context, _ echoMethod, input []byte) ([]byte, error) {
		cancel() // the caller goes away while the response is in flight
		return input, nil
	})
	c := New[echoMethod](h)

	resp, err := echo(ctx, c, wrapperspb.Bytes([]byte{1}))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

type spyCodec struct {
	codec.Codec
	decoded *bool
}

func (s *spyCodec) Decode(data []byte, v any) error {
	*s.decoded = true
	return s.Codec.Decode(data, v)
}
