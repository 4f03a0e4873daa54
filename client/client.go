// Package client implements the typed side of a call.
//
// A Client wraps one Handler. Generated service clients hold a *Client and implement
// each RPC method with a single call to Invoke:
//
//	func (c *EchoClient) Echo(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
//		return client.Invoke[EchoMethod, wrapperspb.BytesValue](ctx, c.cc, EchoMethodEcho, req)
//	}
//
// Invoke pipeline:
//
//	encode(req) → Handler.Call(method, bytes) → decode(resp)
//
// Each stage reports its own failure as an *rpcerr.Error: Codec/Encode, Transport,
// Codec/Decode. Nothing is retried and no timeout is added beyond the caller's context.
package client

import (
	"context"

	"simple-rpc/codec"
	"simple-rpc/descriptor"
	"simple-rpc/handler"
	"simple-rpc/rpcerr"

	"google.golang.org/protobuf/proto"
)

// Client converts typed calls into Handler invocations for the service whose method enum is M.
type Client[M descriptor.MethodDescriptor] struct {
	handler handler.Handler[M]
	codec   codec.Codec
}

type options struct {
	codec codec.Codec
}

// Option configures a Client.
type Option func(*options)

// WithCodec sets the payload codec. Both ends of a connection must agree on it.
// The default is codec.BinaryCodec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// New wraps h in a Client.
func New[M descriptor.MethodDescriptor](h handler.Handler[M], opts ...Option) *Client[M] {
	o := options{codec: codec.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client[M]{handler: h, codec: o.codec}
}

// Handler returns the wrapped handler.
func (c *Client[M]) Handler() handler.Handler[M] {
	return c.handler
}

// Codec returns the payload codec.
func (c *Client[M]) Codec() codec.Codec {
	return c.codec
}

// Invoke performs one typed call of method with req and decodes the response into a
// freshly allocated *Resp.
//
// The Handler is not called when req cannot be encoded. A cancelled ctx is reported as
// a transport failure, and a response that arrives after cancellation is discarded
// rather than decoded.
func Invoke[M descriptor.MethodDescriptor, Resp any, PResp interface {
	*Resp
	proto.Message
}](ctx context.Context, c *Client[M], method M, req proto.Message) (PResp, error) {
	name := method.Name()
	if err := ctx.Err(); err != nil {
		return nil, rpcerr.Transport(name, err)
	}

	input, err := c.codec.Encode(req)
	if err != nil {
		return nil, rpcerr.Encode(name, err)
	}

	output, err := c.handler.Call(ctx, method, input)
	if err != nil {
		return nil, rpcerr.Transport(name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, rpcerr.Transport(name, err)
	}

	resp, err := codec.Unmarshal[Resp, PResp](c.codec, output)
	if err != nil {
		return nil, rpcerr.Decode(name, err)
	}
	return resp, nil
}
