// Package server implements the typed side of dispatch.
//
// A Server wraps one service implementation through its generated dispatch function, an
// exhaustive switch over the service's method enum. Each arm calls Handle with the
// concrete request and response types of that method:
//
//	func NewEchoServer(impl Echo, opts ...server.Option) *server.Server[EchoMethod] {
//		return server.New[EchoMethod](EchoDescriptor{}, func(ctx context.Context, c codec.Codec, m EchoMethod, input []byte) ([]byte, error) {
//			switch m {
//			case EchoMethodEcho:
//				return server.Handle(ctx, c, m.Name(), input, impl.Echo)
//			default:
//				return nil, server.UnknownMethod[EchoMethod](EchoDescriptor{}, m)
//			}
//		}, opts...)
//	}
//
// Request processing pipeline:
//
//	Call(method, input) → hooks.start → Middleware Chain → Dispatch → Handle:
//	  Codec.Decode → service method → Codec.Encode
//	→ hooks.end → output bytes
//
// Server implements handler.Handler, so it can be handed straight to a client for an
// in-process call, or mounted on a transport router.
package server

import (
	"context"
	"fmt"

	"simple-rpc/codec"
	"simple-rpc/descriptor"
	"simple-rpc/middleware"
	"simple-rpc/rpcerr"

	"github.com/charmbracelet/log"
	"google.golang.org/protobuf/proto"
)

// Dispatch routes one raw call to the typed service method named by method.
type Dispatch[M descriptor.MethodDescriptor] func(ctx context.Context, c codec.Codec, method M, input []byte) ([]byte, error)

// Server serves one service implementation.
type Server[M descriptor.MethodDescriptor] struct {
	sd       descriptor.ServiceDescriptor[M]
	dispatch Dispatch[M]
	codec    codec.Codec
	hooks    []DispatchHook
	logger   *log.Logger
	handler  middleware.HandlerFunc // middleware(middleware(...(dispatch)))
}

type options struct {
	codec       codec.Codec
	middlewares []middleware.Middleware
	hooks       []DispatchHook
	logger      *log.Logger
}

// Option configures a Server.
type Option func(*options)

// WithCodec sets the payload codec. The default is codec.BinaryCodec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithMiddleware appends middlewares. They run in the order given, outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// WithDispatchHook registers a hook called around every dispatch.
func WithDispatchHook(h DispatchHook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, h)
	}
}

// WithLogger sets the logger used for hook failures.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a Server for the service described by sd.
func New[M descriptor.MethodDescriptor](sd descriptor.ServiceDescriptor[M], dispatch Dispatch[M], opts ...Option) *Server[M] {
	o := options{codec: codec.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.WithPrefix("server")
	}
	s := &Server[M]{
		sd:       sd,
		dispatch: dispatch,
		codec:    o.codec,
		hooks:    o.hooks,
		logger:   o.logger,
	}
	// Build the middleware chain once, not per request.
	s.handler = middleware.Chain(o.middlewares...)(s.businessHandler)
	return s
}

// Descriptor returns the descriptor of the served service.
func (s *Server[M]) Descriptor() descriptor.ServiceDescriptor[M] {
	return s.sd
}

// Codec returns the payload codec.
func (s *Server[M]) Codec() codec.Codec {
	return s.codec
}

// Call decodes input as the request of method, invokes the service and returns the
// encoded response. Failures are *rpcerr.Error values: Codec/Decode for bad input,
// Application for a service error, Codec/Encode for an unencodable response.
func (s *Server[M]) Call(ctx context.Context, method M, input []byte) ([]byte, error) {
	info := middleware.NewInfo(s.sd, method)
	ctx, tokens := s.startHooks(ctx, info)

	output, err := s.handler(ctx, info, input)

	stats := &CallStatistics{InputBytes: int64(len(input)), OutputBytes: int64(len(output))}
	s.endHooks(ctx, tokens, info, stats, err)
	return output, err
}

// businessHandler is the innermost HandlerFunc of the chain.
func (s *Server[M]) businessHandler(ctx context.Context, info middleware.Info, input []byte) ([]byte, error) {
	m, ok := middleware.MethodOf[M](info)
	if !ok {
		return nil, &descriptor.MethodNotFoundError{Service: s.sd.ProtoName(), Method: info.Method}
	}
	return s.dispatch(ctx, s.codec, m, input)
}

// Handle runs one typed method: decode input into a fresh request, call fn, encode the
// response. fn is never called for undecodable input and the response is never encoded
// when fn fails.
func Handle[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](ctx context.Context, c codec.Codec, name string, input []byte, fn func(context.Context, PReq) (Resp, error)) ([]byte, error) {
	req, err := codec.Unmarshal[Req, PReq](c, input)
	if err != nil {
		return nil, rpcerr.Decode(name, err)
	}

	resp, err := fn(ctx, req)
	if err != nil {
		return nil, rpcerr.Application(name, err)
	}

	output, err := c.Encode(resp)
	if err != nil {
		return nil, rpcerr.Encode(name, err)
	}
	return output, nil
}

// UnknownMethod is returned by the default arm of a generated dispatch switch. It is
// reachable only through an unchecked conversion to the method enum.
func UnknownMethod[M descriptor.MethodDescriptor](sd descriptor.ServiceDescriptor[M], m M) error {
	return &descriptor.MethodNotFoundError{Service: sd.ProtoName(), Method: fmt.Sprint(m)}
}
