// Package middleware wraps raw calls with cross-cutting behaviour.
//
// A middleware sees a call after the typed request has been encoded (client side) or
// before it is decoded (server side): only the method identity and the payload bytes.
// Chain composes middlewares in onion order:
//
//	Chain(A, B, C)(h) → A(B(C(h)))
//	A.before → B.before → C.before → h → C.after → B.after → A.after
//
// A middleware that fails a call on its own account returns an *rpcerr.Error so the
// caller can still tell transport, codec and application failures apart.
package middleware

import (
	"context"
	"simple-rpc/descriptor"
	"simple-rpc/handler"
)

// Info describes the call passing through a chain.
type Info struct {
	Service    string // service proto name, e.g. "echo.Echo"
	Method     string // method name, e.g. "Echo"
	FullMethod string // wire name, e.g. "echo.Echo/Echo"
	method     any    // typed method enum value
}

// NewInfo builds the Info for method m of service sd.
func NewInfo[M descriptor.MethodDescriptor](sd descriptor.ServiceDescriptor[M], m M) Info {
	return Info{
		Service:    sd.ProtoName(),
		Method:     m.Name(),
		FullMethod: descriptor.FullMethod(sd, m),
		method:     m,
	}
}

// MethodOf returns the typed method carried by info. ok is false if info was built for
// a different service.
func MethodOf[M descriptor.MethodDescriptor](info Info) (m M, ok bool) {
	m, ok = info.method.(M)
	return m, ok
}

type HandlerFunc func(ctx context.Context, info Info, input []byte) ([]byte, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Wrap applies middlewares around a client-side Handler. The chain is built once.
func Wrap[M descriptor.MethodDescriptor](sd descriptor.ServiceDescriptor[M], h handler.Handler[M], middlewares ...Middleware) handler.Handler[M] {
	if len(middlewares) == 0 {
		return h
	}
	next := Chain(middlewares...)(func(ctx context.Context, info Info, input []byte) ([]byte, error) {
		m, _ := MethodOf[M](info)
		return h.Call(ctx, m, input)
	})
	return handler.HandlerFunc[M](func(ctx context.Context, m M, input []byte) ([]byte, error) {
		return next(ctx, NewInfo(sd, m), input)
	})
}
