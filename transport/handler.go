package transport

import (
	"context"

	"simple-rpc/descriptor"
	"simple-rpc/handler"
)

// Caller performs one raw call addressed by its wire name. ClientTransport and Discovery
// implement it.
type Caller interface {
	Call(ctx context.Context, serviceMethod string, payload []byte) ([]byte, error)
}

// NewHandler adapts c to the Handler of the service described by sd.
func NewHandler[M descriptor.MethodDescriptor](c Caller, sd descriptor.ServiceDescriptor[M]) handler.Handler[M] {
	return handler.HandlerFunc[M](func(ctx context.Context, method M, input []byte) ([]byte, error) {
		return c.Call(ctx, descriptor.FullMethod(sd, method), input)
	})
}
