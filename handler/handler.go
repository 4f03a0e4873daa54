// Package handler defines the transport abstraction used by clients.
//
// A Handler performs one raw call: it receives a method and an already-encoded request
// and returns the encoded response or a transport error. It does no decoding and no
// method validation; the type parameter M binds a Handler to exactly one service, so a
// method from another service cannot be passed to it.
//
// Handlers own their state (connections, buffers). The abstraction adds no locking and
// promises no ordering between independent calls. A Handler may be shared between
// goroutines only if its implementation documents that it is safe to do so.
package handler

import (
	"context"

	"simple-rpc/descriptor"
)

// Handler performs raw byte-to-byte calls for the service whose method enum is M.
type Handler[M descriptor.MethodDescriptor] interface {
	// Call sends input for method and returns the raw response. It returns exactly once.
	// Cancelling ctx must make Call return promptly with ctx.Err() (or an error wrapping it).
	Call(ctx context.Context, method M, input []byte) ([]byte, error)
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc[M descriptor.MethodDescriptor] func(ctx context.Context, method M, input []byte) ([]byte, error)

// Call calls f(ctx, method, input).
func (f HandlerFunc[M]) Call(ctx context.Context, method M, input []byte) ([]byte, error) {
	return f(ctx, method, input)
}
