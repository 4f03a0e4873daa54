package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"simple-rpc/rpcerr"

	"github.com/charmbracelet/log"
)

// PanicError carries a panic recovered from a service method.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RecoverMiddleware turns a panic further down the chain into an application failure
// wrapping *PanicError. A nil logger uses the package default.
func RecoverMiddleware(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, info Info, input []byte) (output []byte, err error) {
			defer func() {
				if v := recover(); v != nil {
					pe, ok := v.(*PanicError)
					if !ok {
						pe = &PanicError{Value: v, Stack: debug.Stack()}
					}
					logger.Error("recovered panic", "method", info.FullMethod, "panic", pe.Value)
					output, err = nil, rpcerr.Application(info.Method, pe)
				}
			}()
			return next(ctx, info, input)
		}
	}
}
