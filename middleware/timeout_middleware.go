package middleware

import (
	"context"
	"runtime/debug"
	"time"

	"simple-rpc/rpcerr"
)

// TimeOutMiddleware bounds every call to timeout. An expired call is reported as a
// transport failure wrapping context.DeadlineExceeded; the abandoned call keeps running
// with a cancelled context. A panic in the call is re-raised on the caller's goroutine as
// a *PanicError, so a RecoverMiddleware further out still sees it.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, info Info, input []byte) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				output []byte
				err    error
				panic  *PanicError
			}
			done := make(chan result, 1)
			go func() {
				defer func() {
					if v := recover(); v != nil {
						done <- result{panic: &PanicError{Value: v, Stack: debug.Stack()}}
					}
				}()
				output, err := next(ctx, info, input)
				done <- result{output: output, err: err}
			}()

			select {
			case r := <-done:
				if r.panic != nil {
					panic(r.panic)
				}
				return r.output, r.err
			case <-ctx.Done():
				return nil, rpcerr.Transport(info.Method, ctx.Err())
			}
		}
	}
}
