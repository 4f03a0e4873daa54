package middleware

import (
	"context"
	"time"

	"simple-rpc/rpcerr"

	"github.com/charmbracelet/log"
)

// LoggingMiddleware logs every call with its duration, and the failure kind when it fails.
// A nil logger uses the package default.
func LoggingMiddleware(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, info Info, input []byte) ([]byte, error) {
			start := time.Now()
			output, err := next(ctx, info, input)
			duration := time.Since(start)
			if err != nil {
				logger.Error("call failed", "method", info.FullMethod, "kind", rpcerr.KindOf(err), "duration", duration, "err", err)
				return output, err
			}
			logger.Debug("call", "method", info.FullMethod, "in", len(input), "out", len(output), "duration", duration)
			return output, nil
		}
	}
}
