package middleware

import (
	"context"
	"errors"

	"simple-rpc/rpcerr"

	"golang.org/x/time/rate"
)

// ErrRateLimited is wrapped in the transport failure returned for a rejected call.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitMiddleware 创建一个基于令牌桶算法的限流中间件
// Calls over the limit are rejected before reaching next.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, info Info, input []byte) ([]byte, error) {
			if !limiter.Allow() {
				return nil, rpcerr.Transport(info.Method, ErrRateLimited)
			}
			return next(ctx, info, input)
		}
	}
}
