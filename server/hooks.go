package server

import (
	"context"

	"simple-rpc/middleware"
)

// DispatchHook provides observability callpoints around every dispatch.
// Implementations must be safe for concurrent use.
type DispatchHook interface {
	OnDispatchStart(ctx context.Context, info DispatchInfo) (context.Context, HookToken)
	OnDispatchEnd(ctx context.Context, token HookToken, info DispatchInfo, stats *CallStatistics, err error)
}

// HookToken is an opaque value returned by OnDispatchStart and passed back to
// OnDispatchEnd. Only meaningful to the DispatchHook that created it.
type HookToken any

// DispatchInfo carries the identity of the dispatched method.
type DispatchInfo = middleware.Info

// CallStatistics holds per-call payload sizes.
type CallStatistics struct {
	InputBytes  int64
	OutputBytes int64
}

// startHooks runs OnDispatchStart for every hook. A panicking hook is logged and
// skipped for the rest of the call.
func (s *Server[M]) startHooks(ctx context.Context, info DispatchInfo) (context.Context, []HookToken) {
	if len(s.hooks) == 0 {
		return ctx, nil
	}
	tokens := make([]HookToken, len(s.hooks))
	for i, h := range s.hooks {
		tokens[i] = skipped{}
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					s.logger.Error("dispatch hook start panic", "method", info.FullMethod, "err", rv)
				}
			}()
			hookCtx, token := h.OnDispatchStart(ctx, info)
			if hookCtx != nil {
				ctx = hookCtx
			}
			tokens[i] = token
		}()
	}
	return ctx, tokens
}

// skipped marks a hook whose start panicked.
type skipped struct{}

func (s *Server[M]) endHooks(ctx context.Context, tokens []HookToken, info DispatchInfo, stats *CallStatistics, err error) {
	// Reverse order, so the first hook sees the whole call.
	for i := len(s.hooks) - 1; i >= 0; i-- {
		if _, ok := tokens[i].(skipped); ok {
			continue
		}
		h := s.hooks[i]
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					s.logger.Error("dispatch hook end panic", "method", info.FullMethod, "err", rv)
				}
			}()
			h.OnDispatchEnd(ctx, tokens[i], info, stats, err)
		}()
	}
}
