// Package future turns a blocking call into a value that completes later.
//
// Every call in this module is a blocking function taking a context.Context. Callers that
// want to start a call now and collect its result later wrap it with Go:
//
//	f := future.Go(ctx, func(ctx context.Context) (*wrapperspb.BytesValue, error) {
//		return client.Echo(ctx, req)
//	})
//	...
//	resp, err := f.Await(ctx)
//
// Cancel releases the call: the context handed to fn is cancelled and Await reports the
// cancellation instead of a result that arrives afterwards.
package future

import (
	"context"
	"sync"
)

// Future is the eventual result of one call. It resolves exactly once.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	val    T
	err    error
}

// Go starts fn on a new goroutine and returns its Future.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		val, err := fn(ctx)
		// A result racing with cancellation is dropped in favour of the cancellation.
		if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
			var zero T
			val, err = zero, ctxErr
		}
		f.resolve(val, err)
		cancel()
	}()
	return f
}

// Resolved returns a Future that has already completed with val and err.
func Resolved[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), cancel: func() {}}
	f.resolve(val, err)
	return f
}

func (f *Future[T]) resolve(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel aborts the call. It is safe to call more than once and after completion.
func (f *Future[T]) Cancel() {
	f.cancel()
}

// Await blocks until the result is available or ctx is done. Giving up on ctx does not
// cancel the underlying call; use Cancel for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
