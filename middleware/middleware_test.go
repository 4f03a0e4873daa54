package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"simple-rpc/handler"
	"simple-rpc/rpcerr"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calcMethod int

const (
	calcAdd calcMethod = iota
	calcSub
)

func (m calcMethod) Name() string {
	if m == calcSub {
		return "Sub"
	}
	return "Add"
}
func (m calcMethod) ProtoName() string { return m.Name() }
func (calcMethod) InputProtoType() string { return "google.protobuf.Int64Value" }
func (calcMethod) OutputProtoType() string { return "google.protobuf.Int64Value" }

type calcDescriptor struct{}

func (calcDescriptor) Name() string { return "Calc" }
func (calcDescriptor) ProtoName() string { return "calc.Calc" }
func (calcDescriptor) Methods() []calcMethod { return []calcMethod{calcAdd, calcSub} }

var addInfo = NewInfo[calcMethod](calcDescriptor{}, calcAdd)

// 模拟一个简单的 handler：直接返回成功响应
func echoHandler(ctx context.Context, info Info, input []byte) ([]byte, error) {
	return []byte("ok"), nil
}

// 模拟一个慢 handler：睡 200ms
func slowHandler(ctx context.Context, info Info, input []byte) ([]byte, error) {
	time.Sleep(200 * time.Millisecond)
	return []byte("ok"), nil
}

func TestInfo(t *testing.T) {
	assert.Equal(t, "calc.Calc", addInfo.Service)
	assert.Equal(t, "Add", addInfo.Method)
	assert.Equal(t, "calc.Calc/Add", addInfo.FullMethod)

	m, ok := MethodOf[calcMethod](addInfo)
	require.True(t, ok)
	assert.Equal(t, calcAdd, m)

	_, ok = MethodOf[calcMethod](Info{Method: "Add"})
	assert.False(t, ok)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	h := LoggingMiddleware(logger)(echoHandler)

	out, err := h(context.Background(), addInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Contains(t, buf.String(), "calc.Calc/Add")

	buf.Reset()
	failing := LoggingMiddleware(logger)(func(context.Context, Info, []byte) ([]byte, error) {
		return nil, rpcerr.Application("Add", errors.New("overflow"))
	})
	_, err = failing(context.Background(), addInfo, nil)
	assert.ErrorIs(t, err, rpcerr.ErrApplication)
	assert.Contains(t, buf.String(), "call failed")
	assert.Contains(t, buf.String(), "application")
}

func TestTimeoutPass(t *testing.T) {
	// 超时 500ms，handler 很快，应该正常返回
	h := TimeOutMiddleware(500 * time.Millisecond)(echoHandler)

	out, err := h(context.Background(), addInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
}

func TestTimeoutExceeded(t *testing.T) {
	// 超时 50ms，handler 需要 200ms，应该超时
	h := TimeOutMiddleware(50 * time.Millisecond)(slowHandler)

	out, err := h(context.Background(), addInfo, nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, rpcerr.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimit(t *testing.T) {
	// rate=1 per second, burst=2 → 前 2 个立刻放行，第 3 个被拒
	h := RateLimitMiddleware(1, 2)(echoHandler)

	for i := 0; i < 2; i++ {
		_, err := h(context.Background(), addInfo, nil)
		require.NoError(t, err, "request %d should pass", i)
	}

	// 第 3 个应该被限流
	_, err := h(context.Background(), addInfo, nil)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, rpcerr.KindTransport, rpcerr.KindOf(err))
}

func TestRecover(t *testing.T) {
	logger := log.New(&bytes.Buffer{})
	h := RecoverMiddleware(logger)(func(context.Context, Info, []byte) ([]byte, error) {
		panic("boom")
	})

	_, err := h(context.Background(), addInfo, nil)
	assert.ErrorIs(t, err, rpcerr.ErrApplication)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestRecoverAcrossTimeout(t *testing.T) {
	// Timeout 在独立 goroutine 中执行 handler，panic 也必须被外层 Recover 捕获
	logger := log.New(&bytes.Buffer{})
	h := Chain(
		RecoverMiddleware(logger),
		LoggingMiddleware(logger),
		TimeOutMiddleware(time.Second),
	)(func(context.Context, Info, []byte) ([]byte, error) {
		panic("boom")
	})

	out, err := h(context.Background(), addInfo, nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, rpcerr.ErrApplication)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.Contains(t, string(pe.Stack), "panic")
}

func TestTimeoutRepanics(t *testing.T) {
	h := TimeOutMiddleware(time.Second)(func(context.Context, Info, []byte) ([]byte, error) {
		panic("boom")
	})

	defer func() {
		pe, ok := recover().(*PanicError)
		require.True(t, ok, "panic not re-raised on the caller goroutine")
		assert.Equal(t, "boom", pe.Value)
	}()
	h(context.Background(), addInfo, nil)
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, info Info, input []byte) ([]byte, error) {
				order = append(order, name+".before")
				out, err := next(ctx, info, input)
				order = append(order, name+".after")
				return out, err
			}
		}
	}

	h := Chain(mark("A"), mark("B"), TimeOutMiddleware(500*time.Millisecond))(echoHandler)
	_, err := h(context.Background(), addInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.before", "B.before", "B.after", "A.after"}, order)
}

func TestWrap(t *testing.T) {
	var seen []calcMethod
	inner := handler.HandlerFunc[calcMethod](func(_ context.Context, m calcMethod, input []byte) ([]byte, error) {
		seen = append(seen, m)
		return input, nil
	})

	var infos []string
	record := func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, info Info, input []byte) ([]byte, error) {
			infos = append(infos, info.FullMethod)
			return next(ctx, info, input)
		}
	}

	h := Wrap[calcMethod](calcDescriptor{}, inner, record)
	out, err := h.Call(context.Background(), calcSub, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, out)
	assert.Equal(t, []calcMethod{calcSub}, seen)
	assert.Equal(t, []string{"calc.Calc/Sub"}, infos)
}
