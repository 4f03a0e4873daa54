package server

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"simple-rpc/codec"
	"simple-rpc/descriptor"
	"simple-rpc/middleware"
	"simple-rpc/rpcerr"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type greetMethod int

const (
	greetHello greetMethod = iota
	greetBye
)

func (m greetMethod) Name() string {
	switch m {
	case greetHello:
		return "SayHello"
	case greetBye:
		return "SayGoodbye"
	}
	return ""
}

func (m greetMethod) ProtoName() string { return m.Name() }
func (greetMethod) InputProtoType() string { return "google.protobuf.StringValue" }
func (greetMethod) OutputProtoType() string { return "google.protobuf.StringValue" }

type greetDescriptor struct{}

func (greetDescriptor) Name() string { return "Greeting" }
func (greetDescriptor) ProtoName() string { return "greeting.Greeting" }
func (greetDescriptor) Methods() []greetMethod { return []greetMethod{greetHello, greetBye} }

var errNoName = errors.New("no name")

type notFoundError struct{ who string }

func (e *notFoundError) Error() string { return e.who + " not found" }

// greeter is a service implementation; calls counts every invocation.
type greeter struct {
	calls int
}

func (g *greeter) SayHello(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	g.calls++
	switch req.GetValue() {
	case "":
		return nil, errNoName
	case "ghost":
		return nil, &notFoundError{who: "ghost"}
	case "void":
		return nil, nil
	case "panic":
		panic("greeter exploded")
	}
	return wrapperspb.String("Hello, " + req.GetValue()), nil
}

func (g *greeter) SayGoodbye(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	g.calls++
	return wrapperspb.String("Goodbye, " + req.GetValue()), nil
}

func newGreetServer(impl *greeter, opts ...Option) *Server[greetMethod] {
	return New[greetMethod](greetDescriptor{}, func(ctx context.Context, c codec.Codec, m greetMethod, input []byte) ([]byte, error) {
		switch m {
		case greetHello:
			return Handle(ctx, c, m.Name(), input, impl.SayHello)
		case greetBye:
			return Handle(ctx, c, m.Name(), input, impl.SayGoodbye)
		default:
			return nil, UnknownMethod[greetMethod](greetDescriptor{}, m)
		}
	}, opts...)
}

func call(t *testing.T, s *Server[greetMethod], m greetMethod, name string) (*wrapperspb.StringValue, error) {
	t.Helper()
	input, err := s.Codec().Encode(wrapperspb.String(name))
	require.NoError(t, err)

	output, err := s.Call(context.Background(), m, input)
	if err != nil {
		return nil, err
	}
	return codec.Unmarshal[wrapperspb.StringValue](s.Codec(), output)
}

func TestServerDispatch(t *testing.T) {
	for _, cdc := range []codec.Codec{&codec.BinaryCodec{}, &codec.JSONCodec{}} {
		t.Run(cdc.Type().String(), func(t *testing.T) {
			g := &greeter{}
			s := newGreetServer(g, WithCodec(cdc))

			resp, err := call(t, s, greetHello, "bob")
			require.NoError(t, err)
			assert.Equal(t, "Hello, bob", resp.GetValue())

			resp, err = call(t, s, greetBye, "bob")
			require.NoError(t, err)
			assert.Equal(t, "Goodbye, bob", resp.GetValue())
			assert.Equal(t, 2, g.calls)
		})
	}
}

func TestServerMalformedInput(t *testing.T) {
	g := &greeter{}
	s := newGreetServer(g)

	_, err := s.Call(context.Background(), greetHello, []byte{0x0a, 0x05, 'a'})
	assert.ErrorIs(t, err, &rpcerr.Error{Kind: rpcerr.KindCodec, Op: rpcerr.OpDecode})
	assert.Zero(t, g.calls, "service invoked with undecodable input")
}

func TestServerApplicationError(t *testing.T) {
	encodes := 0
	g := &greeter{}
	s := newGreetServer(g, WithCodec(&countingCodec{Codec: codec.Default(), encodes: &encodes}))

	_, err := call(t, s, greetHello, "")
	assert.ErrorIs(t, err, rpcerr.ErrApplication)
	assert.ErrorIs(t, err, errNoName)
	assert.Equal(t, 1, encodes, "response encoded after a service failure") // the request only

	_, err = call(t, s, greetHello, "ghost")
	nf, ok := rpcerr.AsApplication[*notFoundError](err)
	require.True(t, ok)
	assert.Equal(t, "ghost", nf.who)
}

func TestServerNilResponse(t *testing.T) {
	s := newGreetServer(&greeter{})

	_, err := call(t, s, greetHello, "void")
	assert.ErrorIs(t, err, &rpcerr.Error{Kind: rpcerr.KindCodec, Op: rpcerr.OpEncode})
	assert.ErrorIs(t, err, codec.ErrNilMessage)
}

func TestServerUnknownMethod(t *testing.T) {
	g := &greeter{}
	s := newGreetServer(g)

	_, err := s.Call(context.Background(), greetMethod(42), nil)
	assert.ErrorIs(t, err, descriptor.ErrMethodNotFound)
	assert.Zero(t, g.calls)
}

func TestServerMiddleware(t *testing.T) {
	var seen []string
	record := func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, info middleware.Info, input []byte) ([]byte, error) {
			seen = append(seen, info.FullMethod)
			return next(ctx, info, input)
		}
	}
	logger := log.New(&bytes.Buffer{})
	s := newGreetServer(&greeter{}, WithMiddleware(middleware.RecoverMiddleware(logger), record))

	_, err := call(t, s, greetBye, "amy")
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting.Greeting/SayGoodbye"}, seen)

	_, err = call(t, s, greetHello, "panic")
	assert.ErrorIs(t, err, rpcerr.ErrApplication)
	var pe *middleware.PanicError
	assert.ErrorAs(t, err, &pe)
}

type ctxKey struct{}

type recordingHook struct {
	started []string
	ended   []error
	stats   []CallStatistics
	sawCtx  bool
}

func (h *recordingHook) OnDispatchStart(ctx context.Context, info DispatchInfo) (context.Context, HookToken) {
	h.started = append(h.started, info.FullMethod)
	return context.WithValue(ctx, ctxKey{}, "hooked"), info.Method
}

func (h *recordingHook) OnDispatchEnd(ctx context.Context, token HookToken, info DispatchInfo, stats *CallStatistics, err error) {
	h.sawCtx = ctx.Value(ctxKey{}) == "hooked" && token == info.Method
	h.ended = append(h.ended, err)
	h.stats = append(h.stats, *stats)
}

type panickingHook struct{}

func (panickingHook) OnDispatchStart(ctx context.Context, _ DispatchInfo) (context.Context, HookToken) {
	panic("start")
}

func (panickingHook) OnDispatchEnd(context.Context, HookToken, DispatchInfo, *CallStatistics, error) {
	panic("end")
}

func TestServerHooks(t *testing.T) {
	var logs bytes.Buffer
	h := &recordingHook{}
	s := newGreetServer(&greeter{},
		WithDispatchHook(panickingHook{}),
		WithDispatchHook(h),
		WithLogger(log.New(&logs)),
	)

	_, err := call(t, s, greetHello, "bob")
	require.NoError(t, err)
	_, err = call(t, s, greetHello, "")
	require.Error(t, err)

	assert.Equal(t, []string{"greeting.Greeting/SayHello", "greeting.Greeting/SayHello"}, h.started)
	require.Len(t, h.ended, 2)
	assert.NoError(t, h.ended[0])
	assert.ErrorIs(t, h.ended[1], rpcerr.ErrApplication)
	assert.True(t, h.sawCtx)
	assert.Equal(t, int64(5), h.stats[0].InputBytes) // field 1, length 3, "bob"
	assert.Positive(t, h.stats[0].OutputBytes)
	assert.Contains(t, logs.String(), "dispatch hook start panic")
}

type countingCodec struct {
	codec.Codec
	encodes *int
}

func (c *countingCodec) Encode(v any) ([]byte, error) {
	*c.encodes++
	return c.Codec.Encode(v)
}
