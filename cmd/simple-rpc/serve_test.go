package main

import (
	"context"
	"testing"
	"time"

	"simple-rpc/config"
	"simple-rpc/example/greeting"
	"simple-rpc/middleware"
	"simple-rpc/rpcerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// panicky panics in SayHello and sleeps in SayGoodbye.
type panicky struct{}

func (panicky) SayHello(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	panic("boom")
}

func (panicky) SayGoodbye(ctx context.Context, _ *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
	}
	return wrapperspb.String("late"), nil
}

func TestServerOptionsRecoverPanic(t *testing.T) {
	cfg := config.Default()
	require.Greater(t, cfg.Timeout, time.Duration(0), "default timeout must be set for this test")

	c := greeting.NewGreetingClient(greeting.NewGreetingServer(panicky{}, serverOptions(cfg)...))
	_, err := c.SayHello(context.Background(), wrapperspb.String("bob"))
	assert.ErrorIs(t, err, rpcerr.ErrApplication)

	pe, ok := rpcerr.AsApplication[*middleware.PanicError](err)
	require.True(t, ok)
	assert.Equal(t, "boom", pe.Value)
}

func TestServerOptionsTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Timeout = 20 * time.Millisecond

	c := greeting.NewGreetingClient(greeting.NewGreetingServer(panicky{}, serverOptions(cfg)...))
	_, err := c.SayGoodbye(context.Background(), wrapperspb.String("bob"))
	assert.ErrorIs(t, err, rpcerr.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, rpcerr.ErrApplication)
}

func TestServerOptionsRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit = config.RateLimit{Rate: 0.001, Burst: 1}
	cfg.Telemetry = config.Telemetry{Tracing: true, Metrics: true}

	c := greeting.NewGreetingClient(greeting.NewGreetingServer(&greeting.Service{}, serverOptions(cfg)...))
	resp, err := c.SayHello(context.Background(), wrapperspb.String("bob"))
	require.NoError(t, err)
	assert.Equal(t, "Hello, bob!", resp.GetValue())

	_, err = c.SayHello(context.Background(), wrapperspb.String("bob"))
	assert.ErrorIs(t, err, middleware.ErrRateLimited)
}
