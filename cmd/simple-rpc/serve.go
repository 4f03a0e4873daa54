package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simple-rpc/codec"
	"simple-rpc/config"
	"simple-rpc/example/echo"
	"simple-rpc/example/greeting"
	"simple-rpc/middleware"
	"simple-rpc/otelrpc"
	"simple-rpc/registry"
	"simple-rpc/server"
	"simple-rpc/transport"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd serves the demo services until SIGINT or SIGTERM.
type ServeCmd struct {
	Listen string `short:"l" long:"listen" description:"listen address, overrides the config"`
}

func (s *ServeCmd) Execute(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if s.Listen != "" {
		cfg.Listen = s.Listen
	}

	router := transport.NewRouter()
	opts := serverOptions(cfg)
	if err := transport.Mount(router, echo.NewEchoServer(&echo.Service{}, opts...)); err != nil {
		return err
	}
	if err := transport.Mount(router, greeting.NewGreetingServer(&greeting.Service{}, opts...)); err != nil {
		return err
	}

	logger := log.WithPrefix("serve")
	svr := transport.NewServer(router, transport.WithCompression(cfg.Compressed()))
	if len(cfg.Registry.Endpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.Registry.Endpoints, cfg.Registry.DialTimeout)
		if err != nil {
			return err
		}
		defer reg.Close()
		svr.WithRegistry(reg, cfg.AdvertiseAddr(), cfg.Registry.TTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Listen, "codec", cfg.CodecType(), "compression", cfg.Compressed())
		return svr.ListenAndServe("tcp", cfg.Listen)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return svr.Shutdown(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serverOptions builds the per-service options from cfg. Middlewares run outermost first.
func serverOptions(cfg config.Config) []server.Option {
	mws := []middleware.Middleware{
		middleware.RecoverMiddleware(nil),
		middleware.LoggingMiddleware(nil),
	}
	if cfg.RateLimit.Rate > 0 {
		mws = append(mws, middleware.RateLimitMiddleware(cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}
	if cfg.Timeout > 0 {
		mws = append(mws, middleware.TimeOutMiddleware(cfg.Timeout))
	}

	opts := []server.Option{
		server.WithCodec(codec.GetCodec(cfg.CodecType())),
		server.WithMiddleware(mws...),
	}
	if cfg.Telemetry.Tracing || cfg.Telemetry.Metrics {
		tc := otelrpc.DefaultConfig()
		tc.EnableTracing = cfg.Telemetry.Tracing
		tc.EnableMetrics = cfg.Telemetry.Metrics
		opts = append(opts, otelrpc.Instrument(tc))
	}
	return opts
}
