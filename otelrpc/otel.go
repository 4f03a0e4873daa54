// Package otelrpc provides OpenTelemetry instrumentation for simple-rpc servers.
// It implements the server.DispatchHook interface to add tracing and metrics to
// every dispatch.
//
// Usage:
//
//	srv := echo.NewEchoServer(impl, otelrpc.Instrument(otelrpc.DefaultConfig()))
package otelrpc

import (
	"context"
	"fmt"
	"time"

	"simple-rpc/rpcerr"
	"simple-rpc/server"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "simple_rpc"

// Config configures the instrumentation.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span of a failed dispatch. Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig enables tracing and metrics against the global providers.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// Instrument returns a server option installing NewHook(cfg).
func Instrument(cfg Config) server.Option {
	return server.WithDispatchHook(NewHook(cfg))
}

// NewHook creates a dispatch hook recording one server span, one request count and one
// duration sample per call.
func NewHook(cfg Config) server.DispatchHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	h := &hook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		h.requestCounter, _ = meter.Int64Counter("rpc.server.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of RPC requests"),
		)
		h.durationHistogram, _ = meter.Float64Histogram("rpc.server.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of RPC requests"),
		)
	}
	return h
}

type hook struct {
	cfg               Config
	tracer            trace.Tracer
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

// spanToken is the HookToken returned by OnDispatchStart.
type spanToken struct {
	span      trace.Span
	startTime time.Time
}

func (h *hook) OnDispatchStart(ctx context.Context, info server.DispatchInfo) (context.Context, server.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", instrumentationName),
		attribute.String("rpc.service", info.Service),
		attribute.String("rpc.method", info.Method),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, info.FullMethod,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return ctx, &spanToken{span: span, startTime: time.Now()}
}

func (h *hook) OnDispatchEnd(ctx context.Context, token server.HookToken, info server.DispatchInfo, stats *server.CallStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}
	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("rpc.system", instrumentationName),
			attribute.String("rpc.service", info.Service),
			attribute.String("rpc.method", info.Method),
			attribute.String("status", status),
		)
		if h.requestCounter != nil {
			h.requestCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
	}

	if st.span == nil || !st.span.IsRecording() {
		return
	}
	if stats != nil {
		st.span.SetAttributes(
			attribute.Int64("rpc.simple_rpc.input_bytes", stats.InputBytes),
			attribute.Int64("rpc.simple_rpc.output_bytes", stats.OutputBytes),
		)
	}
	if err != nil {
		st.span.SetStatus(codes.Error, err.Error())
		if h.cfg.RecordExceptions {
			st.span.RecordError(err)
		}
		errType := fmt.Sprintf("%T", err)
		if kind := rpcerr.KindOf(err); kind != 0 {
			errType = kind.String()
		}
		st.span.SetAttributes(attribute.String("rpc.simple_rpc.error_kind", errType))
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
	st.span.End()
}
