package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "chat-relay"

func rotatingFile(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // 10 MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// LoggerOptions controls where InitLogger writes.
type LoggerOptions struct {
	Dir   string
	File  string
	Debug bool
	// Console mirrors log lines to stdout. Interactive clients leave it off.
	Console bool
}

// InitLogger installs a JSON slog logger writing to a rotated file under
// opts.Dir. The returned closer flushes the file.
func InitLogger(opts LoggerOptions) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	name := opts.File
	if name == "" {
		name = "chat-relay.log"
	}
	file := rotatingFile(opts.Dir, name)

	var out io.Writer = file
	if opts.Console {
		out = io.MultiWriter(os.Stdout, file)
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(slog.String("service", serviceName))
	slog.SetDefault(logger)

	return logger, file, nil
}

// Providers holds what InitTelemetry installed globally.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	shutdown func(context.Context)
}

// Shutdown flushes pending spans and metrics.
func (p *Providers) Shutdown(ctx context.Context) {
	if p.shutdown != nil {
		p.shutdown(ctx)
	}
}

// InitTelemetry sets up OpenTelemetry tracing and metrics exported to
// rotated files under dir. Metrics are exported every interval.
func InitTelemetry(ctx context.Context, dir, version string, interval time.Duration) (*Providers, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	traceFile := rotatingFile(dir, "chat-relay_traces.log")
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricsFile := rotatingFile(dir, "chat-relay_metrics.log")
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return &Providers{
		Tracer: tp.Tracer(serviceName),
		Meter:  mp.Meter(serviceName),
		shutdown: func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer provider", "error", err)
			}
			if err := mp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown meter provider", "error", err)
			}
			if err := traceFile.Close(); err != nil {
				slog.Error("failed to close trace file", "error", err)
			}
			if err := metricsFile.Close(); err != nil {
				slog.Error("failed to close metrics file", "error", err)
			}
		},
	}, nil
}
