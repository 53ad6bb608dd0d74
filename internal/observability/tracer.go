package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig describes where batch spans are exported and which import
// target they are tagged with
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string // empty means the protocol's local default
	Protocol       string // "grpc" or "http"
	Enabled        bool

	// Import target recorded on the resource of every span
	TargetHost     string
	TargetDatabase string
	ImportDir      string

	// SampleRatio is the fraction of root batch spans kept; 0 or >= 1 keeps all
	SampleRatio float64
}

// InitTracer installs the global tracer provider and returns its shutdown function.
// With tracing disabled a noop provider is installed so spans cost nothing.
func InitTracer(cfg TracerConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(ctx context.Context) error { return nil }, nil
	}

	client, err := newExporterClient(cfg.Protocol, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(importResourceAttributes(cfg)...),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptrace.New(context.Background(), client)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	// A batch is one span, so exports are small and infrequent
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(128),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(batchSampler(cfg.SampleRatio)),
	)

	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

func newExporterClient(protocol, endpoint string) (otlptrace.Client, error) {
	switch protocol {
	case "grpc":
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		return otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		), nil
	case "http":
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		return otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s (use 'grpc' or 'http')", protocol)
	}
}

// importResourceAttributes tags the process with the service and the database it imports into
func importResourceAttributes(cfg TracerConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DBSystemMySQL,
	}
	if cfg.TargetDatabase != "" {
		attrs = append(attrs, semconv.DBName(cfg.TargetDatabase))
	}
	if cfg.TargetHost != "" {
		attrs = append(attrs, semconv.ServerAddress(cfg.TargetHost))
	}
	if cfg.ImportDir != "" {
		attrs = append(attrs, AttrImportDir.String(cfg.ImportDir))
	}
	return attrs
}

func batchSampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
