package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/luftkuhl/ninethree-backend/internal/platform/envutil"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

// Setup wires the tracer provider when OTEL_ENABLED is set. With an OTLP
// endpoint configured spans go there; otherwise they go to stdout, which
// is enough for local debugging of the retrieval pipeline.
func Setup(ctx context.Context, log *logger.Logger) (func(context.Context) error, error) {
	if !envutil.GetBool("OTEL_ENABLED", false) {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(envutil.Get("OTEL_SERVICE_NAME", "ninethree-backend")),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if endpoint := envutil.Get("OTEL_EXPORTER_OTLP_ENDPOINT", ""); endpoint != "" {
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(endpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		log.Info("tracing enabled", "exporter", "otlp-http", "endpoint", endpoint)
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		log.Info("tracing enabled", "exporter", "stdout")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
