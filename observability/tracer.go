package observability

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reqkit/logger"
)

// TracerName is the instrumentation scope used by reqkit spans.
const TracerName = "github.com/kbukum/reqkit"

// TracerConfig configures the OpenTelemetry tracer.
type TracerConfig struct {
	// Enabled turns tracing on for the client.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// DefaultTracerConfig returns sensible defaults for development.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// InitTracer initializes the global OpenTelemetry tracer provider and the
// W3C trace-context propagator. Shut the provider down on exit.
func InitTracer(ctx context.Context, config TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracer initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"sample_rate", config.SampleRate,
	))

	return tp, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// newResource creates an OpenTelemetry resource with service metadata. The
// attributes are schemaless so merging never conflicts with the SDK default.
func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
			attribute.String("deployment.environment", environment),
		),
	)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span using the reqkit tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(TracerName).Start(ctx, name, opts...)
}

// StartClientSpan starts a client-kind span describing req. The returned
// context carries the span; inject it into the outgoing headers with
// InjectHeaders.
func StartClientSpan(ctx context.Context, tracer trace.Tracer, req *http.Request) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = Tracer(TracerName)
	}
	return tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, req.Method),
			attribute.String(AttrHTTPURL, req.URL.Redacted()),
			attribute.String(AttrServerAddress, req.URL.Hostname()),
		),
	)
}

// InjectHeaders writes the trace context carried by ctx into h using the
// global propagator.
func InjectHeaders(ctx context.Context, h http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}

// SetSpanError records an error on span.
func SetSpanError(span trace.Span, err error) {
	if span == nil || !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
}

// Span attribute keys.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPURL        = "url.full"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrServerAddress  = "server.address"
	AttrErrorCode      = "error.code"
	AttrErrorMessage   = "error.message"
	AttrRequestID      = "request.id"
)
