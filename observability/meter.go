package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/reqkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns metrics on for the client.
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
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the global OpenTelemetry meter provider.
// Shut the provider down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// ClientMetrics holds the instruments recorded for outgoing HTTP requests.
type ClientMetrics struct {
	client          string
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	errorTotal      metric.Int64Counter
	retryTotal      metric.Int64Counter
}

// NewClientMetrics creates client instruments on meter. client labels every
// measurement so several clients can share one meter.
func NewClientMetrics(meter metric.Meter, client string) (*ClientMetrics, error) {
	requestTotal, err := meter.Int64Counter("http.client.request.total",
		metric.WithDescription("Total number of outgoing requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.request.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("http.client.request.duration",
		metric.WithDescription("Duration of outgoing requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("http.client.request.active",
		metric.WithDescription("Number of requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.request.active gauge: %w", err)
	}

	errorTotal, err := meter.Int64Counter("http.client.error.total",
		metric.WithDescription("Failed requests by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.error.total counter: %w", err)
	}

	retryTotal, err := meter.Int64Counter("http.client.retry.total",
		metric.WithDescription("Retried requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.retry.total counter: %w", err)
	}

	return &ClientMetrics{
		client:          client,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
		errorTotal:      errorTotal,
		retryTotal:      retryTotal,
	}, nil
}

// RecordStart increments the in-flight request count.
func (m *ClientMetrics) RecordStart(ctx context.Context, method, host string) {
	m.requestActive.Add(ctx, 1, metric.WithAttributes(m.attrs(method, host)...))
}

// RecordEnd decrements in-flight requests and records the completed
// exchange. status is 0 when no response was received; code is the error
// code or empty on success.
func (m *ClientMetrics) RecordEnd(ctx context.Context, method, host string, status int, code string, duration time.Duration) {
	base := m.attrs(method, host)
	m.requestActive.Add(ctx, -1, metric.WithAttributes(base...))

	outcome := append(base, attribute.String("status", statusLabel(status)))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(outcome...))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(base...))

	if code != "" {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String("code", code))...))
	}
}

// RecordRetry records one retry of a request.
func (m *ClientMetrics) RecordRetry(ctx context.Context, method, host string, attempt int) {
	m.retryTotal.Add(ctx, 1, metric.WithAttributes(append(m.attrs(method, host), attribute.Int("attempt", attempt))...))
}

func (m *ClientMetrics) attrs(method, host string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("client", m.client),
		attribute.String("method", method),
		attribute.String("host", host),
	}
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}
