package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/anyhttp/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns defaults for a local collector.
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

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
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

// Instrument names.
const (
	MetricRequests = "http.client.requests"
	MetricDuration = "http.client.duration"
	MetricActive   = "http.client.active"
	MetricErrors   = "http.client.errors"
)

// Metrics holds the client exchange instruments.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	errors   metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Completed client exchanges"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Time until response headers or failure"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}

	active, err := meter.Int64UpDownCounter(MetricActive,
		metric.WithDescription("Exchanges in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricActive, err)
	}

	errs, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Failed exchanges by error type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	return &Metrics{
		requests: requests,
		duration: duration,
		active:   active,
		errors:   errs,
	}, nil
}

// ExchangeStarted increments the in-flight count.
func (m *Metrics) ExchangeStarted(ctx context.Context, method string) {
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMethod, method)))
}

// ExchangeFinished decrements the in-flight count and records the outcome.
// status is 0 and errType set when the exchange failed.
func (m *Metrics) ExchangeFinished(ctx context.Context, method string, status int, errType string, d time.Duration) {
	byMethod := metric.WithAttributes(attribute.String(AttrMethod, method))
	m.active.Add(ctx, -1, byMethod)
	m.duration.Record(ctx, d.Seconds(), byMethod)

	if errType != "" {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrMethod, method),
			attribute.String(AttrErrorType, errType),
		))
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.Int(AttrStatus, status),
	))
}
