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

	"github.com/kbukum/jwtauth/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
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

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricTokensIssued   = "jwtauth.tokens.issued"
	MetricTokensLoaded   = "jwtauth.tokens.loaded"
	MetricBearerRequests = "jwtauth.bearer.requests"
	MetricBearerDuration = "jwtauth.bearer.duration"
	AttrAlgorithm        = "alg"
	AttrOutcome          = "outcome"
)

// TokenMetrics counts token activity. It satisfies the recorder interfaces
// of packages jwt and bearer.
type TokenMetrics struct {
	issued          metric.Int64Counter
	loaded          metric.Int64Counter
	bearerRequests  metric.Int64Counter
	bearerDurations metric.Float64Histogram
}

// NewTokenMetrics creates the instruments on meter.
func NewTokenMetrics(meter metric.Meter) (*TokenMetrics, error) {
	issued, err := meter.Int64Counter(MetricTokensIssued,
		metric.WithDescription("Tokens signed, by algorithm"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricTokensIssued, err)
	}

	loaded, err := meter.Int64Counter(MetricTokensLoaded,
		metric.WithDescription("Tokens loaded, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricTokensLoaded, err)
	}

	requests, err := meter.Int64Counter(MetricBearerRequests,
		metric.WithDescription("Requests seen by the bearer filter, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricBearerRequests, err)
	}

	durations, err := meter.Float64Histogram(MetricBearerDuration,
		metric.WithDescription("Duration of bearer authentication in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricBearerDuration, err)
	}

	return &TokenMetrics{
		issued:          issued,
		loaded:          loaded,
		bearerRequests:  requests,
		bearerDurations: durations,
	}, nil
}

// TokenIssued records a signed token.
func (m *TokenMetrics) TokenIssued(alg string) {
	m.issued.Add(context.Background(), 1, metric.WithAttributes(attribute.String(AttrAlgorithm, alg)))
}

// TokenLoaded records a LoadToken outcome.
func (m *TokenMetrics) TokenLoaded(outcome string) {
	m.loaded.Add(context.Background(), 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

// RequestAuthenticated records a bearer filter outcome.
func (m *TokenMetrics) RequestAuthenticated(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, outcome))
	m.bearerRequests.Add(ctx, 1, attrs)
	m.bearerDurations.Record(ctx, duration.Seconds(), attrs)
}
