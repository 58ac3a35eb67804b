package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Catalog requests are mostly short queries; uploads and downloads reach the
// request size limit.
var (
	durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	sizeBuckets     = []float64{256, 1 << 10, 8 << 10, 64 << 10, 512 << 10, 1 << 20, 4 << 20, 10 << 20, 15 << 20}
)

// Provider owns the tracer and meter providers. With both exporters disabled
// it falls back to the global no-op providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	shutdowns      []func(context.Context) error
}

// NewProvider builds the exporters enabled in cfg and installs them globally
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p := &Provider{}

	if cfg.TracesEnabled {
		tp, err := newTracerProvider(ctx, res, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
		}
		p.tracerProvider = tp
		p.shutdowns = append(p.shutdowns, tp.Shutdown)
		otel.SetTracerProvider(tp)
	}

	if cfg.MetricsEnabled {
		mp, err := newMeterProvider(ctx, res, cfg)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("failed to initialize meter provider: %w", err),
				p.Shutdown(ctx),
			)
		}
		p.meterProvider = mp
		p.shutdowns = append(p.shutdowns, mp.Shutdown)
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, cfg Config) (*sdktrace.TracerProvider, error) {
	sampler, err := createSampler(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.TracesEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		),
	), nil
}

// createSampler maps an OTEL_TRACES_SAMPLER name to a sampler
func createSampler(cfg Config) (sdktrace.Sampler, error) {
	switch cfg.TracesSampler {
	case SamplerAlwaysOn:
		return sdktrace.AlwaysSample(), nil
	case SamplerAlwaysOff:
		return sdktrace.NeverSample(), nil
	case SamplerParentBasedAlwaysOn:
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	case SamplerParentBasedAlwaysOff:
		return sdktrace.ParentBased(sdktrace.NeverSample()), nil
	}

	ratio, err := parseRatio(cfg.TracesSamplerArg)
	switch {
	case cfg.TracesSampler != SamplerTraceIDRatio && cfg.TracesSampler != SamplerParentBasedTraceIDRatio:
		return nil, fmt.Errorf("unknown sampler type: %s", cfg.TracesSampler)
	case err != nil:
		return nil, err
	case cfg.TracesSampler == SamplerTraceIDRatio:
		return sdktrace.TraceIDRatioBased(ratio), nil
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)), nil
	}
}

func newMeterProvider(ctx context.Context, res *resource.Resource, cfg Config) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(cfg.MetricsEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(histogramViews()...),
	), nil
}

// histogramViews sets explicit buckets on the HTTP duration and size
// histograms and aggregates any other histogram exponentially.
func histogramViews() []sdkmetric.View {
	explicit := func(name string, bounds []float64) sdkmetric.View {
		return sdkmetric.NewView(
			sdkmetric.Instrument{Name: name, Kind: sdkmetric.InstrumentKindHistogram},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: bounds}},
		)
	}

	return []sdkmetric.View{
		explicit("http.server.request.duration", durationBuckets),
		explicit("http.server.response.size", sizeBuckets),
		func(inst sdkmetric.Instrument) (sdkmetric.Stream, bool) {
			if inst.Kind != sdkmetric.InstrumentKindHistogram ||
				inst.Name == "http.server.request.duration" || inst.Name == "http.server.response.size" {
				return sdkmetric.Stream{}, false
			}
			return sdkmetric.Stream{
				Name:        inst.Name,
				Description: inst.Description,
				Unit:        inst.Unit,
				Aggregation: sdkmetric.AggregationBase2ExponentialHistogram{MaxSize: 160, MaxScale: 20},
			}, true
		},
	}
}

// Tracer returns a tracer for the given instrumentation scope
func (p *Provider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracerProvider == nil {
		return otel.Tracer(name, opts...)
	}
	return p.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter for the given instrumentation scope
func (p *Provider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.meterProvider == nil {
		return otel.Meter(name, opts...)
	}
	return p.meterProvider.Meter(name, opts...)
}

// Shutdown flushes and stops every exporter, reporting all failures
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		if err := p.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdowns = nil
	if len(errs) > 0 {
		return fmt.Errorf("failed to shut down telemetry: %w", errors.Join(errs...))
	}
	return nil
}

// Enabled reports whether any exporter is running
func (p *Provider) Enabled() bool {
	return p.tracerProvider != nil || p.meterProvider != nil
}
