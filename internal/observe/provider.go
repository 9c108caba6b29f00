package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig controls how the global OTel providers are set up.
type ProviderConfig struct {
	// ServiceName appears on all exported telemetry. Defaults to
	// "skyline-concierge".
	ServiceName string

	// ServiceVersion appears alongside ServiceName.
	ServiceVersion string

	// TraceExporter receives finished spans. Leave nil to record spans
	// without exporting them.
	TraceExporter sdktrace.SpanExporter

	// TraceSampleRatio is the fraction of turn traces to sample, in (0, 1].
	// Zero means sample everything. A concierge handling many short turns
	// usually wants a fraction here once an exporter is attached.
	TraceSampleRatio float64
}

// InitProvider initialises the OTel SDK: a meter provider with a Prometheus
// exporter so /metrics stays scrapeable, and a tracer provider with the
// configured exporter and sampler. Both are registered as the global
// providers.
//
// The returned shutdown function flushes and closes both providers and
// belongs in a defer in main().
func InitProvider(ctx context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "skyline-concierge"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	if r := cfg.TraceSampleRatio; r > 0 && r < 1 {
		tpOpts = append(tpOpts, sdktrace.WithSampler(
			sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r)),
		))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	shutdown = func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}
	return shutdown, nil
}
