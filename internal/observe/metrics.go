// Package observe provides observability primitives for the concierge:
// OpenTelemetry metrics and tracing, bridged to Prometheus for scraping.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with their own [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all concierge metrics.
const meterName = "github.com/skylinemotors/concierge"

// Metrics holds all metric instruments for the application. The underlying
// OTel types handle their own synchronisation.
type Metrics struct {
	// RetrievalDuration tracks handbook similarity-search latency.
	RetrievalDuration metric.Float64Histogram

	// ReasoningDuration tracks one reasoning-service round trip.
	ReasoningDuration metric.Float64Histogram

	// ToolDuration tracks tool handler execution latency.
	ToolDuration metric.Float64Histogram

	// TurnDuration tracks a whole turn, utterance to spoken response.
	TurnDuration metric.Float64Histogram

	// Turns counts turns by outcome. Use with:
	//   attribute.String("outcome", "complete" | "interrupted" | "reasoning_error" | "tool_loop")
	Turns metric.Int64Counter

	// Interruptions counts turns cut short by a new user utterance.
	Interruptions metric.Int64Counter

	// ToolCalls counts tool invocations. Use with:
	//   attribute.String("tool", ...), attribute.String("status", "ok" | "error")
	ToolCalls metric.Int64Counter

	// AugmentedTurns counts turns that triggered handbook retrieval.
	AugmentedTurns metric.Int64Counter

	// ActiveSessions tracks live concierge conversations.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram boundaries (in seconds) suited to
// voice-turn latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RetrievalDuration, err = m.Float64Histogram("concierge.retrieval.duration",
		metric.WithDescription("Latency of handbook similarity search."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ReasoningDuration, err = m.Float64Histogram("concierge.reasoning.duration",
		metric.WithDescription("Latency of one reasoning-service round trip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("concierge.tool.duration",
		metric.WithDescription("Latency of tool handler execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("concierge.turn.duration",
		metric.WithDescription("Latency of a full conversation turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Turns, err = m.Int64Counter("concierge.turns",
		metric.WithDescription("Total conversation turns by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("concierge.interruptions",
		metric.WithDescription("Total turns interrupted by new user speech."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("concierge.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.AugmentedTurns, err = m.Int64Counter("concierge.augmented_turns",
		metric.WithDescription("Total turns augmented with handbook evidence."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("concierge.active_sessions",
		metric.WithDescription("Number of live concierge conversations."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from the global meter provider. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordTurn records a finished turn with its outcome.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordToolCall records a tool invocation with its status.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}
