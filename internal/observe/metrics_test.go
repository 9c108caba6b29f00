package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsCreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordTurnCountsByOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "complete")
	m.RecordTurn(ctx, "complete")
	m.RecordTurn(ctx, "interrupted")

	rm := collect(t, reader)
	found := findMetric(rm, "concierge.turns")
	if found == nil {
		t.Fatal("concierge.turns not collected")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("concierge.turns data type = %T", found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total turns = %d, want 3", total)
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("outcome series = %d, want 2", len(sum.DataPoints))
	}
}

func TestRecordToolCallSplitsByToolAndStatus(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "search_inventory", "ok")
	m.RecordToolCall(ctx, "search_inventory", "error")
	m.RecordToolCall(ctx, "book_test_drive", "ok")

	rm := collect(t, reader)
	found := findMetric(rm, "concierge.tool.calls")
	if found == nil {
		t.Fatal("concierge.tool.calls not collected")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("concierge.tool.calls data type = %T", found.Data)
	}
	// One series per (tool, status) pair.
	if len(sum.DataPoints) != 3 {
		t.Errorf("series = %d, want 3", len(sum.DataPoints))
	}
}

func TestReasoningDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ReasoningDuration.Record(ctx, 0.42)
	m.ReasoningDuration.Record(ctx, 1.7)

	rm := collect(t, reader)
	found := findMetric(rm, "concierge.reasoning.duration")
	if found == nil {
		t.Fatal("concierge.reasoning.duration not collected")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data type = %T", found.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Errorf("histogram data points = %+v", hist.DataPoints)
	}
}
