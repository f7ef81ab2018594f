package observe

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Collector is an in-process meter provider whose readings can be printed
// at the end of a run.
type Collector struct {
	Metrics  *Metrics
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewCollector creates a [Collector] backed by a manual reader.
func NewCollector() (*Collector, error) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, err
	}
	return &Collector{Metrics: m, reader: reader, provider: mp}, nil
}

// Shutdown releases the meter provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

// RunSummary aggregates the collected readings of one run.
type RunSummary struct {
	Rounds        int64
	ModelRequests int64
	ModelTime     time.Duration
	ToolCalls     map[string]int64
	ToolErrors    int64
}

// Summary collects the current readings.
func (c *Collector) Summary(ctx context.Context) (RunSummary, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return RunSummary{}, fmt.Errorf("collect metrics: %w", err)
	}

	s := RunSummary{ToolCalls: make(map[string]int64)}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					switch m.Name {
					case "tether.agent.rounds":
						s.Rounds += dp.Value
					case "tether.model.requests":
						s.ModelRequests += dp.Value
					case "tether.tool.calls":
						tool, _ := dp.Attributes.Value("tool")
						s.ToolCalls[tool.AsString()] += dp.Value
						if status, ok := dp.Attributes.Value("status"); ok && status.AsString() == StatusError {
							s.ToolErrors += dp.Value
						}
					}
				}
			case metricdata.Histogram[float64]:
				if m.Name != "tether.model.duration" {
					continue
				}
				for _, dp := range data.DataPoints {
					s.ModelTime += time.Duration(dp.Sum * float64(time.Second))
				}
			}
		}
	}
	return s, nil
}

// Print writes the summary in a compact, human-readable form.
func (s RunSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "Rounds: %d, model requests: %d, model time: %s\n",
		s.Rounds, s.ModelRequests, s.ModelTime.Round(time.Millisecond))
	if len(s.ToolCalls) == 0 {
		return
	}
	names := make([]string, 0, len(s.ToolCalls))
	for name := range s.ToolCalls {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "Tool calls (%d failed):\n", s.ToolErrors)
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %d\n", name, s.ToolCalls[name])
	}
}
