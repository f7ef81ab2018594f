// Package observe provides the OpenTelemetry metric instruments used by the
// agent loop and the tool dispatcher.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is bound to
// the global meter provider, which is a no-op unless the binary installs one.
// Tests should use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all tether metrics.
const meterName = "github.com/richinex/tether"

// Status attribute values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// Rounds counts completed agent rounds.
	Rounds metric.Int64Counter

	// Runs counts finished agent runs. Use with attribute:
	//   attribute.String("outcome", ...)
	Runs metric.Int64Counter

	// ModelDuration tracks the latency of one model round-trip.
	ModelDuration metric.Float64Histogram

	// ModelRequests counts model calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ModelRequests metric.Int64Counter

	// Tokens counts reported tokens. Use with attribute:
	//   attribute.String("kind", "prompt"|"response")
	Tokens metric.Int64Counter

	// ToolCalls counts dispatched tool calls. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// ToolDuration tracks tool execution latency.
	ToolDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries in seconds. Model calls
// and script runs both sit in the 0.1s to 30s range.
var latencyBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Rounds, err = m.Int64Counter("tether.agent.rounds",
		metric.WithDescription("Total completed agent rounds."),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("tether.agent.runs",
		metric.WithDescription("Total agent runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ModelDuration, err = m.Float64Histogram("tether.model.duration",
		metric.WithDescription("Latency of a model round-trip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ModelRequests, err = m.Int64Counter("tether.model.requests",
		metric.WithDescription("Total model requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.Tokens, err = m.Int64Counter("tether.model.tokens",
		metric.WithDescription("Total tokens reported by the provider."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("tether.tool.calls",
		metric.WithDescription("Total tool calls by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("tether.tool.duration",
		metric.WithDescription("Latency of tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
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

// Status maps an error to a status attribute value.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordModelRequest records one model call and its latency.
func (m *Metrics) RecordModelRequest(ctx context.Context, provider, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.ModelRequests.Add(ctx, 1, attrs)
	m.ModelDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordTokens adds reported prompt and response token counts.
func (m *Metrics) RecordTokens(ctx context.Context, prompt, response uint32) {
	m.Tokens.Add(ctx, int64(prompt), metric.WithAttributes(attribute.String("kind", "prompt")))
	m.Tokens.Add(ctx, int64(response), metric.WithAttributes(attribute.String("kind", "response")))
}

// RecordToolCall records one dispatched tool call and its latency.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordRound records a completed round.
func (m *Metrics) RecordRound(ctx context.Context) {
	m.Rounds.Add(ctx, 1)
}

// RecordRun records a finished run with its outcome.
func (m *Metrics) RecordRun(ctx context.Context, outcome string) {
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
