// Package storage records model token usage and answers windowed queries
// over it.
//
// Information Hiding:
// - Persistence format hidden behind UsageSink
// - Timestamps stored as fixed-width UTC text so windows compare as strings
// - Clock injectable for tests
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// timestampLayout is the stored timestamp format: UTC, millisecond precision,
// fixed width.
const timestampLayout = "2006-01-02 15:04:05.000"

// Query windows used by the usage report.
const (
	Day    = 24 * time.Hour
	Minute = time.Minute
)

// Clock returns the current time.
type Clock func() time.Time

// UsageRecord is the token usage of one model request.
type UsageRecord struct {
	Timestamp      time.Time
	ConversationID string
	PromptTokens   int64
	ResponseTokens int64
	TotalTokens    int64
}

// UsageSink stores usage records and answers aggregate queries over a
// trailing time window.
type UsageSink interface {
	// Record appends one entry. A zero Timestamp means "now".
	Record(ctx context.Context, rec UsageRecord) error

	// Count returns the number of entries within the window.
	Count(ctx context.Context, window time.Duration) (int64, error)

	// TokenSum returns the total tokens of entries within the window.
	TokenSum(ctx context.Context, window time.Duration) (int64, error)
}

// Limits are the quotas the usage report measures against.
type Limits struct {
	TokensPerDay      int64 `yaml:"tokens_per_day"`
	RequestsPerDay    int64 `yaml:"requests_per_day"`
	RequestsPerMinute int64 `yaml:"requests_per_minute"`
}

// DefaultLimits returns the free-tier quotas of the default model.
func DefaultLimits() Limits {
	return Limits{
		TokensPerDay:      1_000_000,
		RequestsPerDay:    1_500,
		RequestsPerMinute: 15,
	}
}

// UsageReport is a snapshot of windowed usage against limits.
type UsageReport struct {
	Tokens24h   int64
	Requests24h int64
	Requests60s int64
	Limits      Limits
}

// Report queries sink for the standard windows.
func Report(ctx context.Context, sink UsageSink, limits Limits) (UsageReport, error) {
	r := UsageReport{Limits: limits}
	var err error
	if r.Tokens24h, err = sink.TokenSum(ctx, Day); err != nil {
		return UsageReport{}, fmt.Errorf("tokens in last 24h: %w", err)
	}
	if r.Requests24h, err = sink.Count(ctx, Day); err != nil {
		return UsageReport{}, fmt.Errorf("requests in last 24h: %w", err)
	}
	if r.Requests60s, err = sink.Count(ctx, Minute); err != nil {
		return UsageReport{}, fmt.Errorf("requests in last minute: %w", err)
	}
	return r, nil
}

// String renders the report with the percentages aligned.
func (r UsageReport) String() string {
	var sb strings.Builder
	sb.WriteString("Usage stats:\n")
	fmt.Fprintf(&sb, "Tokens 24h:      %s    %d / %d\n", percent(r.Tokens24h, r.Limits.TokensPerDay), r.Tokens24h, r.Limits.TokensPerDay)
	fmt.Fprintf(&sb, "Requests 24h:    %s    %d / %d\n", percent(r.Requests24h, r.Limits.RequestsPerDay), r.Requests24h, r.Limits.RequestsPerDay)
	fmt.Fprintf(&sb, "Requests 60s:    %s    %d / %d\n", percent(r.Requests60s, r.Limits.RequestsPerMinute), r.Requests60s, r.Limits.RequestsPerMinute)
	return sb.String()
}

func percent(current, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%5s", "-")
	}
	return fmt.Sprintf("%5s", fmt.Sprintf("%.1f%%", 100*float64(current)/float64(total)))
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
