package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SubmissionMetrics counts state transitions and outcomes of order
// submissions.
type SubmissionMetrics struct {
	transitions metric.Int64Counter
	outcomes    metric.Int64Counter
	duration    metric.Float64Histogram
}

func NewSubmissionMetrics(meter metric.Meter) (*SubmissionMetrics, error) {
	transitions, err := meter.Int64Counter("submission.transitions",
		metric.WithDescription("Order submission state transitions"))
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}
	outcomes, err := meter.Int64Counter("submission.outcomes",
		metric.WithDescription("Finished order submissions by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create outcomes counter: %w", err)
	}
	duration, err := meter.Float64Histogram("submission.duration",
		metric.WithDescription("Order submission duration from validation to final state"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return &SubmissionMetrics{transitions: transitions, outcomes: outcomes, duration: duration}, nil
}

func (m *SubmissionMetrics) Transition(ctx context.Context, market, state string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("market", market),
		attribute.String("state", state),
	))
}

// Finished records a terminal state. errorKind is empty on success.
func (m *SubmissionMetrics) Finished(ctx context.Context, market, state, errorKind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("market", market),
		attribute.String("state", state),
		attribute.String("error_kind", errorKind),
	)
	m.outcomes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}
