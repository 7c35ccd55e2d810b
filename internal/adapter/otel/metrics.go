package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "safedesk"

// Metrics holds all pipeline metric instruments.
type Metrics struct {
	TurnsStarted   metric.Int64Counter
	TurnsCompleted metric.Int64Counter
	TurnsBlocked   metric.Int64Counter
	ReviewRejected metric.Int64Counter
	GatewayErrors  metric.Int64Counter
	TurnDuration   metric.Float64Histogram
	StageDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TurnsStarted, err = meter.Int64Counter("safedesk.turns.started",
		metric.WithDescription("Number of turns started"))
	if err != nil {
		return nil, err
	}

	m.TurnsCompleted, err = meter.Int64Counter("safedesk.turns.completed",
		metric.WithDescription("Number of turns completed"))
	if err != nil {
		return nil, err
	}

	m.TurnsBlocked, err = meter.Int64Counter("safedesk.turns.blocked",
		metric.WithDescription("Number of turns refused"))
	if err != nil {
		return nil, err
	}

	m.ReviewRejected, err = meter.Int64Counter("safedesk.review.rejected",
		metric.WithDescription("Number of drafts the reviewer rejected"))
	if err != nil {
		return nil, err
	}

	m.GatewayErrors, err = meter.Int64Counter("safedesk.gateway.errors",
		metric.WithDescription("Number of model gateway failures"))
	if err != nil {
		return nil, err
	}

	m.TurnDuration, err = meter.Float64Histogram("safedesk.turn.duration_seconds",
		metric.WithDescription("End-to-end turn duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram("safedesk.stage.duration_seconds",
		metric.WithDescription("Per-stage duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
