package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "stackpad"

// Metrics holds all StackPad metric instruments.
type Metrics struct {
	OrgsCreated    metric.Int64Counter
	OrgsDeleted    metric.Int64Counter
	MembersAdded   metric.Int64Counter
	MembersRemoved metric.Int64Counter
	LeavesRefused  metric.Int64Counter
	LoginFailures  metric.Int64Counter
	LeaveDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.OrgsCreated, err = meter.Int64Counter("stackpad.orgs.created",
		metric.WithDescription("Number of organizations created"))
	if err != nil {
		return nil, err
	}

	m.OrgsDeleted, err = meter.Int64Counter("stackpad.orgs.deleted",
		metric.WithDescription("Number of organizations deleted"))
	if err != nil {
		return nil, err
	}

	m.MembersAdded, err = meter.Int64Counter("stackpad.members.added",
		metric.WithDescription("Number of memberships created"))
	if err != nil {
		return nil, err
	}

	m.MembersRemoved, err = meter.Int64Counter("stackpad.members.removed",
		metric.WithDescription("Number of memberships removed, including leaves"))
	if err != nil {
		return nil, err
	}

	m.LeavesRefused, err = meter.Int64Counter("stackpad.leaves.refused",
		metric.WithDescription("Number of leave attempts refused because ownership must transfer first"))
	if err != nil {
		return nil, err
	}

	m.LoginFailures, err = meter.Int64Counter("stackpad.logins.failed",
		metric.WithDescription("Number of failed login attempts"))
	if err != nil {
		return nil, err
	}

	m.LeaveDuration, err = meter.Float64Histogram("stackpad.leave.duration_seconds",
		metric.WithDescription("Duration of the leave operation in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
