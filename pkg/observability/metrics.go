package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFetchTotal   = "gitpulse.jobs.fetch.total"
	metricJobsTotal    = "gitpulse.jobs.total"
	metricJobDuration  = "gitpulse.jobs.duration.seconds"
	metricJobsInflight = "gitpulse.jobs.inflight"

	attrKind    = "kind"
	attrOutcome = "outcome"
	attrStatus  = "status"
)

// durationBucketBoundaries covers 1ms to 60s; status scans on large work
// trees sit at the upper end.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// JobMetrics holds the OTel instruments for background repository queries.
type JobMetrics struct {
	fetchTotal   metric.Int64Counter
	jobsTotal    metric.Int64Counter
	jobDuration  metric.Float64Histogram
	jobsInflight metric.Int64UpDownCounter
}

// NewJobMetrics creates job instruments from the given meter.
func NewJobMetrics(mt metric.Meter) (*JobMetrics, error) {
	fetchTotal, err := mt.Int64Counter(metricFetchTotal,
		metric.WithDescription("Fetch requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFetchTotal, err)
	}

	jobsTotal, err := mt.Int64Counter(metricJobsTotal,
		metric.WithDescription("Completed queries by status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricJobsTotal, err)
	}

	jobDuration, err := mt.Float64Histogram(metricJobDuration,
		metric.WithDescription("Query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricJobDuration, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricJobsInflight,
		metric.WithDescription("Queries currently running"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricJobsInflight, err)
	}

	return &JobMetrics{
		fetchTotal:   fetchTotal,
		jobsTotal:    jobsTotal,
		jobDuration:  jobDuration,
		jobsInflight: inflight,
	}, nil
}

// RecordFetch counts one fetch request and what the slot did with it.
func (jm *JobMetrics) RecordFetch(ctx context.Context, kind, outcome string) {
	jm.fetchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordJob records a finished query with its status and duration.
func (jm *JobMetrics) RecordJob(ctx context.Context, kind, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	)

	jm.jobsTotal.Add(ctx, 1, attrs)
	jm.jobDuration.Record(ctx, duration.Seconds(), attrs)
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (jm *JobMetrics) TrackInflight(ctx context.Context, kind string) func() {
	attrs := metric.WithAttributes(attribute.String(attrKind, kind))
	jm.jobsInflight.Add(ctx, 1, attrs)

	return func() {
		jm.jobsInflight.Add(ctx, -1, attrs)
	}
}
