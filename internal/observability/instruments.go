package observability

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instruments creates the index instruments from one meter and keeps every
// creation failure, so NewIndexMetrics reports them all at once.
type instruments struct {
	meter metric.Meter
	errs  []error
}

// count creates a monotonic counter.
func (in *instruments) count(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.fail(name, err)

	return c
}

// seconds creates a latency histogram in seconds with explicit buckets.
func (in *instruments) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	in.fail(name, err)

	return h
}

func (in *instruments) fail(name string, err error) {
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("instrument %s: %w", name, err))
	}
}

func (in *instruments) err() error {
	return errors.Join(in.errs...)
}
