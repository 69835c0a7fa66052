package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesScanned     = "relimport.files.scanned"
	metricRecordsExtracted = "relimport.records.extracted"
	metricBytesRead        = "relimport.bytes.read"
	metricBuildDuration    = "relimport.build.duration.seconds"
	metricBuildsTotal      = "relimport.builds.total"
	metricQueriesTotal     = "relimport.queries.total"

	attrStatus = "status"
	attrCache  = "cache"

	// StatusOK labels a successful build.
	StatusOK = "ok"
	// StatusError labels a failed build.
	StatusError = "error"
)

// buildBuckets spans small packages to large monorepos.
var buildBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// IndexMetrics holds the instruments for index builds and queries.
type IndexMetrics struct {
	filesScanned  metric.Int64Counter
	records       metric.Int64Counter
	bytesRead     metric.Int64Counter
	buildDuration metric.Float64Histogram
	builds        metric.Int64Counter
	queries       metric.Int64Counter
}

// BuildStats summarizes one index build.
type BuildStats struct {
	Files    int
	Records  int
	Bytes    int64
	Duration time.Duration
	Failed   bool
}

// NewIndexMetrics creates index instruments from mt.
func NewIndexMetrics(mt metric.Meter) (*IndexMetrics, error) {
	in := &instruments{meter: mt}

	im := &IndexMetrics{
		filesScanned:  in.count(metricFilesScanned, "Source files read while building an index", "{file}"),
		records:       in.count(metricRecordsExtracted, "Import records extracted", "{record}"),
		bytesRead:     in.count(metricBytesRead, "Source bytes decoded", "By"),
		buildDuration: in.seconds(metricBuildDuration, "Index build duration", buildBuckets),
		builds:        in.count(metricBuildsTotal, "Index builds by outcome", "{build}"),
		queries:       in.count(metricQueriesTotal, "Related-file queries by cache outcome", "{query}"),
	}

	if err := in.err(); err != nil {
		return nil, err
	}

	return im, nil
}

// RecordBuild records one finished build. Safe on a nil receiver.
func (im *IndexMetrics) RecordBuild(ctx context.Context, stats BuildStats) {
	if im == nil {
		return
	}

	status := StatusOK
	if stats.Failed {
		status = StatusError
	}

	im.builds.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
	im.filesScanned.Add(ctx, int64(stats.Files))
	im.records.Add(ctx, int64(stats.Records))
	im.bytesRead.Add(ctx, stats.Bytes)
	im.buildDuration.Record(ctx, stats.Duration.Seconds())
}

// RecordQuery records one query. Safe on a nil receiver.
func (im *IndexMetrics) RecordQuery(ctx context.Context, cacheHit bool) {
	if im == nil {
		return
	}

	cache := "miss"
	if cacheHit {
		cache = "hit"
	}

	im.queries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCache, cache)))
}
