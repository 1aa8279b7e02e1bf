package trajhash

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational
// metrics. Implement this interface to integrate with monitoring
// systems like Prometheus.
type MetricsCollector interface {
	// RecordBuild is called after each construction run. indices is
	// the number of index files written, err is nil on success.
	RecordBuild(indices int, duration time.Duration, err error)

	// RecordIndexLoad is called after each index load from storage.
	RecordIndexLoad(duration time.Duration, err error)

	// RecordQuery is called after each query evaluation. shape names
	// the query kind, results is the number of matches returned.
	RecordQuery(shape string, results int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordIndexLoad(time.Duration, error)          {}
func (NoopMetricsCollector) RecordQuery(string, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external
// dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildIndices    atomic.Int64
	BuildTotalNanos atomic.Int64
	IndexLoadCount  atomic.Int64
	IndexLoadErrors atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryResults    atomic.Int64
	QueryTotalNanos atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(indices int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildIndices.Add(int64(indices))
}

// RecordIndexLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndexLoad(duration time.Duration, err error) {
	b.IndexLoadCount.Add(1)
	if err != nil {
		b.IndexLoadErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(shape string, results int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
		return
	}
	b.QueryResults.Add(int64(results))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		BuildIndices:    b.BuildIndices.Load(),
		IndexLoadCount:  b.IndexLoadCount.Load(),
		IndexLoadErrors: b.IndexLoadErrors.Load(),
		QueryCount:      b.QueryCount.Load(),
		QueryErrors:     b.QueryErrors.Load(),
		QueryResults:    b.QueryResults.Load(),
		QueryAvgNanos:   b.avgQueryNanos(),
	}
}

func (b *BasicMetricsCollector) avgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount      int64
	BuildErrors     int64
	BuildIndices    int64
	IndexLoadCount  int64
	IndexLoadErrors int64
	QueryCount      int64
	QueryErrors     int64
	QueryResults    int64
	QueryAvgNanos   int64
}
