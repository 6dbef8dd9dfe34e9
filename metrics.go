package recgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAdd is called after each single add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordBulkAdd is called after each bulk add operation.
	// count is the number of items attempted.
	RecordBulkAdd(count int, duration time.Duration, err error)

	// RecordRetrieval is called after each retrieval.
	// cacheHit reports whether the result came from the retrieval cache.
	RecordRetrieval(cacheHit bool, duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)             {}
func (NoopMetricsCollector) RecordBulkAdd(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordRetrieval(bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount            atomic.Int64
	AddErrors           atomic.Int64
	AddTotalNanos       atomic.Int64
	BulkAddCount        atomic.Int64
	BulkAddItems        atomic.Int64
	BulkAddErrors       atomic.Int64
	RetrievalCount      atomic.Int64
	RetrievalCacheHits  atomic.Int64
	RetrievalErrors     atomic.Int64
	RetrievalTotalNanos atomic.Int64
	DeleteCount         atomic.Int64
	DeleteErrors        atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordBulkAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBulkAdd(count int, duration time.Duration, err error) {
	b.BulkAddCount.Add(1)
	b.BulkAddItems.Add(int64(count))
	if err != nil {
		b.BulkAddErrors.Add(1)
	}
}

// RecordRetrieval implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetrieval(cacheHit bool, duration time.Duration, err error) {
	b.RetrievalCount.Add(1)
	b.RetrievalTotalNanos.Add(duration.Nanoseconds())
	if cacheHit {
		b.RetrievalCacheHits.Add(1)
	}
	if err != nil {
		b.RetrievalErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:           b.AddCount.Load(),
		AddErrors:          b.AddErrors.Load(),
		AddAvgNanos:        avgNanos(b.AddTotalNanos.Load(), b.AddCount.Load()),
		BulkAddCount:       b.BulkAddCount.Load(),
		BulkAddItems:       b.BulkAddItems.Load(),
		BulkAddErrors:      b.BulkAddErrors.Load(),
		RetrievalCount:     b.RetrievalCount.Load(),
		RetrievalCacheHits: b.RetrievalCacheHits.Load(),
		RetrievalErrors:    b.RetrievalErrors.Load(),
		RetrievalAvgNanos:  avgNanos(b.RetrievalTotalNanos.Load(), b.RetrievalCount.Load()),
		DeleteCount:        b.DeleteCount.Load(),
		DeleteErrors:       b.DeleteErrors.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount           int64
	AddErrors          int64
	AddAvgNanos        int64
	BulkAddCount       int64
	BulkAddItems       int64
	BulkAddErrors      int64
	RetrievalCount     int64
	RetrievalCacheHits int64
	RetrievalErrors    int64
	RetrievalAvgNanos  int64
	DeleteCount        int64
	DeleteErrors       int64
}
