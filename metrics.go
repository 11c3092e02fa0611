package slotmap

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Only the operations that can cause latency spikes are reported; Add,
// RemoveAt and indexed access stay free of instrumentation.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    growCounter       prometheus.Counter
//	    optimizeHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordGrow(oldCap, newCap int, d time.Duration, err error) {
//	    p.growCounter.Inc()
//	}
type MetricsCollector interface {
	// RecordGrow is called after each storage growth attempt.
	RecordGrow(oldCap, newCap int, duration time.Duration, err error)

	// RecordOptimize is called after each Optimize that had free slots to process.
	RecordOptimize(reclaimed, remaining int, duration time.Duration)

	// RecordReset is called when the bookkeeping is fully reset, either by
	// Clear or by the last live item being removed.
	RecordReset()

	// RecordSnapshot is called after each snapshot save or load.
	RecordSnapshot(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGrow(int, int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordOptimize(int, int, time.Duration)     {}
func (NoopMetricsCollector) RecordReset()                               {}
func (NoopMetricsCollector) RecordSnapshot(int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GrowCount          atomic.Int64
	GrowErrors         atomic.Int64
	GrowTotalNanos     atomic.Int64
	LastCapacity       atomic.Int64
	OptimizeCount      atomic.Int64
	ReclaimedSlots     atomic.Int64
	OptimizeTotalNanos atomic.Int64
	ResetCount         atomic.Int64
	SnapshotCount      atomic.Int64
	SnapshotErrors     atomic.Int64
	SnapshotBytes      atomic.Int64
}

// RecordGrow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGrow(_, newCap int, duration time.Duration, err error) {
	b.GrowCount.Add(1)
	b.GrowTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GrowErrors.Add(1)
		return
	}
	b.LastCapacity.Store(int64(newCap))
}

// RecordOptimize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOptimize(reclaimed, _ int, duration time.Duration) {
	b.OptimizeCount.Add(1)
	b.ReclaimedSlots.Add(int64(reclaimed))
	b.OptimizeTotalNanos.Add(duration.Nanoseconds())
}

// RecordReset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReset() {
	b.ResetCount.Add(1)
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int64, _ time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() MetricsStats {
	growCount := b.GrowCount.Load()
	optimizeCount := b.OptimizeCount.Load()

	var avgGrowNanos, avgOptimizeNanos int64
	if growCount > 0 {
		avgGrowNanos = b.GrowTotalNanos.Load() / growCount
	}
	if optimizeCount > 0 {
		avgOptimizeNanos = b.OptimizeTotalNanos.Load() / optimizeCount
	}

	return MetricsStats{
		GrowCount:           growCount,
		GrowErrors:          b.GrowErrors.Load(),
		AvgGrowLatencyNanos: avgGrowNanos,
		LastCapacity:        b.LastCapacity.Load(),
		OptimizeCount:       optimizeCount,
		ReclaimedSlots:      b.ReclaimedSlots.Load(),
		AvgOptimizeNanos:    avgOptimizeNanos,
		ResetCount:          b.ResetCount.Load(),
		SnapshotCount:       b.SnapshotCount.Load(),
		SnapshotErrors:      b.SnapshotErrors.Load(),
		SnapshotBytes:       b.SnapshotBytes.Load(),
	}
}

// MetricsStats is a point-in-time snapshot of metrics.
type MetricsStats struct {
	GrowCount           int64
	GrowErrors          int64
	AvgGrowLatencyNanos int64
	LastCapacity        int64
	OptimizeCount       int64
	ReclaimedSlots      int64
	AvgOptimizeNanos    int64
	ResetCount          int64
	SnapshotCount       int64
	SnapshotErrors      int64
	SnapshotBytes       int64
}
