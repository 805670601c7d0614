package kea

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; the prometheus subpackage provides one.
type MetricsCollector interface {
	// RecordBlockWrite is called after each block write.
	// pixels is the number of pixels in the window.
	RecordBlockWrite(pixels uint64, duration time.Duration, err error)

	// RecordBlockRead is called after each block read.
	RecordBlockRead(pixels uint64, duration time.Duration, err error)

	// RecordOverview is called after an overview level is created.
	RecordOverview(level uint32, duration time.Duration, err error)

	// RecordAttributeExport is called after an attribute table is exported.
	RecordAttributeExport(rows uint64, duration time.Duration, err error)

	// RecordFlush is called after pending writes are flushed.
	RecordFlush(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBlockWrite(uint64, time.Duration, error)      {}
func (NoopMetricsCollector) RecordBlockRead(uint64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordOverview(uint32, time.Duration, error)        {}
func (NoopMetricsCollector) RecordAttributeExport(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BlockWriteCount  atomic.Int64
	BlockWriteErrors atomic.Int64
	BlockWritePixels atomic.Int64
	BlockWriteNanos  atomic.Int64
	BlockReadCount   atomic.Int64
	BlockReadErrors  atomic.Int64
	BlockReadPixels  atomic.Int64
	BlockReadNanos   atomic.Int64
	OverviewCount    atomic.Int64
	OverviewErrors   atomic.Int64
	ExportCount      atomic.Int64
	ExportErrors     atomic.Int64
	ExportRows       atomic.Int64
	FlushCount       atomic.Int64
	FlushErrors      atomic.Int64
	FlushNanos       atomic.Int64
}

// RecordBlockWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBlockWrite(pixels uint64, duration time.Duration, err error) {
	b.BlockWriteCount.Add(1)
	b.BlockWriteNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BlockWriteErrors.Add(1)
		return
	}
	b.BlockWritePixels.Add(int64(pixels))
}

// RecordBlockRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBlockRead(pixels uint64, duration time.Duration, err error) {
	b.BlockReadCount.Add(1)
	b.BlockReadNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BlockReadErrors.Add(1)
		return
	}
	b.BlockReadPixels.Add(int64(pixels))
}

// RecordOverview implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOverview(level uint32, duration time.Duration, err error) {
	b.OverviewCount.Add(1)
	if err != nil {
		b.OverviewErrors.Add(1)
	}
}

// RecordAttributeExport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAttributeExport(rows uint64, duration time.Duration, err error) {
	b.ExportCount.Add(1)
	if err != nil {
		b.ExportErrors.Add(1)
		return
	}
	b.ExportRows.Add(int64(rows))
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BlockWriteCount:    b.BlockWriteCount.Load(),
		BlockWriteErrors:   b.BlockWriteErrors.Load(),
		BlockWritePixels:   b.BlockWritePixels.Load(),
		BlockWriteAvgNanos: avg(b.BlockWriteNanos.Load(), b.BlockWriteCount.Load()),
		BlockReadCount:     b.BlockReadCount.Load(),
		BlockReadErrors:    b.BlockReadErrors.Load(),
		BlockReadPixels:    b.BlockReadPixels.Load(),
		BlockReadAvgNanos:  avg(b.BlockReadNanos.Load(), b.BlockReadCount.Load()),
		OverviewCount:      b.OverviewCount.Load(),
		OverviewErrors:     b.OverviewErrors.Load(),
		ExportCount:        b.ExportCount.Load(),
		ExportErrors:       b.ExportErrors.Load(),
		ExportRows:         b.ExportRows.Load(),
		FlushCount:         b.FlushCount.Load(),
		FlushErrors:        b.FlushErrors.Load(),
		FlushAvgNanos:      avg(b.FlushNanos.Load(), b.FlushCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BlockWriteCount    int64
	BlockWriteErrors   int64
	BlockWritePixels   int64
	BlockWriteAvgNanos int64
	BlockReadCount     int64
	BlockReadErrors    int64
	BlockReadPixels    int64
	BlockReadAvgNanos  int64
	OverviewCount      int64
	OverviewErrors     int64
	ExportCount        int64
	ExportErrors       int64
	ExportRows         int64
	FlushCount         int64
	FlushErrors        int64
	FlushAvgNanos      int64
}
