package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksProcessed atomic.Uint64
	rowsSkipped    atomic.Uint64
	ordersRejected atomic.Uint64
	fills          atomic.Uint64
	filledVolume   atomic.Int64
	strategyErrors atomic.Uint64

	// Latency tracking
	tickLatencySumNs atomic.Int64
	tickLatencyCount atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records a processed tick with its wall-clock latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksProcessed.Add(1)
	m.tickLatencySumNs.Add(latencyNs)
	m.tickLatencyCount.Add(1)
}

// RecordRowSkipped records a malformed CSV row that was skipped.
func (m *Metrics) RecordRowSkipped() {
	m.rowsSkipped.Add(1)
}

// RecordOrderRejected records a strategy order dropped at validation.
func (m *Metrics) RecordOrderRejected() {
	m.ordersRejected.Add(1)
}

// RecordFill records one execution and its volume. An order that
// sweeps several book levels produces several fills.
func (m *Metrics) RecordFill(volume int64) {
	m.fills.Add(1)
	m.filledVolume.Add(volume)
}

// RecordStrategyError records a tick whose strategy call failed.
func (m *Metrics) RecordStrategyError() {
	m.strategyErrors.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed uint64
	RowsSkipped    uint64
	OrdersRejected uint64
	Fills          uint64
	FilledVolume   int64
	StrategyErrors uint64
	AvgTickNs      int64
	Timestamp      time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgTick int64
	count := m.tickLatencyCount.Load()
	if count > 0 {
		avgTick = m.tickLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksProcessed: m.ticksProcessed.Load(),
		RowsSkipped:    m.rowsSkipped.Load(),
		OrdersRejected: m.ordersRejected.Load(),
		Fills:          m.fills.Load(),
		FilledVolume:   m.filledVolume.Load(),
		StrategyErrors: m.strategyErrors.Load(),
		AvgTickNs:      avgTick,
		Timestamp:      time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksProcessed.Store(0)
	m.rowsSkipped.Store(0)
	m.ordersRejected.Store(0)
	m.fills.Store(0)
	m.filledVolume.Store(0)
	m.strategyErrors.Store(0)
	m.tickLatencySumNs.Store(0)
	m.tickLatencyCount.Store(0)
}
