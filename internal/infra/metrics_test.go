package infra

import (
	"testing"
)

func TestMetrics_RecordTick(t *testing.T) {
	m := &Metrics{}

	m.RecordTick(1000)
	m.RecordTick(2000)
	m.RecordTick(3000)

	snap := m.Snapshot()

	if snap.TicksProcessed != 3 {
		t.Errorf("Expected 3 ticks, got %d", snap.TicksProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgTickNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgTickNs)
	}
}

func TestMetrics_Fills(t *testing.T) {
	m := &Metrics{}

	m.RecordFill(10)
	m.RecordFill(5)
	m.RecordOrderRejected()

	snap := m.Snapshot()
	if snap.Fills != 2 {
		t.Errorf("Expected 2 fills, got %d", snap.Fills)
	}
	if snap.FilledVolume != 15 {
		t.Errorf("Expected volume 15, got %d", snap.FilledVolume)
	}
	if snap.OrdersRejected != 1 {
		t.Errorf("Expected 1 rejection, got %d", snap.OrdersRejected)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordTick(1000)
	m.RecordStrategyError()
	m.RecordRowSkipped()

	m.Reset()
	snap := m.Snapshot()

	if snap.TicksProcessed != 0 {
		t.Error("Expected 0 ticks after reset")
	}
	if snap.StrategyErrors != 0 {
		t.Error("Expected 0 strategy errors after reset")
	}
	if snap.RowsSkipped != 0 {
		t.Error("Expected 0 skipped rows after reset")
	}
}
