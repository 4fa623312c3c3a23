// Package service sits between storage and the presentation layer:
// read-side queries over persisted runs.
package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"backtest_go/internal/domain"
	"backtest_go/internal/infra/storage"
)

// RunService answers questions about persisted backtest runs.
type RunService struct {
	store *storage.Storage
}

// NewRunService creates a new RunService instance
func NewRunService(store *storage.Storage) *RunService {
	return &RunService{store: store}
}

// ListRuns returns all persisted runs, newest first.
func (s *RunService) ListRuns() ([]domain.BacktestRun, error) {
	return s.store.ListRuns()
}

// GetRun returns one run, nil when unknown.
func (s *RunService) GetRun(id uint) (*domain.BacktestRun, error) {
	return s.store.GetRun(id)
}

// History returns the persisted per-tick rows of a run.
func (s *RunService) History(runID uint) ([]domain.HistoryPoint, error) {
	return s.store.PointsForRun(runID)
}

// RunComparison is the PnL delta between two persisted runs, with b
// measured against a.
type RunComparison struct {
	A            domain.BacktestRun `json:"a"`
	B            domain.BacktestRun `json:"b"`
	TotalDelta   decimal.Decimal    `json:"total_delta"`
	VolumeDelta  int64              `json:"volume_delta"`
	TicksDelta   int                `json:"ticks_delta"`
	SameStrategy bool               `json:"same_strategy"`
}

// Compare loads two runs and reports how b differs from a.
func (s *RunService) Compare(aID, bID uint) (*RunComparison, error) {
	a, err := s.store.GetRun(aID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("run %d not found", aID)
	}
	b, err := s.store.GetRun(bID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("run %d not found", bID)
	}

	delta := decimal.NewFromFloat(b.TotalPnl).Sub(decimal.NewFromFloat(a.TotalPnl))
	return &RunComparison{
		A:            *a,
		B:            *b,
		TotalDelta:   delta,
		VolumeDelta:  b.FilledVolume - a.FilledVolume,
		TicksDelta:   b.Ticks - a.Ticks,
		SameStrategy: a.Strategy == b.Strategy,
	}, nil
}

// BestRun returns the persisted run with the highest total PnL, nil
// when nothing has been persisted yet.
func (s *RunService) BestRun() (*domain.BacktestRun, error) {
	runs, err := s.store.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}

	best := runs[0]
	for _, run := range runs[1:] {
		if run.TotalPnl > best.TotalPnl {
			best = run
		}
	}
	return &best, nil
}
