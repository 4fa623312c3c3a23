package domain

import (
	"time"
)

// BacktestRun represents one finished simulation persisted for later
// comparison across strategy revisions.
type BacktestRun struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Strategy     string    `json:"strategy" gorm:"index"`
	Products     string    `json:"products"` // comma-joined
	Ticks        int       `json:"ticks"`
	TotalPnl     float64   `json:"total_pnl"`
	RealizedPnl  float64   `json:"realized_pnl"`
	FilledVolume int64     `json:"filled_volume"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryPoint is one history row of a persisted run (per tick, per product).
type HistoryPoint struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	RunID         uint    `gorm:"index" json:"run_id"`
	Timestamp     int64   `gorm:"index" json:"timestamp"`
	Product       string  `json:"product"`
	Position      int64   `json:"position"`
	RealizedPnl   float64 `json:"realized_pnl"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	TotalPnl      float64 `json:"total_pnl"`
	MidPrice      float64 `json:"mid_price"`
	Volume        int64   `json:"volume"`
}
