package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"backtest_go/internal/engine"
)

// ProductSummary holds one product's end-of-run figures. Volume is
// the product's traded volume over the whole run, not the final tick.
type ProductSummary struct {
	Product       string          `json:"product"`
	Position      int64           `json:"position"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	TotalPnl      decimal.Decimal `json:"total_pnl"`
	Volume        int64           `json:"volume"`
}

// Summary aggregates a finished run. Peak and drawdown are taken over
// the cross-product total PnL series.
type Summary struct {
	Ticks       int              `json:"ticks"`
	Products    []ProductSummary `json:"products"`
	FinalPnl    decimal.Decimal  `json:"final_pnl"`
	PeakPnl     decimal.Decimal  `json:"peak_pnl"`
	MaxDrawdown decimal.Decimal  `json:"max_drawdown"`
	TotalVolume int64            `json:"total_volume"`
}

// Summarize computes the run summary from a frozen history. An empty
// history yields a zero summary.
func Summarize(hist *engine.History) Summary {
	s := Summary{Ticks: hist.Len()}
	if s.Ticks == 0 {
		return s
	}

	last := s.Ticks - 1
	for _, p := range hist.Products() {
		series := hist.Series(p)
		// The history records volume per tick; the run total is the sum.
		var volume int64
		for _, v := range series.Volume {
			volume += v
		}
		s.Products = append(s.Products, ProductSummary{
			Product:       p,
			Position:      series.Position[last],
			RealizedPnl:   decimal.NewFromFloat(series.RealizedPnl[last]),
			UnrealizedPnl: decimal.NewFromFloat(series.UnrealizedPnl[last]),
			TotalPnl:      decimal.NewFromFloat(series.TotalPnl[last]),
			Volume:        volume,
		})
		s.TotalVolume += volume
	}

	total := hist.TotalPnl()
	peak := decimal.NewFromFloat(total[0])
	drawdown := decimal.Zero
	for _, v := range total {
		d := decimal.NewFromFloat(v)
		if d.GreaterThan(peak) {
			peak = d
		}
		if dd := peak.Sub(d); dd.GreaterThan(drawdown) {
			drawdown = dd
		}
	}
	s.FinalPnl = decimal.NewFromFloat(total[len(total)-1])
	s.PeakPnl = peak
	s.MaxDrawdown = drawdown
	return s
}

// String renders the summary as a compact multi-line block for the CLI.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ticks=%d final_pnl=%s peak_pnl=%s max_drawdown=%s volume=%d\n",
		s.Ticks, s.FinalPnl, s.PeakPnl, s.MaxDrawdown, s.TotalVolume)
	for _, p := range s.Products {
		fmt.Fprintf(&b, "  %s: position=%d realized=%s unrealized=%s total=%s volume=%d\n",
			p.Product, p.Position, p.RealizedPnl, p.UnrealizedPnl, p.TotalPnl, p.Volume)
	}
	return b.String()
}
