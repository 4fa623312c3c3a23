// Package report turns a finished run's history into the read-only
// views the presentation collaborators consume: a flat CSV table, a
// summary, and a small streaming server. It never mutates the history.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"backtest_go/internal/engine"
)

// ExportCSV writes the history table: the timestamp column, one column
// set per product, and a cross-product total PnL column.
func ExportCSV(path string, hist *engine.History) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	products := hist.Products()

	header := []string{"timestamp"}
	for _, p := range products {
		header = append(header,
			p+"_position",
			p+"_realized_pnl",
			p+"_unrealized_pnl",
			p+"_total_pnl",
			p+"_mid_price",
			p+"_volume",
		)
	}
	header = append(header, "total_pnl")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	total := hist.TotalPnl()
	for i, ts := range hist.Timestamps() {
		row := []string{strconv.FormatInt(ts, 10)}
		for _, p := range products {
			series := hist.Series(p)
			row = append(row,
				strconv.FormatInt(series.Position[i], 10),
				formatFloat(series.RealizedPnl[i]),
				formatFloat(series.UnrealizedPnl[i]),
				formatFloat(series.TotalPnl[i]),
				formatFloat(series.MidPrice[i]),
				strconv.FormatInt(series.Volume[i], 10),
			)
		}
		row = append(row, formatFloat(total[i]))
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
