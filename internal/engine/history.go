package engine

import "sort"

// Row is one product's recorded values for one tick.
type Row struct {
	Position      int64
	RealizedPnl   float64
	UnrealizedPnl float64
	TotalPnl      float64
	MidPrice      float64
	Volume        int64
}

// ProductSeries holds one product's aligned history arrays; every slice
// has exactly one entry per recorded timestamp.
type ProductSeries struct {
	Position      []int64
	RealizedPnl   []float64
	UnrealizedPnl []float64
	TotalPnl      []float64
	MidPrice      []float64
	Volume        []int64
}

// History accumulates the run's aligned time series. It is append-only
// while the simulator runs and frozen once the run finishes; the
// reporting collaborator only ever sees the frozen form.
type History struct {
	timestamps []int64
	products   map[string]*ProductSeries
	frozen     bool
}

// NewHistory creates an empty recorder.
func NewHistory() *History {
	return &History{products: make(map[string]*ProductSeries)}
}

// Append records one tick. rows must contain every product the caller
// tracks; a product appearing for the first time mid-run is backfilled
// with zero rows so its arrays stay aligned with timestamps.
func (h *History) Append(ts int64, rows map[string]Row) {
	if h.frozen {
		panic("HISTORY_APPEND_AFTER_FREEZE")
	}
	backfill := len(h.timestamps)
	h.timestamps = append(h.timestamps, ts)

	for product, row := range rows {
		series, ok := h.products[product]
		if !ok {
			series = &ProductSeries{}
			h.products[product] = series
			for i := 0; i < backfill; i++ {
				series.append(Row{})
			}
		}
		series.append(row)
	}
}

func (s *ProductSeries) append(r Row) {
	s.Position = append(s.Position, r.Position)
	s.RealizedPnl = append(s.RealizedPnl, r.RealizedPnl)
	s.UnrealizedPnl = append(s.UnrealizedPnl, r.UnrealizedPnl)
	s.TotalPnl = append(s.TotalPnl, r.TotalPnl)
	s.MidPrice = append(s.MidPrice, r.MidPrice)
	s.Volume = append(s.Volume, r.Volume)
}

// Freeze marks the history complete. Any later Append is a bug.
func (h *History) Freeze() {
	h.frozen = true
}

// Len returns the number of recorded ticks.
func (h *History) Len() int {
	return len(h.timestamps)
}

// Timestamps returns the global timestamp array.
func (h *History) Timestamps() []int64 {
	return h.timestamps
}

// Products returns the recorded products in sorted order.
func (h *History) Products() []string {
	out := make([]string, 0, len(h.products))
	for p := range h.products {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Series returns the aligned arrays for a product, nil when unknown.
func (h *History) Series(product string) *ProductSeries {
	return h.products[product]
}

// TotalPnl returns the cross-product total PnL array.
func (h *History) TotalPnl() []float64 {
	total := make([]float64, len(h.timestamps))
	for _, series := range h.products {
		for i, v := range series.TotalPnl {
			total[i] += v
		}
	}
	return total
}
