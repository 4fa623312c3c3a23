package strategy

import (
	"math"

	"backtest_go/internal/domain"
)

// MeanReversion trades the z-score of the mid price against its rolling
// window. It is stateful and deterministic.
// Uses a ring buffer so the hotpath allocates nothing per tick.
type MeanReversion struct {
	product     string
	lookback    int
	zThreshold  float64
	maxPosition int64

	// State (Ring Buffer)
	mids  []float64
	head  int // Current write position
	count int // Number of elements filled
	sum   float64
}

// NewMeanReversion creates a new instance.
func NewMeanReversion(product string, lookback int, zThreshold float64, maxPosition int64) *MeanReversion {
	if lookback < 2 {
		panic("MeanReversion: lookback must be at least 2")
	}
	return &MeanReversion{
		product:     product,
		lookback:    lookback,
		zThreshold:  zThreshold,
		maxPosition: maxPosition,
		mids:        make([]float64, lookback), // Fixed size allocation
	}
}

// Orders pushes the tick's mid into the window, then either fades a
// stretched z-score into the touch or market-makes inside the band.
func (s *MeanReversion) Orders(_ domain.MarketState, book domain.BookView, position int64) []domain.Order {
	if book.Empty() {
		return nil
	}

	mid := book.MidPrice(0)
	s.push(mid)

	if s.count < s.lookback {
		return s.marketMake(mid, position)
	}

	mean := s.sum / float64(s.lookback)
	var variance float64
	for _, v := range s.mids {
		d := v - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(s.lookback-1))
	if stddev == 0 {
		return s.marketMake(mid, position)
	}

	z := (mid - mean) / stddev

	bestBid, _, hasBid := book.BestBid()
	bestAsk, _, hasAsk := book.BestAsk()

	switch {
	case z > s.zThreshold && hasBid:
		// Rich: sell down to -max at the bid
		size := s.maxPosition + position
		if size > 0 {
			return []domain.Order{{Product: s.product, Price: bestBid, Quantity: -size}}
		}
	case z < -s.zThreshold && hasAsk:
		// Cheap: buy up to +max at the ask
		size := s.maxPosition - position
		if size > 0 {
			return []domain.Order{{Product: s.product, Price: bestAsk, Quantity: size}}
		}
	default:
		return s.marketMake(mid, position)
	}
	return nil
}

func (s *MeanReversion) push(mid float64) {
	if s.count == s.lookback {
		s.sum -= s.mids[s.head] // s.head points to the oldest value when full
	}
	s.mids[s.head] = mid
	s.sum += mid
	s.head = (s.head + 1) % s.lookback
	if s.count < s.lookback {
		s.count++
	}
}

func (s *MeanReversion) marketMake(mid float64, position int64) []domain.Order {
	price := int64(mid)
	if price <= 1 {
		return nil
	}

	var orders []domain.Order
	buySize := min(int64(25), s.maxPosition-position)
	if buySize > 0 {
		orders = append(orders, domain.Order{Product: s.product, Price: price - 1, Quantity: buySize})
	}
	sellSize := min(int64(25), s.maxPosition+position)
	if sellSize > 0 {
		orders = append(orders, domain.Order{Product: s.product, Price: price + 1, Quantity: -sellSize})
	}
	return orders
}
