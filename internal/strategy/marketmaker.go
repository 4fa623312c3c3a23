package strategy

import "backtest_go/internal/domain"

// FairValueMaker quotes a fixed ladder around a static fair value:
// a bid at fair-spread and an ask at fair+spread, sized to stay inside
// the position limit.
type FairValueMaker struct {
	product     string
	fairValue   int64
	spread      int64
	quoteSize   int64
	maxPosition int64
}

// NewFairValueMaker creates a maker for one product.
func NewFairValueMaker(product string, fairValue, spread, quoteSize, maxPosition int64) *FairValueMaker {
	if spread <= 0 || quoteSize <= 0 {
		panic("FairValueMaker: spread and quoteSize must be positive")
	}
	return &FairValueMaker{
		product:     product,
		fairValue:   fairValue,
		spread:      spread,
		quoteSize:   quoteSize,
		maxPosition: maxPosition,
	}
}

// Orders quotes both sides every tick the book is alive.
func (s *FairValueMaker) Orders(_ domain.MarketState, book domain.BookView, position int64) []domain.Order {
	if book.Empty() {
		return nil
	}

	var orders []domain.Order

	buySize := min(s.quoteSize, s.maxPosition-position)
	if buySize > 0 {
		orders = append(orders, domain.Order{
			Product:  s.product,
			Price:    s.fairValue - s.spread,
			Quantity: buySize,
		})
	}

	sellSize := min(s.quoteSize, s.maxPosition+position)
	if sellSize > 0 {
		orders = append(orders, domain.Order{
			Product:  s.product,
			Price:    s.fairValue + s.spread,
			Quantity: -sellSize,
		})
	}

	return orders
}
