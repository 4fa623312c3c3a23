package engine

import (
	"fmt"
	"log/slog"

	"backtest_go/internal/domain"
	"backtest_go/internal/infra"
)

// TradeFlow holds one tick's exogenous market trades for a single
// product. Residual quantities are decremented as strategy orders
// consume the flow; an exhausted trade is dropped. Flow never carries
// over to the next tick.
type TradeFlow struct {
	trades []domain.Trade
}

// NewTradeFlow copies the tick's market trades, normalizing residual
// quantities to positive volume (the sign only records aggressor side).
func NewTradeFlow(trades []domain.Trade) *TradeFlow {
	f := &TradeFlow{trades: make([]domain.Trade, 0, len(trades))}
	for _, tr := range trades {
		if tr.Quantity == 0 {
			continue
		}
		tr.Quantity = tr.AbsQuantity()
		f.trades = append(f.trades, tr)
	}
	return f
}

// Remaining returns the unconsumed flow in arrival order.
func (f *TradeFlow) Remaining() []domain.Trade {
	return f.trades
}

// Volume returns the residual flow volume.
func (f *TradeFlow) Volume() int64 {
	var v int64
	for _, tr := range f.trades {
		v += tr.Quantity
	}
	return v
}

// MatchingEngine converts strategy orders into executions against
// resting book liquidity first, then the tick's market trade flow,
// clipping every order to the symmetric per-product position limit.
type MatchingEngine struct{}

// NewMatchingEngine creates a matching engine.
func NewMatchingEngine() *MatchingEngine {
	return &MatchingEngine{}
}

// Match executes orders for one product and one tick. It mutates book,
// acct and flow, and returns the executed trades. The position stays
// inside [-limit, limit] after every call.
func (m *MatchingEngine) Match(ts int64, book *domain.OrderBook, acct *PositionAccount,
	limit int64, orders []domain.Order, flow *TradeFlow) []domain.Trade {

	var executed []domain.Trade

	for _, order := range orders {
		if err := order.Validate(); err != nil {
			slog.Warn("ORDER_REJECTED", slog.Any("error", err))
			infra.GlobalMetrics.RecordOrderRejected()
			continue
		}

		// Clip-to-capacity limit policy: a throttled order is a normal
		// outcome, not an error.
		capacity := limit - acct.Position()
		if !order.IsBuy() {
			capacity = acct.Position() + limit
		}
		if capacity <= 0 {
			continue
		}
		qtyToFill := min(order.AbsQuantity(), capacity)

		if order.IsBuy() {
			executed = append(executed, m.matchBuy(ts, book, acct, order, qtyToFill, flow)...)
		} else {
			executed = append(executed, m.matchSell(ts, book, acct, order, qtyToFill, flow)...)
		}
	}

	for _, tr := range executed {
		infra.GlobalMetrics.RecordFill(tr.AbsQuantity())
	}
	return executed
}

func (m *MatchingEngine) matchBuy(ts int64, book *domain.OrderBook, acct *PositionAccount,
	order domain.Order, qtyToFill int64, flow *TradeFlow) []domain.Trade {

	var fills []domain.Trade
	var filled int64

	// Resting liquidity first: asks ascending up to the limit price.
	for _, price := range book.AskPricesUpTo(order.Price) {
		if filled == qtyToFill {
			break
		}
		fill := min(qtyToFill-filled, book.VolumeAt(domain.SideAsk, price))
		if fill <= 0 {
			continue
		}
		if err := book.Consume(domain.SideAsk, price, fill); err != nil {
			panic(fmt.Sprintf("LIQUIDITY_INVARIANT_VIOLATED: buy %d@%d: %v", fill, price, err))
		}
		acct.ApplyTrade(fill, float64(price))
		fills = append(fills, domain.Trade{Product: order.Product, Price: price, Quantity: fill, Timestamp: ts})
		filled += fill
	}

	// Then the tick's market trade flow, in arrival order.
	rest := flow.trades[:0]
	for _, tr := range flow.trades {
		if filled < qtyToFill && tr.Price <= order.Price {
			fill := min(qtyToFill-filled, tr.Quantity)
			acct.ApplyTrade(fill, float64(tr.Price))
			fills = append(fills, domain.Trade{Product: order.Product, Price: tr.Price, Quantity: fill, Timestamp: ts})
			filled += fill
			tr.Quantity -= fill
		}
		if tr.Quantity > 0 {
			rest = append(rest, tr)
		}
	}
	flow.trades = rest

	return fills
}

func (m *MatchingEngine) matchSell(ts int64, book *domain.OrderBook, acct *PositionAccount,
	order domain.Order, qtyToFill int64, flow *TradeFlow) []domain.Trade {

	var fills []domain.Trade
	var filled int64

	// Bids descending down to the limit price.
	for _, price := range book.BidPricesFrom(order.Price) {
		if filled == qtyToFill {
			break
		}
		fill := min(qtyToFill-filled, book.VolumeAt(domain.SideBid, price))
		if fill <= 0 {
			continue
		}
		if err := book.Consume(domain.SideBid, price, fill); err != nil {
			panic(fmt.Sprintf("LIQUIDITY_INVARIANT_VIOLATED: sell %d@%d: %v", fill, price, err))
		}
		acct.ApplyTrade(-fill, float64(price))
		fills = append(fills, domain.Trade{Product: order.Product, Price: price, Quantity: -fill, Timestamp: ts})
		filled += fill
	}

	rest := flow.trades[:0]
	for _, tr := range flow.trades {
		if filled < qtyToFill && tr.Price >= order.Price {
			fill := min(qtyToFill-filled, tr.Quantity)
			acct.ApplyTrade(-fill, float64(tr.Price))
			fills = append(fills, domain.Trade{Product: order.Product, Price: tr.Price, Quantity: -fill, Timestamp: ts})
			filled += fill
			tr.Quantity -= fill
		}
		if tr.Quantity > 0 {
			rest = append(rest, tr)
		}
	}
	flow.trades = rest

	return fills
}
