package domain

import "sort"

// Side identifies one half of the order book.
type Side int

const (
	SideBid Side = iota
	SideAsk
)

// String returns the string representation of Side.
func (s Side) String() string {
	switch s {
	case SideBid:
		return "BID"
	case SideAsk:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// OrderBook is the per-product resting liquidity ladder.
// Both maps hold price -> volume with volumes strictly positive;
// a level is deleted the instant its volume reaches zero.
type OrderBook struct {
	bids map[int64]int64
	asks map[int64]int64
}

// NewOrderBook creates an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: make(map[int64]int64),
		asks: make(map[int64]int64),
	}
}

// Clear removes every level on both sides. Called once per tick before
// the book is rebuilt from a price snapshot row.
func (b *OrderBook) Clear() {
	clear(b.bids)
	clear(b.asks)
}

// SetLevel replaces the resting volume at price. Volume 0 removes the
// level. Non-positive prices and negative volumes are ignored so a
// malformed snapshot cell can never violate the book invariant.
func (b *OrderBook) SetLevel(side Side, price, volume int64) {
	if price <= 0 || volume < 0 {
		return
	}
	levels := b.bids
	if side == SideAsk {
		levels = b.asks
	}
	if volume == 0 {
		delete(levels, price)
		return
	}
	levels[price] = volume
}

// BestBid returns the highest bid level. ok is false when the bid side
// is empty.
func (b *OrderBook) BestBid() (price, volume int64, ok bool) {
	for p, v := range b.bids {
		if !ok || p > price {
			price, volume, ok = p, v, true
		}
	}
	return price, volume, ok
}

// BestAsk returns the lowest ask level. ok is false when the ask side
// is empty.
func (b *OrderBook) BestAsk() (price, volume int64, ok bool) {
	for p, v := range b.asks {
		if !ok || p < price {
			price, volume, ok = p, v, true
		}
	}
	return price, volume, ok
}

// MidPrice is the average of best bid and best ask. With one side empty
// it falls back to the surviving side; with both empty it returns the
// caller-supplied fallback.
func (b *OrderBook) MidPrice(fallback float64) float64 {
	bid, _, hasBid := b.BestBid()
	ask, _, hasAsk := b.BestAsk()
	switch {
	case hasBid && hasAsk:
		return float64(bid+ask) / 2
	case hasBid:
		return float64(bid)
	case hasAsk:
		return float64(ask)
	default:
		return fallback
	}
}

// VolumeAt returns the resting volume at a price, 0 when absent.
func (b *OrderBook) VolumeAt(side Side, price int64) int64 {
	if side == SideAsk {
		return b.asks[price]
	}
	return b.bids[price]
}

// BidPricesFrom returns bid prices >= limit in descending order,
// the sweep order for an incoming sell.
func (b *OrderBook) BidPricesFrom(limit int64) []int64 {
	prices := make([]int64, 0, len(b.bids))
	for p := range b.bids {
		if p >= limit {
			prices = append(prices, p)
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })
	return prices
}

// AskPricesUpTo returns ask prices <= limit in ascending order,
// the sweep order for an incoming buy.
func (b *OrderBook) AskPricesUpTo(limit int64) []int64 {
	prices := make([]int64, 0, len(b.asks))
	for p := range b.asks {
		if p <= limit {
			prices = append(prices, p)
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	return prices
}

// Consume reduces the level at price by qty, deleting it at zero.
// Requesting more than the resting volume returns
// ErrInsufficientLiquidity; matching clamps with min() first, so a
// failure here means a bug in the caller, not bad market data.
func (b *OrderBook) Consume(side Side, price, qty int64) error {
	levels := b.bids
	if side == SideAsk {
		levels = b.asks
	}
	avail, ok := levels[price]
	if !ok || qty > avail {
		return ErrInsufficientLiquidity
	}
	if qty <= 0 {
		return ErrInsufficientLiquidity
	}
	if qty == avail {
		delete(levels, price)
		return nil
	}
	levels[price] = avail - qty
	return nil
}

// Snapshot returns an independent copy handed to strategies inside
// MarketState. Mutating the copy never touches engine state.
func (b *OrderBook) Snapshot() BookView {
	view := BookView{
		Bids: make(map[int64]int64, len(b.bids)),
		Asks: make(map[int64]int64, len(b.asks)),
	}
	for p, v := range b.bids {
		view.Bids[p] = v
	}
	for p, v := range b.asks {
		view.Asks[p] = v
	}
	return view
}

// BookView is the read-only ladder copy exposed to strategies.
type BookView struct {
	Bids map[int64]int64 `json:"bids"`
	Asks map[int64]int64 `json:"asks"`
}

// BestBid returns the highest bid of the view.
func (v BookView) BestBid() (price, volume int64, ok bool) {
	for p, vol := range v.Bids {
		if !ok || p > price {
			price, volume, ok = p, vol, true
		}
	}
	return price, volume, ok
}

// BestAsk returns the lowest ask of the view.
func (v BookView) BestAsk() (price, volume int64, ok bool) {
	for p, vol := range v.Asks {
		if !ok || p < price {
			price, volume, ok = p, vol, true
		}
	}
	return price, volume, ok
}

// MidPrice mirrors OrderBook.MidPrice for strategy-side use.
func (v BookView) MidPrice(fallback float64) float64 {
	bid, _, hasBid := v.BestBid()
	ask, _, hasAsk := v.BestAsk()
	switch {
	case hasBid && hasAsk:
		return float64(bid+ask) / 2
	case hasBid:
		return float64(bid)
	case hasAsk:
		return float64(ask)
	default:
		return fallback
	}
}

// Empty reports whether the view has no levels on either side.
func (v BookView) Empty() bool {
	return len(v.Bids) == 0 && len(v.Asks) == 0
}
