package engine

// Lot is an open quantity at its entry price, closed strictly in the
// order it was opened. Price is float64 so a fractional liquidation
// mid (x.5) carries through exactly.
type Lot struct {
	Quantity int64
	Price    float64
}

// PositionAccount tracks one product's position and PnL with FIFO lot
// accounting. At most one of the two lot queues is non-empty at any
// time; position equals sum(long lots) - sum(short lots).
type PositionAccount struct {
	position  int64
	realized  float64
	longLots  []Lot // oldest first
	shortLots []Lot
}

// NewPositionAccount creates a flat account.
func NewPositionAccount() *PositionAccount {
	return &PositionAccount{}
}

// Position returns the net signed position.
func (a *PositionAccount) Position() int64 {
	return a.position
}

// RealizedPnl returns the PnL realized by closed lots so far.
func (a *PositionAccount) RealizedPnl() float64 {
	return a.realized
}

// ApplyTrade books a signed fill. A buy first drains short lots oldest
// first, realizing closedQty*(entry-price) per lot; leftover quantity
// opens a new long lot at the back of the queue. Sells mirror against
// long lots realizing closedQty*(price-entry). Zero quantity is a no-op.
func (a *PositionAccount) ApplyTrade(quantity int64, price float64) {
	if quantity == 0 {
		return
	}
	if quantity > 0 {
		a.processBuy(quantity, price)
	} else {
		a.processSell(-quantity, price)
	}
	a.position += quantity
}

func (a *PositionAccount) processBuy(qty int64, price float64) {
	remaining := qty
	for remaining > 0 && len(a.shortLots) > 0 {
		lot := &a.shortLots[0]
		closed := min(remaining, lot.Quantity)
		a.realized += float64(closed) * (lot.Price - price)
		remaining -= closed
		lot.Quantity -= closed
		if lot.Quantity == 0 {
			a.shortLots = a.shortLots[1:]
		}
	}
	if remaining > 0 {
		a.longLots = append(a.longLots, Lot{Quantity: remaining, Price: price})
	}
}

func (a *PositionAccount) processSell(qty int64, price float64) {
	remaining := qty
	for remaining > 0 && len(a.longLots) > 0 {
		lot := &a.longLots[0]
		closed := min(remaining, lot.Quantity)
		a.realized += float64(closed) * (price - lot.Price)
		remaining -= closed
		lot.Quantity -= closed
		if lot.Quantity == 0 {
			a.longLots = a.longLots[1:]
		}
	}
	if remaining > 0 {
		a.shortLots = append(a.shortLots, Lot{Quantity: remaining, Price: price})
	}
}

// UnrealizedPnl marks every open lot against markPrice.
func (a *PositionAccount) UnrealizedPnl(markPrice float64) float64 {
	var pnl float64
	for _, lot := range a.longLots {
		pnl += float64(lot.Quantity) * (markPrice - lot.Price)
	}
	for _, lot := range a.shortLots {
		pnl += float64(lot.Quantity) * (lot.Price - markPrice)
	}
	return pnl
}

// AverageCost returns the volume-weighted entry price over all open
// lots, short lots counted at their entry price. 0 when flat.
func (a *PositionAccount) AverageCost() float64 {
	var cost float64
	var qty int64
	for _, lot := range a.longLots {
		cost += float64(lot.Quantity) * lot.Price
		qty += lot.Quantity
	}
	for _, lot := range a.shortLots {
		cost += float64(lot.Quantity) * lot.Price
		qty += lot.Quantity
	}
	if qty == 0 {
		return 0
	}
	return cost / float64(qty)
}

// OpenLots returns the count of open lots on both sides, used by the
// invariant check that long and short never coexist.
func (a *PositionAccount) OpenLots() (longs, shorts int) {
	return len(a.longLots), len(a.shortLots)
}
