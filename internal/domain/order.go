package domain

// Order is a limit order authored by a strategy.
// Quantity is signed: positive for buy, negative for sell.
// All prices are strictly int64 ticks.
type Order struct {
	Product  string
	Price    int64 // Limit price, must be > 0
	Quantity int64 // Signed quantity, must be != 0
}

// IsBuy reports whether this is a buy order.
func (o Order) IsBuy() bool {
	return o.Quantity > 0
}

// AbsQuantity returns the unsigned order size.
func (o Order) AbsQuantity() int64 {
	if o.Quantity < 0 {
		return -o.Quantity
	}
	return o.Quantity
}

// Validate checks the entry rules for strategy orders.
// Invalid orders are rejected by the matching engine, never fatal.
func (o Order) Validate() error {
	if o.Price <= 0 {
		return &OrderValidationError{Order: o, Reason: "non-positive price"}
	}
	if o.Quantity == 0 {
		return &OrderValidationError{Order: o, Reason: "zero quantity"}
	}
	return nil
}

// Trade is an executed fill or a unit of exogenous market flow.
// Quantity is signed the same way as Order. Market-flow trades keep a
// residual quantity that matching decrements as it consumes them.
type Trade struct {
	Product   string
	Price     int64
	Quantity  int64
	Timestamp int64
}

// AbsQuantity returns the unsigned trade size.
func (t Trade) AbsQuantity() int64 {
	if t.Quantity < 0 {
		return -t.Quantity
	}
	return t.Quantity
}
