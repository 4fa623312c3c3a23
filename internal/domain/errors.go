package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientLiquidity signals a Consume request exceeding the
// resting volume at a level. Matching always clamps first, so seeing
// this error means a broken engine, not broken input.
var ErrInsufficientLiquidity = errors.New("insufficient resting liquidity")

// FatalError defines an interface for errors that must abort the run
type FatalError interface {
	error
	IsFatal() bool
}

// IsFatal checks if an error must abort the run
func IsFatal(err error) bool {
	var fe FatalError
	if errors.As(err, &fe) {
		return fe.IsFatal()
	}
	return false
}

// DataLoadError represents an unreadable data file or a missing required
// column. It is the only error class that aborts a run before any tick.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) IsFatal() bool { return true }

func (e *DataLoadError) Unwrap() error { return e.Err }

// RowParseError represents a single malformed CSV row. The row is
// skipped and loading continues.
type RowParseError struct {
	Line int
	Err  error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowParseError) IsFatal() bool { return false }

func (e *RowParseError) Unwrap() error { return e.Err }

// StrategyError wraps a failure raised inside the strategy for one
// tick. The tick proceeds with an empty order set.
type StrategyError struct {
	Timestamp int64
	Err       error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy at ts=%d: %v", e.Timestamp, e.Err)
}

func (e *StrategyError) IsFatal() bool { return false }

func (e *StrategyError) Unwrap() error { return e.Err }

// OrderValidationError marks a strategy order dropped before matching.
type OrderValidationError struct {
	Order  Order
	Reason string
}

func (e *OrderValidationError) Error() string {
	return fmt.Sprintf("invalid order %s %d@%d: %s",
		e.Order.Product, e.Order.Quantity, e.Order.Price, e.Reason)
}

func (e *OrderValidationError) IsFatal() bool { return false }
