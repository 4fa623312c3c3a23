package domain

import (
	"errors"
	"testing"
)

func TestDataLoadError(t *testing.T) {
	baseErr := errors.New("no such file")
	err := &DataLoadError{Path: "prices.csv", Err: baseErr}

	if !err.IsFatal() {
		t.Error("DataLoadError must be fatal")
	}

	if err.Error() != "load prices.csv: no such file" {
		t.Errorf("Error message = %q, want %q", err.Error(), "load prices.csv: no such file")
	}

	if !errors.Is(err, baseErr) {
		t.Error("Expected error to wrap baseErr")
	}
}

func TestIsFatalHelper(t *testing.T) {
	fatal := &DataLoadError{Path: "trades.csv", Err: errors.New("unreadable")}
	recovered := &RowParseError{Line: 7, Err: errors.New("bad timestamp")}
	plain := errors.New("plain error")

	if !IsFatal(fatal) {
		t.Error("IsFatal should return true for DataLoadError")
	}

	if IsFatal(recovered) {
		t.Error("IsFatal should return false for RowParseError")
	}

	if IsFatal(plain) {
		t.Error("IsFatal should return false for plain error")
	}
}

func TestStrategyErrorIsRecovered(t *testing.T) {
	baseErr := errors.New("index out of range")
	err := &StrategyError{Timestamp: 1200, Err: baseErr}

	if err.IsFatal() {
		t.Error("StrategyError must never abort a run")
	}

	if !errors.Is(err, baseErr) {
		t.Error("Expected error to wrap baseErr")
	}
}

func TestOrderValidation(t *testing.T) {
	t.Run("non-positive price", func(t *testing.T) {
		o := Order{Product: "GOLD", Price: 0, Quantity: 10}
		err := o.Validate()
		if err == nil {
			t.Fatal("Expected validation error for price 0")
		}
		var ve *OrderValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Expected OrderValidationError, got %T", err)
		}
		if ve.IsFatal() {
			t.Error("OrderValidationError must not be fatal")
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		o := Order{Product: "GOLD", Price: 100, Quantity: 0}
		if o.Validate() == nil {
			t.Fatal("Expected validation error for quantity 0")
		}
	})

	t.Run("valid sell", func(t *testing.T) {
		o := Order{Product: "GOLD", Price: 100, Quantity: -5}
		if err := o.Validate(); err != nil {
			t.Fatalf("Unexpected validation error: %v", err)
		}
		if o.IsBuy() {
			t.Error("Negative quantity must be a sell")
		}
		if o.AbsQuantity() != 5 {
			t.Errorf("AbsQuantity = %d, want 5", o.AbsQuantity())
		}
	})
}
