package strategy_test

import (
	"testing"

	"backtest_go/internal/domain"
	"backtest_go/internal/strategy"
)

func stateWithBook(ts int64, product string, bid, bidVol, ask, askVol int64) domain.MarketState {
	view := domain.BookView{Bids: map[int64]int64{}, Asks: map[int64]int64{}}
	if bid > 0 {
		view.Bids[bid] = bidVol
	}
	if ask > 0 {
		view.Asks[ask] = askVol
	}
	return domain.MarketState{
		Timestamp: ts,
		Books:     map[string]domain.BookView{product: view},
		Positions: map[string]int64{},
	}
}

func TestFairValueMaker_QuotesBothSides(t *testing.T) {
	maker := strategy.NewFairValueMaker("GOLD", 10000, 2, 10, 50)
	state := stateWithBook(100, "GOLD", 9998, 5, 10002, 5)
	book, _ := state.Book("GOLD")

	orders := maker.Orders(state, book, 0)
	if len(orders) != 2 {
		t.Fatalf("Expected 2 quotes, got %d", len(orders))
	}
	if orders[0].Price != 9998 || orders[0].Quantity != 10 {
		t.Errorf("Bid = %d@%d, want 10@9998", orders[0].Quantity, orders[0].Price)
	}
	if orders[1].Price != 10002 || orders[1].Quantity != -10 {
		t.Errorf("Ask = %d@%d, want -10@10002", orders[1].Quantity, orders[1].Price)
	}
}

func TestFairValueMaker_SizesDownNearTheCap(t *testing.T) {
	maker := strategy.NewFairValueMaker("GOLD", 10000, 2, 10, 50)
	state := stateWithBook(100, "GOLD", 9998, 5, 10002, 5)
	book, _ := state.Book("GOLD")

	// Position 45 of 50: bid must shrink to 5, ask grows freely
	orders := maker.Orders(state, book, 45)
	if len(orders) != 2 {
		t.Fatalf("Expected 2 quotes, got %d", len(orders))
	}
	if orders[0].Quantity != 5 {
		t.Errorf("Bid size = %d, want 5", orders[0].Quantity)
	}

	// At the cap the bid disappears entirely
	orders = maker.Orders(state, book, 50)
	if len(orders) != 1 || orders[0].Quantity != -10 {
		t.Fatalf("At cap expected only the ask, got %v", orders)
	}
}

func TestFairValueMaker_SilentOnEmptyBook(t *testing.T) {
	maker := strategy.NewFairValueMaker("GOLD", 10000, 2, 10, 50)
	state := domain.MarketState{
		Timestamp: 100,
		Books:     map[string]domain.BookView{"GOLD": {Bids: map[int64]int64{}, Asks: map[int64]int64{}}},
	}
	book, _ := state.Book("GOLD")

	if orders := maker.Orders(state, book, 0); orders != nil {
		t.Errorf("Expected no quotes on an empty book, got %v", orders)
	}
}

func TestMeanReversion_FadesARichPrice(t *testing.T) {
	s := strategy.NewMeanReversion("SILVER", 4, 1.2, 50)

	// Warm the window with flat mids (market-making phase)
	for i := 0; i < 4; i++ {
		state := stateWithBook(int64(i), "SILVER", 999, 10, 1001, 10)
		book, _ := state.Book("SILVER")
		s.Orders(state, book, 0)
	}

	// Large jump: z-score blows through the threshold, expect a sell at the bid
	state := stateWithBook(10, "SILVER", 1199, 10, 1201, 10)
	book, _ := state.Book("SILVER")
	orders := s.Orders(state, book, 0)

	if len(orders) != 1 {
		t.Fatalf("Expected 1 fade order, got %d", len(orders))
	}
	if orders[0].Quantity >= 0 {
		t.Errorf("Expected a sell, got quantity %d", orders[0].Quantity)
	}
	if orders[0].Price != 1199 {
		t.Errorf("Fade price = %d, want best bid 1199", orders[0].Price)
	}
}

func TestRegistry_DispatchesByProductTag(t *testing.T) {
	reg := strategy.NewRegistry()
	reg.Register("GOLD", strategy.NewFairValueMaker("GOLD", 10000, 2, 10, 50))
	reg.Register("COPPER", strategy.NewFairValueMaker("COPPER", 500, 1, 5, 20))

	// Only GOLD has a book this tick; COPPER must stay silent
	state := stateWithBook(100, "GOLD", 9998, 5, 10002, 5)

	res, err := reg.Run(state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Orders["GOLD"]) != 2 {
		t.Errorf("Expected 2 GOLD orders, got %d", len(res.Orders["GOLD"]))
	}
	if _, ok := res.Orders["COPPER"]; ok {
		t.Error("COPPER has no book this tick, expected no orders")
	}
}

func TestRegistry_CarriesTraderData(t *testing.T) {
	reg := strategy.NewRegistry()
	state := domain.MarketState{Timestamp: 1, TraderData: "window=14"}

	res, err := reg.Run(state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.TraderData != "window=14" {
		t.Errorf("TraderData = %q, want it carried through unchanged", res.TraderData)
	}
}
