package domain

// MarketState is the immutable per-tick snapshot handed to the
// strategy. Books and positions are copies taken before this tick's
// matching; mutating them has no effect on the engine.
type MarketState struct {
	Timestamp  int64               `json:"timestamp"`
	Books      map[string]BookView `json:"books"`
	Positions  map[string]int64    `json:"positions"`
	Trades     map[string][]Trade  `json:"trades,omitempty"` // this tick's exogenous flow
	TraderData string              `json:"trader_data"`      // opaque blob from the prior tick
}

// Position returns the pre-tick position for a product, 0 when the
// product has not traded yet.
func (s MarketState) Position(product string) int64 {
	return s.Positions[product]
}

// Book returns the ladder view for a product. The second return is
// false when the product has no snapshot this run.
func (s MarketState) Book(product string) (BookView, bool) {
	view, ok := s.Books[product]
	return view, ok
}

// Products returns the products present in this snapshot.
func (s MarketState) Products() []string {
	out := make([]string, 0, len(s.Books))
	for p := range s.Books {
		out = append(out, p)
	}
	return out
}
