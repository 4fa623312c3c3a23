package strategy

import (
	"sort"

	"backtest_go/internal/domain"
)

// Result is what a strategy hands back for one tick.
type Result struct {
	// Orders per product, in submission order.
	Orders map[string][]domain.Order
	// TraderData is an opaque blob carried to the next tick's MarketState.
	TraderData string
	// LimitOverride, when > 0, replaces the engine's default position
	// limit for products without an explicit configured limit.
	LimitOverride int64
}

// Strategy is the interface all trading strategies must implement.
// It is called synchronously by the Simulator once per tick; a returned
// error (or a panic) costs the strategy that tick's orders, never the run.
type Strategy interface {
	Run(state domain.MarketState) (Result, error)
}

// ProductStrategy decides orders for a single product. Registry fans a
// tick out to one ProductStrategy per product.
type ProductStrategy interface {
	Orders(state domain.MarketState, book domain.BookView, position int64) []domain.Order
}

// Registry dispatches per-product strategies by product tag. It
// implements Strategy so a mixed book of products can run as one unit.
type Registry struct {
	strategies map[string]ProductStrategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]ProductStrategy)}
}

// Register binds a product to its strategy, replacing any previous binding.
func (r *Registry) Register(product string, s ProductStrategy) {
	r.strategies[product] = s
}

// Run invokes each registered product strategy that has a book this
// tick. Products are visited in sorted order so runs are reproducible.
func (r *Registry) Run(state domain.MarketState) (Result, error) {
	products := make([]string, 0, len(r.strategies))
	for p := range r.strategies {
		products = append(products, p)
	}
	sort.Strings(products)

	res := Result{Orders: make(map[string][]domain.Order), TraderData: state.TraderData}
	for _, product := range products {
		book, ok := state.Book(product)
		if !ok {
			continue
		}
		orders := r.strategies[product].Orders(state, book, state.Position(product))
		if len(orders) > 0 {
			res.Orders[product] = orders
		}
	}
	return res, nil
}
