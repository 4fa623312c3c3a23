package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"backtest_go/internal/domain"
	"backtest_go/internal/infra"
	"backtest_go/internal/infra/feed"
	"backtest_go/internal/strategy"
)

// RunState is the simulator lifecycle.
type RunState int

const (
	StateIdle RunState = iota
	StateLoaded
	StateRunning
	StateFinished
	StateAborted
)

// String returns the string representation of RunState.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoaded:
		return "LOADED"
	case StateRunning:
		return "RUNNING"
	case StateFinished:
		return "FINISHED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Config carries the run parameters threaded through the simulator.
// Limits are explicit configuration, never shared mutable state.
type Config struct {
	DefaultLimit  int64            // symmetric per-product position cap
	Limits        map[string]int64 // per-product overrides of DefaultLimit
	MidFallback   float64          // mid price when both book sides are empty
	AutoLiquidate bool             // flatten residual positions after the last tick
}

// Simulator owns the tick cursor and every piece of mutable state for
// one replay: books, accounts, history. Strictly single-threaded; two
// runs over identical inputs with a deterministic strategy produce
// identical history arrays.
type Simulator struct {
	cfg     Config
	strat   strategy.Strategy
	matcher *MatchingEngine

	data     *feed.Dataset
	books    map[string]*domain.OrderBook
	accounts map[string]*PositionAccount
	products []string // sorted, grows lazily on first encounter
	history  *History

	traderData string
	state      RunState
	fatal      error
	tickErrs   []*domain.StrategyError
}

// NewSimulator wires a simulator. A nil strategy is a wiring error at
// startup, not a per-tick fault.
func NewSimulator(cfg Config, strat strategy.Strategy) (*Simulator, error) {
	if strat == nil {
		return nil, errors.New("simulator: nil strategy")
	}
	if cfg.DefaultLimit <= 0 {
		return nil, fmt.Errorf("simulator: non-positive position limit %d", cfg.DefaultLimit)
	}
	return &Simulator{
		cfg:      cfg,
		strat:    strat,
		matcher:  NewMatchingEngine(),
		books:    make(map[string]*domain.OrderBook),
		accounts: make(map[string]*PositionAccount),
		history:  NewHistory(),
		state:    StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (s *Simulator) State() RunState {
	return s.state
}

// Load attaches the parsed dataset. An empty dataset is a fatal data
// error: there is nothing to replay.
func (s *Simulator) Load(ds *feed.Dataset) error {
	if ds == nil || len(ds.Timestamps) == 0 {
		err := &domain.DataLoadError{Path: "dataset", Err: errors.New("no timestamps to replay")}
		s.Abort(err)
		return err
	}
	s.data = ds
	s.state = StateLoaded
	return nil
}

// Abort marks the run fatally failed. No partial history is exposed.
func (s *Simulator) Abort(err error) {
	s.state = StateAborted
	s.fatal = err
	slog.Error("RUN_ABORTED", slog.Any("error", err))
}

// Run replays every tick. Only a Loaded simulator can run, and it runs
// exactly once.
func (s *Simulator) Run() error {
	if s.state != StateLoaded {
		return fmt.Errorf("simulator: cannot run from state %s", s.state)
	}
	s.state = StateRunning
	slog.Info("RUN_STARTED",
		slog.Int("ticks", len(s.data.Timestamps)),
		slog.Any("products", s.data.Products))

	for _, ts := range s.data.Timestamps {
		started := time.Now()
		s.step(ts)
		infra.GlobalMetrics.RecordTick(time.Since(started).Nanoseconds())
	}

	if s.cfg.AutoLiquidate {
		s.liquidate()
	}

	s.history.Freeze()
	s.state = StateFinished
	slog.Info("RUN_FINISHED",
		slog.Int("ticks", s.history.Len()),
		slog.Int("strategy_errors", len(s.tickErrs)))
	return nil
}

// step processes a single timestamp: rebuild books, snapshot the
// state, invoke the strategy, match, record history.
func (s *Simulator) step(ts int64) {
	// a. Rebuild each product's book from this tick's snapshot row.
	for product, update := range s.data.Prices[ts] {
		book := s.ensureProduct(product)
		book.Clear()
		for _, lvl := range update.Bids {
			book.SetLevel(domain.SideBid, lvl.Price, lvl.Volume)
		}
		for _, lvl := range update.Asks {
			book.SetLevel(domain.SideAsk, lvl.Price, lvl.Volume)
		}
	}
	// Products first seen through trade flow still need book/account.
	for product := range s.data.Trades[ts] {
		s.ensureProduct(product)
	}

	// b. Immutable snapshot: positions before this tick's matching.
	state := s.snapshot(ts)

	// c. Strategy invocation, fail-soft per tick.
	result := s.callStrategy(ts, state)
	s.traderData = result.TraderData

	// d. Match per product in sorted order for reproducibility.
	volumes := make(map[string]int64)
	for _, product := range s.products {
		orders := result.Orders[product]
		flow := NewTradeFlow(s.data.Trades[ts][product])
		executed := s.matcher.Match(ts, s.books[product], s.accounts[product],
			s.limitFor(product, result.LimitOverride), orders, flow)
		for _, tr := range executed {
			volumes[product] += tr.AbsQuantity()
		}
	}

	// e. One history row per product.
	s.record(ts, volumes)
}

// callStrategy runs the strategy with panic containment. A failing
// strategy costs itself the tick, never the backtest.
func (s *Simulator) callStrategy(ts int64, state domain.MarketState) (result strategy.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.noteStrategyError(ts, fmt.Errorf("panic: %v", r))
			result = strategy.Result{TraderData: state.TraderData}
		}
	}()

	result, err := s.strat.Run(state)
	if err != nil {
		s.noteStrategyError(ts, err)
		return strategy.Result{TraderData: state.TraderData}
	}
	return result
}

func (s *Simulator) noteStrategyError(ts int64, err error) {
	serr := &domain.StrategyError{Timestamp: ts, Err: err}
	s.tickErrs = append(s.tickErrs, serr)
	infra.GlobalMetrics.RecordStrategyError()
	slog.Warn("STRATEGY_ERROR", slog.Any("error", serr))
}

func (s *Simulator) snapshot(ts int64) domain.MarketState {
	state := domain.MarketState{
		Timestamp:  ts,
		Books:      make(map[string]domain.BookView, len(s.books)),
		Positions:  make(map[string]int64, len(s.accounts)),
		TraderData: s.traderData,
	}
	for product, book := range s.books {
		state.Books[product] = book.Snapshot()
	}
	for product, acct := range s.accounts {
		state.Positions[product] = acct.Position()
	}
	if flow := s.data.Trades[ts]; len(flow) > 0 {
		state.Trades = make(map[string][]domain.Trade, len(flow))
		for product, trades := range flow {
			state.Trades[product] = append([]domain.Trade(nil), trades...)
		}
	}
	return state
}

func (s *Simulator) record(ts int64, volumes map[string]int64) {
	rows := make(map[string]Row, len(s.products))
	for _, product := range s.products {
		acct := s.accounts[product]
		mid := s.books[product].MidPrice(s.cfg.MidFallback)
		realized := acct.RealizedPnl()
		unrealized := acct.UnrealizedPnl(mid)
		rows[product] = Row{
			Position:      acct.Position(),
			RealizedPnl:   realized,
			UnrealizedPnl: unrealized,
			TotalPnl:      realized + unrealized,
			MidPrice:      mid,
			Volume:        volumes[product],
		}
	}
	s.history.Append(ts, rows)
}

// liquidate flattens any residual position at the final mid and appends
// one synthetic row at lastTs+1.
func (s *Simulator) liquidate() {
	lastTs := s.data.Timestamps[len(s.data.Timestamps)-1]
	volumes := make(map[string]int64)
	flattened := false

	for _, product := range s.products {
		acct := s.accounts[product]
		pos := acct.Position()
		if pos == 0 {
			continue
		}
		mid := s.books[product].MidPrice(s.cfg.MidFallback)
		slog.Info("AUTO_LIQUIDATION",
			slog.String("product", product),
			slog.Int64("position", pos),
			slog.Float64("mid", mid))
		acct.ApplyTrade(-pos, mid)
		if pos < 0 {
			volumes[product] = -pos
		} else {
			volumes[product] = pos
		}
		flattened = true
	}

	if flattened {
		s.record(lastTs+1, volumes)
	}
}

// ensureProduct lazily creates the book and account on first encounter.
func (s *Simulator) ensureProduct(product string) *domain.OrderBook {
	if book, ok := s.books[product]; ok {
		return book
	}
	book := domain.NewOrderBook()
	s.books[product] = book
	s.accounts[product] = NewPositionAccount()
	s.products = append(s.products, product)
	sort.Strings(s.products)
	return book
}

// limitFor resolves the effective cap: explicit per-product config
// first, then a positive strategy override, then the default.
func (s *Simulator) limitFor(product string, override int64) int64 {
	if limit, ok := s.cfg.Limits[product]; ok && limit > 0 {
		return limit
	}
	if override > 0 {
		return override
	}
	return s.cfg.DefaultLimit
}

// History exposes the recorded series, available only once the run is
// Finished. An aborted run exposes nothing.
func (s *Simulator) History() (*History, error) {
	if s.state != StateFinished {
		if s.fatal != nil {
			return nil, s.fatal
		}
		return nil, fmt.Errorf("simulator: history unavailable in state %s", s.state)
	}
	return s.history, nil
}

// TickErrors returns the per-tick strategy failures surfaced during the run.
func (s *Simulator) TickErrors() []*domain.StrategyError {
	return s.tickErrs
}

// Position returns the current position for a product (0 when unknown).
func (s *Simulator) Position(product string) int64 {
	if acct, ok := s.accounts[product]; ok {
		return acct.Position()
	}
	return 0
}
