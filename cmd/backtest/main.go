package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"backtest_go/internal/app"
	"backtest_go/internal/domain"
	"backtest_go/internal/engine"
	"backtest_go/internal/infra"
	"backtest_go/internal/infra/feed"
	"backtest_go/internal/report"
	"backtest_go/internal/service"
	"backtest_go/internal/strategy"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the run configuration")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Load the recorded market data
	ds, err := feed.Load(cfg.Data.PriceCSV, cfg.Data.TradesCSV, feed.Options{
		Delimiter: cfg.DelimiterRune(),
		Product:   cfg.Data.Product,
	})
	if err != nil {
		slog.Error("❌ Data load failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("✅ Dataset loaded",
		slog.Int("ticks", len(ds.Timestamps)),
		slog.Any("products", ds.Products))

	// 3. Wire strategy and simulator
	sim, err := engine.NewSimulator(engine.Config{
		DefaultLimit:  cfg.Engine.PositionLimit,
		Limits:        cfg.Engine.ProductLimits,
		MidFallback:   cfg.Engine.MidFallback,
		AutoLiquidate: cfg.AutoLiquidate(),
	}, buildStrategy(cfg, ds.Products))
	if err != nil {
		slog.Error("❌ Simulator wiring failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 4. Replay
	startedAt := time.Now()
	if err := sim.Load(ds); err != nil {
		os.Exit(1)
	}
	if err := sim.Run(); err != nil {
		slog.Error("❌ Run failed", slog.Any("error", err))
		os.Exit(1)
	}
	finishedAt := time.Now()

	hist, err := sim.History()
	if err != nil {
		slog.Error("❌ History unavailable", slog.Any("error", err))
		os.Exit(1)
	}

	summary := report.Summarize(hist)
	fmt.Print(summary)

	m := infra.GlobalMetrics.Snapshot()
	slog.Info("✨ Run complete",
		slog.Uint64("ticks", m.TicksProcessed),
		slog.Uint64("fills", m.Fills),
		slog.Uint64("orders_rejected", m.OrdersRejected),
		slog.Uint64("rows_skipped", m.RowsSkipped),
		slog.Uint64("strategy_errors", m.StrategyErrors),
		slog.Duration("elapsed", finishedAt.Sub(startedAt)))

	// 5. Outputs
	if cfg.Output.ExportCSV != "" {
		if err := report.ExportCSV(cfg.Output.ExportCSV, hist); err != nil {
			slog.Error("CSV export failed", slog.Any("error", err))
		} else {
			slog.Info("✅ History exported", slog.String("path", cfg.Output.ExportCSV))
		}
	}

	if bootstrap.Storage != nil {
		if err := persistRun(bootstrap, hist, summary, startedAt, finishedAt); err != nil {
			slog.Error("Run persistence failed", slog.Any("error", err))
		}
	}

	if cfg.Output.ListenAddr != "" {
		var runs *service.RunService
		if bootstrap.Storage != nil {
			runs = service.NewRunService(bootstrap.Storage)
		}
		srv := report.NewServer(hist, runs)
		if err := srv.Serve(cfg.Output.ListenAddr); err != nil {
			slog.Error("Report server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// buildStrategy registers one per-product strategy from the config.
func buildStrategy(cfg *infra.Config, products []string) strategy.Strategy {
	reg := strategy.NewRegistry()
	for _, product := range products {
		limit := cfg.Engine.PositionLimit
		if l, ok := cfg.Engine.ProductLimits[product]; ok && l > 0 {
			limit = l
		}
		switch cfg.Strategy.Name {
		case "mean_revert":
			reg.Register(product, strategy.NewMeanReversion(
				product, cfg.Strategy.Lookback, cfg.Strategy.ZThreshold.InexactFloat64(), limit))
		default:
			reg.Register(product, strategy.NewFairValueMaker(
				product, cfg.Strategy.FairValue, cfg.Strategy.Spread, cfg.Strategy.QuoteSize, limit))
		}
	}
	return reg
}

func persistRun(b *app.Bootstrap, hist *engine.History, summary report.Summary, startedAt, finishedAt time.Time) error {
	var realized float64
	for _, p := range summary.Products {
		realized += p.RealizedPnl.InexactFloat64()
	}
	run := &domain.BacktestRun{
		Strategy:     b.Config.Strategy.Name,
		Products:     strings.Join(hist.Products(), ","),
		Ticks:        hist.Len(),
		TotalPnl:     summary.FinalPnl.InexactFloat64(),
		RealizedPnl:  realized,
		FilledVolume: summary.TotalVolume,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}

	var points []domain.HistoryPoint
	for _, product := range hist.Products() {
		series := hist.Series(product)
		for i, ts := range hist.Timestamps() {
			points = append(points, domain.HistoryPoint{
				Timestamp:     ts,
				Product:       product,
				Position:      series.Position[i],
				RealizedPnl:   series.RealizedPnl[i],
				UnrealizedPnl: series.UnrealizedPnl[i],
				TotalPnl:      series.TotalPnl[i],
				MidPrice:      series.MidPrice[i],
				Volume:        series.Volume[i],
			})
		}
	}

	if err := b.Storage.SaveRun(run, points); err != nil {
		return err
	}
	slog.Info("✅ Run persisted", slog.Any("run_id", run.ID))
	return nil
}
