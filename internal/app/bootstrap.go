package app

import (
	"log/slog"

	"backtest_go/internal/infra"
	"backtest_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, installs the logger and opens the optional
// run database. A missing sqlite path disables persistence.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Backtest Go...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	if cfg.Output.SQLitePath != "" {
		store, err := storage.NewStorage(cfg.Output.SQLitePath)
		if err != nil {
			return err
		}
		b.Storage = store
		slog.Info("✅ Run database initialized", slog.String("path", cfg.Output.SQLitePath))
	}

	return nil
}
