package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of a backtest run. Loaded once at startup
// and threaded explicitly; nothing here is mutated during a run.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Data struct {
		PriceCSV  string `yaml:"price_csv"`
		TradesCSV string `yaml:"trades_csv"`
		Delimiter string `yaml:"delimiter"` // "," when empty
		Product   string `yaml:"product"`   // implicit product for feeds without a product column
	} `yaml:"data"`

	Engine struct {
		PositionLimit int64            `yaml:"position_limit"`
		ProductLimits map[string]int64 `yaml:"product_limits"`
		MidFallback   float64          `yaml:"mid_fallback"`
		AutoLiquidate *bool            `yaml:"auto_liquidate"` // nil means on
	} `yaml:"engine"`

	Strategy struct {
		Name       string          `yaml:"name"` // "fair_value" or "mean_revert"
		FairValue  int64           `yaml:"fair_value"`
		Spread     int64           `yaml:"spread"`
		QuoteSize  int64           `yaml:"quote_size"`
		Lookback   int             `yaml:"lookback"`
		ZThreshold decimal.Decimal `yaml:"z_threshold"`
	} `yaml:"strategy"`

	Output struct {
		ExportCSV  string `yaml:"export_csv"`  // empty disables the flat-file export
		SQLitePath string `yaml:"sqlite_path"` // empty disables persistence
		ListenAddr string `yaml:"listen_addr"` // empty disables the report server
	} `yaml:"output"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies defaults
// and environment overrides, then validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.PositionLimit == 0 {
		c.Engine.PositionLimit = 50
	}
	if c.Engine.MidFallback == 0 {
		c.Engine.MidFallback = 10000
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = "fair_value"
	}
	if c.Strategy.FairValue == 0 {
		c.Strategy.FairValue = 10000
	}
	if c.Strategy.Spread == 0 {
		c.Strategy.Spread = 2
	}
	if c.Strategy.QuoteSize == 0 {
		c.Strategy.QuoteSize = 10
	}
	if c.Strategy.Lookback == 0 {
		c.Strategy.Lookback = 20
	}
	if c.Strategy.ZThreshold.IsZero() {
		c.Strategy.ZThreshold = decimal.NewFromFloat(1.5)
	}
}

// AutoLiquidate reports the end-of-run flattening setting, on by default.
func (c *Config) AutoLiquidate() bool {
	if c.Engine.AutoLiquidate == nil {
		return true
	}
	return *c.Engine.AutoLiquidate
}

// DelimiterRune returns the CSV delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	if c.Data.Delimiter == "" {
		return ','
	}
	return rune(c.Data.Delimiter[0])
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Data.PriceCSV == "" {
		return fmt.Errorf("data.price_csv is required")
	}
	if c.Data.TradesCSV == "" {
		return fmt.Errorf("data.trades_csv is required")
	}
	if c.Engine.PositionLimit <= 0 {
		return fmt.Errorf("engine.position_limit must be positive, got %d", c.Engine.PositionLimit)
	}
	for product, limit := range c.Engine.ProductLimits {
		if limit <= 0 {
			return fmt.Errorf("engine.product_limits[%s] must be positive, got %d", product, limit)
		}
	}
	if len(c.Data.Delimiter) > 1 {
		return fmt.Errorf("data.delimiter must be a single character, got %q", c.Data.Delimiter)
	}
	switch c.Strategy.Name {
	case "fair_value", "mean_revert":
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy.Name)
	}
	return nil
}

// overrideWithEnv applies environment overrides for paths so runs can
// be scripted without editing the config file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("BACKTEST_PRICE_CSV"); v != "" {
		cfg.Data.PriceCSV = v
	}
	if v := os.Getenv("BACKTEST_TRADES_CSV"); v != "" {
		cfg.Data.TradesCSV = v
	}
	if v := os.Getenv("BACKTEST_SQLITE_PATH"); v != "" {
		cfg.Output.SQLitePath = v
	}
}
