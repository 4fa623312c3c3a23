package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
data:
  price_csv: prices.csv
  trades_csv: trades.csv
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.PositionLimit != 50 {
		t.Errorf("PositionLimit = %d, want default 50", cfg.Engine.PositionLimit)
	}
	if cfg.Engine.MidFallback != 10000 {
		t.Errorf("MidFallback = %v, want default 10000", cfg.Engine.MidFallback)
	}
	if !cfg.AutoLiquidate() {
		t.Error("AutoLiquidate must default to on")
	}
	if cfg.DelimiterRune() != ',' {
		t.Errorf("DelimiterRune = %q, want ','", cfg.DelimiterRune())
	}
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing price csv", "data:\n  trades_csv: t.csv\n"},
		{"negative limit", "data:\n  price_csv: p.csv\n  trades_csv: t.csv\nengine:\n  position_limit: -5\n"},
		{"bad product limit", "data:\n  price_csv: p.csv\n  trades_csv: t.csv\nengine:\n  product_limits:\n    GOLD: 0\n"},
		{"unknown strategy", "data:\n  price_csv: p.csv\n  trades_csv: t.csv\nstrategy:\n  name: momentum\n"},
		{"long delimiter", "data:\n  price_csv: p.csv\n  trades_csv: t.csv\n  delimiter: ';;'\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.yaml)); err == nil {
				t.Errorf("Expected validation error for %s", tc.name)
			}
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
data:
  price_csv: prices.csv
  trades_csv: trades.csv
`)

	t.Setenv("BACKTEST_PRICE_CSV", "/data/other_prices.csv")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Data.PriceCSV != "/data/other_prices.csv" {
		t.Errorf("PriceCSV = %q, env override not applied", cfg.Data.PriceCSV)
	}
}

func TestConfig_AutoLiquidateExplicitOff(t *testing.T) {
	path := writeConfig(t, `
data:
  price_csv: prices.csv
  trades_csv: trades.csv
engine:
  auto_liquidate: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.AutoLiquidate() {
		t.Error("AutoLiquidate explicitly disabled must stay off")
	}
}
