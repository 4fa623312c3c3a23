package feed

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"backtest_go/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const priceHeader = "timestamp,bid_price_1,bid_volume_1,bid_price_2,bid_volume_2,bid_price_3,bid_volume_3,ask_price_1,ask_volume_1,ask_price_2,ask_volume_2,ask_price_3,ask_volume_3\n"

func TestLoad_SingleProduct(t *testing.T) {
	prices := writeFile(t, "prices.csv", priceHeader+
		"100,9998,10,9997,5,,,10002,8,10003,12,,\n"+
		"200,9999,4,,,,,10001,6,,,,\n")
	trades := writeFile(t, "trades.csv",
		"timestamp,price,quantity\n"+
			"100,10000,5\n"+
			"150,9999,-3\n")

	ds, err := Load(prices, trades, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Union of price and trade timestamps, sorted
	want := []int64{100, 150, 200}
	if len(ds.Timestamps) != len(want) {
		t.Fatalf("Timestamps = %v, want %v", ds.Timestamps, want)
	}
	for i, ts := range want {
		if ds.Timestamps[i] != ts {
			t.Errorf("Timestamps[%d] = %d, want %d", i, ds.Timestamps[i], ts)
		}
	}

	update, ok := ds.Prices[100]["PRODUCT"]
	if !ok {
		t.Fatal("Expected implicit PRODUCT snapshot at ts 100")
	}
	if len(update.Bids) != 2 || len(update.Asks) != 2 {
		t.Errorf("Depth = (%d bids, %d asks), want (2,2); blank cells mean no level",
			len(update.Bids), len(update.Asks))
	}
	if update.Bids[0].Price != 9998 || update.Bids[0].Volume != 10 {
		t.Errorf("Bid level 1 = %+v", update.Bids[0])
	}

	flow := ds.Trades[150]["PRODUCT"]
	if len(flow) != 1 || flow[0].Price != 9999 || flow[0].Quantity != -3 {
		t.Errorf("Trade at 150 = %+v", flow)
	}
}

func TestLoad_SemicolonDialectWithProducts(t *testing.T) {
	header := "timestamp;product;bid_price_1;bid_volume_1;bid_price_2;bid_volume_2;bid_price_3;bid_volume_3;ask_price_1;ask_volume_1;ask_price_2;ask_volume_2;ask_price_3;ask_volume_3\n"
	prices := writeFile(t, "prices.csv", header+
		"100;GOLD;9998;10;;;;;10002;8;;;;\n"+
		"100;SILVER;498;10;;;;;502;8;;;;\n")
	trades := writeFile(t, "trades.csv",
		"timestamp;symbol;price;quantity\n"+
			"100;GOLD;10000;5\n")

	ds, err := Load(prices, trades, Options{Delimiter: ';'})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(ds.Products) != 2 || ds.Products[0] != "GOLD" || ds.Products[1] != "SILVER" {
		t.Errorf("Products = %v, want [GOLD SILVER]", ds.Products)
	}
	if _, ok := ds.Prices[100]["SILVER"]; !ok {
		t.Error("Expected SILVER snapshot at ts 100")
	}
	if len(ds.Trades[100]["GOLD"]) != 1 {
		t.Error("Expected one GOLD trade at ts 100")
	}
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	prices := writeFile(t, "prices.csv", priceHeader+
		"not-a-ts,9998,10,,,,,10002,8,,,,\n"+
		"200,9999,4,,,,,10001,6,,,,\n")
	trades := writeFile(t, "trades.csv",
		"timestamp,price,quantity\n"+
			"100,xx,5\n"+
			"100,10000,0\n"+
			"100,10000,5\n")

	ds, err := Load(prices, trades, Options{})
	if err != nil {
		t.Fatalf("A malformed row must not abort the load: %v", err)
	}

	if _, ok := ds.Prices[200]; !ok {
		t.Error("Valid row after a malformed one must survive")
	}
	if got := len(ds.Trades[100]["PRODUCT"]); got != 1 {
		t.Errorf("Expected 1 surviving trade (bad + zero-qty skipped), got %d", got)
	}
}

func TestLoad_FloatFields(t *testing.T) {
	// "9998.0"-style exports parse as integers; a genuinely fractional
	// price means a mis-scaled feed and the row is skipped, never
	// truncated into a shifted price.
	prices := writeFile(t, "prices.csv", priceHeader+
		"100,9998.0,10,,,,,10002.0,8,,,,\n"+
		"200,9998.7,10,,,,,10002,8,,,,\n")
	trades := writeFile(t, "trades.csv",
		"timestamp,price,quantity\n"+
			"100,9999.5,5\n")

	ds, err := Load(prices, trades, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	update, ok := ds.Prices[100]["PRODUCT"]
	if !ok {
		t.Fatal("Expected snapshot at ts 100")
	}
	if update.Bids[0].Price != 9998 || update.Asks[0].Price != 10002 {
		t.Errorf("Levels = %+v / %+v, want 9998 / 10002", update.Bids[0], update.Asks[0])
	}

	if _, ok := ds.Prices[200]; ok {
		t.Error("Row with a fractional price must be skipped, not truncated")
	}
	if got := len(ds.Trades[100]["PRODUCT"]); got != 0 {
		t.Errorf("Fractional trade price must be skipped, got %d trades", got)
	}
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	trades := writeFile(t, "trades.csv", "timestamp,price,quantity\n")

	_, err := Load("does-not-exist.csv", trades, Options{})
	if err == nil {
		t.Fatal("Expected a fatal error for a missing price file")
	}
	var dle *domain.DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("Expected DataLoadError, got %T", err)
	}
	if !domain.IsFatal(err) {
		t.Error("Missing data file must be classified fatal")
	}
}

func TestLoad_MissingRequiredColumnIsFatal(t *testing.T) {
	prices := writeFile(t, "prices.csv", "ts,bid_price_1\n100,9998\n")
	trades := writeFile(t, "trades.csv", "timestamp,price,quantity\n")

	_, err := Load(prices, trades, Options{})
	if err == nil {
		t.Fatal("Expected a fatal error for a missing timestamp column")
	}
	if !domain.IsFatal(err) {
		t.Error("Missing schema must be classified fatal")
	}
}
