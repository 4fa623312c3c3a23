// Package feed loads historical price snapshots and trade prints from
// CSV files into the in-memory dataset the simulator replays.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"backtest_go/internal/domain"
	"backtest_go/internal/infra"
)

// Depth is the number of book levels carried per snapshot row
// (bid_price_1..3 / ask_price_1..3).
const Depth = 3

// Level is one price level of a snapshot row.
type Level struct {
	Price  int64
	Volume int64
}

// BookUpdate is a parsed snapshot row: the full ladder for one product
// at one timestamp. The simulator rebuilds the book from it wholesale.
type BookUpdate struct {
	Bids []Level
	Asks []Level
}

// Dataset is the fully parsed input of a run, indexed by timestamp.
type Dataset struct {
	Prices     map[int64]map[string]BookUpdate
	Trades     map[int64]map[string][]domain.Trade
	Timestamps []int64  // sorted union of price and trade timestamps
	Products   []string // sorted, every product seen anywhere
}

// Options controls CSV dialect details the engine itself is agnostic to.
type Options struct {
	Delimiter rune   // ',' when zero
	Product   string // implicit product when the rows carry no product column
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o Options) implicitProduct() string {
	if o.Product == "" {
		return "PRODUCT"
	}
	return o.Product
}

// Load reads both CSV files and builds the replay dataset. Unreadable
// files and missing required columns are fatal; individual malformed
// rows are skipped and counted.
func Load(pricePath, tradePath string, opts Options) (*Dataset, error) {
	ds := &Dataset{
		Prices: make(map[int64]map[string]BookUpdate),
		Trades: make(map[int64]map[string][]domain.Trade),
	}

	if err := loadPrices(ds, pricePath, opts); err != nil {
		return nil, err
	}
	if err := loadTrades(ds, tradePath, opts); err != nil {
		return nil, err
	}

	ds.index()
	return ds, nil
}

func loadPrices(ds *Dataset, path string, opts Options) error {
	rows, header, err := openCSV(path, opts)
	if err != nil {
		return err
	}
	defer rows.close()

	if _, ok := header["timestamp"]; !ok {
		return &domain.DataLoadError{Path: path, Err: fmt.Errorf("missing required column %q", "timestamp")}
	}

	for {
		record, line, err := rows.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			skipRow(line, err)
			continue
		}

		ts, err := intField(record, header, "timestamp")
		if err != nil {
			skipRow(line, err)
			continue
		}

		product := opts.implicitProduct()
		if idx, ok := header["product"]; ok && record[idx] != "" {
			product = record[idx]
		}

		update, err := parseLevels(record, header)
		if err != nil {
			skipRow(line, err)
			continue
		}

		if ds.Prices[ts] == nil {
			ds.Prices[ts] = make(map[string]BookUpdate)
		}
		ds.Prices[ts][product] = update
	}
}

func loadTrades(ds *Dataset, path string, opts Options) error {
	rows, header, err := openCSV(path, opts)
	if err != nil {
		return err
	}
	defer rows.close()

	for _, col := range []string{"timestamp", "price", "quantity"} {
		if _, ok := header[col]; !ok {
			return &domain.DataLoadError{Path: path, Err: fmt.Errorf("missing required column %q", col)}
		}
	}

	for {
		record, line, err := rows.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			skipRow(line, err)
			continue
		}

		ts, tsErr := intField(record, header, "timestamp")
		price, pErr := intField(record, header, "price")
		qty, qErr := intField(record, header, "quantity")
		if tsErr != nil || pErr != nil || qErr != nil {
			skipRow(line, fmt.Errorf("unparseable trade row"))
			continue
		}
		if qty == 0 {
			continue
		}

		product := opts.implicitProduct()
		if idx, ok := header["symbol"]; ok && record[idx] != "" {
			product = record[idx]
		}

		if ds.Trades[ts] == nil {
			ds.Trades[ts] = make(map[string][]domain.Trade)
		}
		ds.Trades[ts][product] = append(ds.Trades[ts][product], domain.Trade{
			Product:   product,
			Price:     price,
			Quantity:  qty,
			Timestamp: ts,
		})
	}
}

// index builds the sorted timestamp union and product list.
func (ds *Dataset) index() {
	seen := make(map[int64]struct{})
	products := make(map[string]struct{})

	for ts, byProduct := range ds.Prices {
		seen[ts] = struct{}{}
		for p := range byProduct {
			products[p] = struct{}{}
		}
	}
	for ts, byProduct := range ds.Trades {
		seen[ts] = struct{}{}
		for p := range byProduct {
			products[p] = struct{}{}
		}
	}

	ds.Timestamps = make([]int64, 0, len(seen))
	for ts := range seen {
		ds.Timestamps = append(ds.Timestamps, ts)
	}
	sort.Slice(ds.Timestamps, func(i, j int) bool { return ds.Timestamps[i] < ds.Timestamps[j] })

	ds.Products = make([]string, 0, len(products))
	for p := range products {
		ds.Products = append(ds.Products, p)
	}
	sort.Strings(ds.Products)
}

type csvRows struct {
	f    *os.File
	r    *csv.Reader
	line int
	cols int
}

func (c *csvRows) next() ([]string, int, error) {
	c.line++
	record, err := c.r.Read()
	if err == io.EOF {
		return nil, c.line, io.EOF
	}
	if err != nil {
		return nil, c.line, err
	}
	if len(record) != c.cols {
		return nil, c.line, fmt.Errorf("expected %d columns, got %d", c.cols, len(record))
	}
	return record, c.line, nil
}

func (c *csvRows) close() { c.f.Close() }

func openCSV(path string, opts Options) (*csvRows, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &domain.DataLoadError{Path: path, Err: err}
	}

	r := csv.NewReader(f)
	r.Comma = opts.delimiter()
	r.FieldsPerRecord = -1 // column count checked per row so one bad row cannot abort

	headerRow, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, &domain.DataLoadError{Path: path, Err: fmt.Errorf("missing header: %w", err)}
	}

	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.TrimSpace(name)] = i
	}

	return &csvRows{f: f, r: r, line: 1, cols: len(headerRow)}, header, nil
}

func skipRow(line int, err error) {
	rowErr := &domain.RowParseError{Line: line, Err: err}
	slog.Warn("ROW_SKIPPED", slog.Any("error", rowErr))
	infra.GlobalMetrics.RecordRowSkipped()
}

func intField(record []string, header map[string]int, col string) (int64, error) {
	idx, ok := header[col]
	if !ok {
		return 0, fmt.Errorf("missing column %q", col)
	}
	raw := strings.TrimSpace(record[idx])
	if raw == "" {
		return 0, fmt.Errorf("empty %q", col)
	}
	return parseIntValue(raw, col)
}

// parseIntValue accepts integers and "9998.0"-style float exports; a
// truly fractional value means the feed is mis-scaled and must not be
// truncated.
func parseIntValue(raw, col string) (int64, error) {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", col, raw)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integral %s %q", col, raw)
	}
	return int64(f), nil
}

// parseLevels reads every depth slot of a snapshot row. Blank, absent
// or zero cells mean no level; a malformed cell fails the whole row.
func parseLevels(record []string, header map[string]int) (BookUpdate, error) {
	update := BookUpdate{}
	for i := 1; i <= Depth; i++ {
		lvl, ok, err := level(record, header, fmt.Sprintf("bid_price_%d", i), fmt.Sprintf("bid_volume_%d", i))
		if err != nil {
			return BookUpdate{}, err
		}
		if ok {
			update.Bids = append(update.Bids, lvl)
		}
		lvl, ok, err = level(record, header, fmt.Sprintf("ask_price_%d", i), fmt.Sprintf("ask_volume_%d", i))
		if err != nil {
			return BookUpdate{}, err
		}
		if ok {
			update.Asks = append(update.Asks, lvl)
		}
	}
	return update, nil
}

func level(record []string, header map[string]int, priceCol, volCol string) (Level, bool, error) {
	price, ok, err := optionalInt(record, header, priceCol)
	if err != nil {
		return Level{}, false, err
	}
	if !ok || price <= 0 {
		return Level{}, false, nil
	}
	volume, ok, err := optionalInt(record, header, volCol)
	if err != nil {
		return Level{}, false, err
	}
	if !ok || volume <= 0 {
		return Level{}, false, nil
	}
	return Level{Price: price, Volume: volume}, true, nil
}

// optionalInt treats an absent column or blank cell as "not present"
// and only errors on values that are present but unparseable.
func optionalInt(record []string, header map[string]int, col string) (int64, bool, error) {
	idx, ok := header[col]
	if !ok {
		return 0, false, nil
	}
	raw := strings.TrimSpace(record[idx])
	if raw == "" {
		return 0, false, nil
	}
	v, err := parseIntValue(raw, col)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
