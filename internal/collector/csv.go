package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"BreakoutScreener/internal/model"
)

var requiredColumns = []string{"date", "ticker", "open", "high", "low", "close", "volume"}

// ReadCSV parses a bar table with a header row. Required columns are date,
// ticker, open, high, low, close and volume; name, amount, market_cap,
// after_13_amount and after_13_low are optional, and an empty cell is null.
func ReadCSV(r io.Reader) ([]model.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv header missing columns: %s", strings.Join(missing, ", "))
	}

	var bars []model.PriceBar
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		bar, err := parseRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseRecord(rec []string, col map[string]int) (model.PriceBar, error) {
	cell := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var errs []error
	num := func(name string) float64 {
		v, err := parseFinite(cell(name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return v
	}
	opt := func(name string) model.Opt {
		s := cell(name)
		if s == "" {
			return model.None()
		}
		v, err := parseFinite(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return model.None()
		}
		return model.Some(v)
	}

	d, err := model.ParseDay(cell("date"))
	if err != nil {
		errs = append(errs, err)
	}
	b := model.PriceBar{
		Date:          d,
		Ticker:        cell("ticker"),
		Name:          cell("name"),
		Open:          num("open"),
		High:          num("high"),
		Low:           num("low"),
		Close:         num("close"),
		Volume:        num("volume"),
		MarketCap:     opt("market_cap"),
		After13Amount: opt("after_13_amount"),
		After13Low:    opt("after_13_low"),
	}
	b.Amount = opt("amount").Or(b.Close * b.Volume)
	return b, errors.Join(errs...)
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

// LoadCSV reads a bar table from path.
func LoadCSV(path string) ([]model.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// CSVFetcher serves bars from a file loaded on first use.
type CSVFetcher struct {
	Path string

	once     sync.Once
	err      error
	byTicker map[string][]model.PriceBar
}

func NewCSVFetcher(path string) *CSVFetcher { return &CSVFetcher{Path: path} }

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) load() error {
	f.once.Do(func() {
		bars, err := LoadCSV(f.Path)
		if err != nil {
			f.err = err
			return
		}
		f.byTicker = make(map[string][]model.PriceBar)
		for _, b := range bars {
			f.byTicker[b.Ticker] = append(f.byTicker[b.Ticker], b)
		}
		for _, bs := range f.byTicker {
			sort.SliceStable(bs, func(i, j int) bool { return bs[i].Date.Before(bs[j].Date) })
		}
	})
	return f.err
}

// FetchDailyBars returns the ticker's latest days bars.
func (f *CSVFetcher) FetchDailyBars(_ context.Context, ticker string, days int) ([]model.PriceBar, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	bars, ok := f.byTicker[ticker]
	if !ok {
		return nil, fmt.Errorf("csv %s: %w", ticker, ErrNoData)
	}
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return append([]model.PriceBar(nil), bars...), nil
}

// Tickers lists every ticker in the file, sorted.
func (f *CSVFetcher) Tickers() ([]string, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(f.byTicker))
	for t := range f.byTicker {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
