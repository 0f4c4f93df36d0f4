package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"BreakoutScreener/internal/model"
)

// MockFetcher serves fixed bars, or generated ones for tickers it was not given.
type MockFetcher struct {
	Bars   map[string][]model.PriceBar
	Errs   map[string]error
	Base   float64
	Calls  int
	Anchor time.Time // last generated date, today when zero
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, ticker string, days int) ([]model.PriceBar, error) {
	m.Calls++
	if err := m.Errs[ticker]; err != nil {
		return nil, err
	}
	if bars, ok := m.Bars[ticker]; ok {
		return bars, nil
	}
	anchor := m.Anchor
	if anchor.IsZero() {
		anchor = time.Now()
	}
	base := m.Base
	if base == 0 {
		base = 10_000
	}
	return generateMockBars(ticker, base, days, model.Day(anchor)), nil
}

func generateMockBars(ticker string, basePrice float64, count int, last time.Time) []model.PriceBar {
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Date:   last.AddDate(0, 0, i-count+1),
			Ticker: ticker,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
			Amount: p * 1000000,
		}
	}
	return bars
}

// Collector fetches a ticker universe with per-ticker timeouts and validates
// what comes back.
type Collector struct {
	Fetcher Fetcher
	Names   map[string]string // display names for tickers the source leaves unnamed
	Timeout time.Duration
	Log     *zap.Logger
}

// NewCollector creates a Collector with a 30s per-ticker timeout.
func NewCollector(fetcher Fetcher, names map[string]string, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Names: names, Timeout: 30 * time.Second, Log: log}
}

// Collect loads days bars for each ticker. A ticker that fails to fetch is
// logged and skipped, as is any bar failing validation. ErrNoData is returned
// when nothing usable came back at all.
func (c *Collector) Collect(ctx context.Context, tickers []string, days int) ([]model.PriceBar, error) {
	var all []model.PriceBar
	failed := 0
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := c.fetch(ctx, t, days)
		if err != nil {
			failed++
			c.Log.Warn("fetch failed, skipping ticker",
				zap.String("ticker", t), zap.String("source", c.Fetcher.Name()), zap.Error(err))
			continue
		}
		for _, b := range bars {
			if b.Name == "" {
				b.Name = c.Names[t]
			}
			if err := b.Validate(); err != nil {
				c.Log.Warn("dropping invalid bar", zap.Error(err))
				continue
			}
			all = append(all, b)
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %d of %d tickers failed", ErrNoData, failed, len(tickers))
	}
	c.Log.Info("collected bars",
		zap.Int("tickers", len(tickers)), zap.Int("failed", failed), zap.Int("bars", len(all)))
	return all, nil
}

func (c *Collector) fetch(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Fetcher.FetchDailyBars(ctx, ticker, days)
}
