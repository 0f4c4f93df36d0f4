package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"BreakoutScreener/internal/model"
)

// CachedFetcher wraps a remote Fetcher with a circuit breaker and an on-disk
// JSON cache. A cache file written today is served without a remote call; an
// older one is served only when the remote call fails or the breaker is open.
type CachedFetcher struct {
	Inner    Fetcher
	Dir      string
	Log      *zap.Logger
	Observer Observer

	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewCachedFetcher trips the breaker after three consecutive failures, or a
// failure ratio above 5% once 20 requests have been seen.
func NewCachedFetcher(inner Fetcher, dir string, log *zap.Logger, obs Observer) *CachedFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	st := gobreaker.Settings{
		Name:     inner.Name(),
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("fetch breaker state changed",
				zap.String("source", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &CachedFetcher{
		Inner:    inner,
		Dir:      dir,
		Log:      log,
		Observer: obs,
		breaker:  gobreaker.NewCircuitBreaker(st),
		now:      time.Now,
	}
}

func (f *CachedFetcher) Name() string { return f.Inner.Name() + "+cache" }

// cachePath mirrors the ticker_days naming, with dots replaced.
func (f *CachedFetcher) cachePath(ticker string, days int) string {
	return filepath.Join(f.Dir, fmt.Sprintf("%s_%dd.json", strings.ReplaceAll(ticker, ".", "_"), days))
}

func (f *CachedFetcher) FetchDailyBars(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	path := f.cachePath(ticker, days)
	cached, modTime, cacheErr := readCache(path)
	if cacheErr == nil && sameDay(modTime, f.now()) {
		return cached, nil
	}

	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.Inner.FetchDailyBars(ctx, ticker, days)
	})
	if err == nil {
		bars := out.([]model.PriceBar)
		if werr := writeCache(path, bars); werr != nil {
			f.Log.Warn("cache write failed", zap.String("ticker", ticker), zap.Error(werr))
		}
		return bars, nil
	}

	f.Observer.FetchFailed(f.Inner.Name())
	if cacheErr != nil {
		return nil, err
	}
	f.Observer.CacheFallback()
	f.Log.Warn("fetch failed, serving stale cache",
		zap.String("ticker", ticker), zap.Time("cached_at", modTime), zap.Error(err))
	return cached, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func readCache(path string) ([]model.PriceBar, time.Time, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	var bars []model.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode cache %s: %w", path, err)
	}
	return bars, st.ModTime(), nil
}

func writeCache(path string, bars []model.PriceBar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(bars)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
