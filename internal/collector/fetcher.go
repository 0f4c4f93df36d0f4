package collector

import (
	"context"
	"errors"

	"BreakoutScreener/internal/model"
)

// ErrNoData is returned when no ticker produced any bars.
var ErrNoData = errors.New("collector: no price data")

// Fetcher loads daily bars for one ticker, oldest first.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, ticker string, days int) ([]model.PriceBar, error)
	Name() string
}

// Observer receives fetch-path events; metrics.Registry implements it.
type Observer interface {
	FetchFailed(source string)
	CacheFallback()
}

type nopObserver struct{}

func (nopObserver) FetchFailed(string) {}
func (nopObserver) CacheFallback()     {}
