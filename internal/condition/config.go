package condition

import (
	"errors"
	"fmt"

	"BreakoutScreener/internal/indicator"
)

// Name identifies one of the six conditions.
type Name string

const (
	Volume     Name = "volume"
	Candle     Name = "candle"
	Close      Name = "close"
	Trend      Name = "trend"
	Volatility Name = "volatility"
	Size       Name = "size"
)

// Names is the fixed evaluation order.
var Names = []Name{Volume, Candle, Close, Trend, Volatility, Size}

// Count is the size of the condition set, used as the uniform-score denominator.
const Count = 6

// Valid reports whether n is one of the six names.
func (n Name) Valid() bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// VolumeConfig: volume ratio against a trailing average.
type VolumeConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Multiplier float64 `yaml:"multiplier"`
	Period     int     `yaml:"period"`
}

// CandleConfig: bullish body relative to the open-to-high span.
type CandleConfig struct {
	Enabled      bool    `yaml:"enabled"`
	BodyRatioMin float64 `yaml:"body_ratio_min"`
}

// CloseConfig: close near the session high.
type CloseConfig struct {
	Enabled  bool    `yaml:"enabled"`
	ClosePct float64 `yaml:"close_pct"`
}

// TrendConfig: close above a short MA, or high at a rolling breakout level.
type TrendConfig struct {
	Enabled         bool `yaml:"enabled"`
	MAEnabled       bool `yaml:"ma_enabled"`
	MAPeriod        int  `yaml:"ma_period"`
	BreakoutEnabled bool `yaml:"breakout_enabled"`
	BreakoutPeriod  int  `yaml:"breakout_period"`
}

// VolatilityConfig: trailing mean daily range floor.
type VolatilityConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MinVolatility float64 `yaml:"min_volatility"`
	Period        int     `yaml:"period"`
}

// SizeConfig: market cap and price bands, inclusive.
type SizeConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MarketCapMin float64 `yaml:"market_cap_min"`
	MarketCapMax float64 `yaml:"market_cap_max"`
	PriceMin     float64 `yaml:"price_min"`
	PriceMax     float64 `yaml:"price_max"`
	// AllowMissingMarketCap lets rows without cap data pass the cap band.
	AllowMissingMarketCap bool `yaml:"allow_missing_market_cap"`
}

// Set holds one config per condition.
type Set struct {
	Volume     VolumeConfig     `yaml:"volume"`
	Candle     CandleConfig     `yaml:"candle"`
	Close      CloseConfig      `yaml:"close"`
	Trend      TrendConfig      `yaml:"trend"`
	Volatility VolatilityConfig `yaml:"volatility"`
	Size       SizeConfig       `yaml:"size"`
}

// DefaultSet returns every condition enabled at its default threshold.
func DefaultSet() Set {
	return Set{
		Volume:     VolumeConfig{Enabled: true, Multiplier: 2.0, Period: 20},
		Candle:     CandleConfig{Enabled: true, BodyRatioMin: 0.3},
		Close:      CloseConfig{Enabled: true, ClosePct: 0.95},
		Trend:      TrendConfig{Enabled: true, MAEnabled: true, MAPeriod: 5, BreakoutEnabled: true, BreakoutPeriod: 20},
		Volatility: VolatilityConfig{Enabled: true, MinVolatility: 0.02, Period: 10},
		Size: SizeConfig{
			Enabled:      true,
			MarketCapMin: 100_000_000_000,
			MarketCapMax: 1_000_000_000_000,
			PriceMin:     3_000,
			PriceMax:     50_000,
		},
	}
}

// Validate checks thresholds regardless of the enabled flags, so toggling a
// condition on later cannot surface a bad value mid-run.
func (s Set) Validate() error {
	var errs []error
	if s.Volume.Period <= 0 {
		errs = append(errs, fmt.Errorf("volume.period must be positive, got %d", s.Volume.Period))
	}
	if s.Volume.Multiplier <= 0 {
		errs = append(errs, fmt.Errorf("volume.multiplier must be positive, got %g", s.Volume.Multiplier))
	}
	if s.Candle.BodyRatioMin < 0 || s.Candle.BodyRatioMin > 1 {
		errs = append(errs, fmt.Errorf("candle.body_ratio_min must be in [0,1], got %g", s.Candle.BodyRatioMin))
	}
	if s.Close.ClosePct < 0 || s.Close.ClosePct > 1 {
		errs = append(errs, fmt.Errorf("close.close_pct must be in [0,1], got %g", s.Close.ClosePct))
	}
	if s.Trend.MAPeriod <= 0 {
		errs = append(errs, fmt.Errorf("trend.ma_period must be positive, got %d", s.Trend.MAPeriod))
	}
	if s.Trend.BreakoutPeriod <= 0 {
		errs = append(errs, fmt.Errorf("trend.breakout_period must be positive, got %d", s.Trend.BreakoutPeriod))
	}
	if s.Volatility.Period <= 0 {
		errs = append(errs, fmt.Errorf("volatility.period must be positive, got %d", s.Volatility.Period))
	}
	if s.Volatility.MinVolatility < 0 {
		errs = append(errs, fmt.Errorf("volatility.min_volatility must be non-negative, got %g", s.Volatility.MinVolatility))
	}
	if s.Size.MarketCapMin > s.Size.MarketCapMax {
		errs = append(errs, fmt.Errorf("size.market_cap_min %g exceeds market_cap_max %g", s.Size.MarketCapMin, s.Size.MarketCapMax))
	}
	if s.Size.PriceMin > s.Size.PriceMax {
		errs = append(errs, fmt.Errorf("size.price_min %g exceeds price_max %g", s.Size.PriceMin, s.Size.PriceMax))
	}
	return errors.Join(errs...)
}

// Windows lists the indicator windows these conditions read.
func (s Set) Windows() indicator.Windows {
	return indicator.Windows{
		MA:         []int{s.Trend.MAPeriod},
		HighMax:    []int{s.Trend.BreakoutPeriod},
		Volatility: []int{s.Volatility.Period},
		Volume:     []int{s.Volume.Period},
	}
}
