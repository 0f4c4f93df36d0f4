package indicator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"BreakoutScreener/internal/calculator"
	"BreakoutScreener/internal/model"
)

// Config lists the trailing windows the engine computes.
type Config struct {
	MAWindows         []int `yaml:"ma_windows"`
	HighMaxWindows    []int `yaml:"high_max_windows"`
	LowMinWindows     []int `yaml:"low_min_windows"`
	VolatilityWindows []int `yaml:"volatility_windows"`
	VolumeWindows     []int `yaml:"volume_windows"`
	AmountWindow      int   `yaml:"amount_window"`
	VolumeTrendWindow int   `yaml:"volume_trend_window"`
	DropWindow        int   `yaml:"drop_window"`
}

// DefaultConfig returns the windows used by both selection policies.
func DefaultConfig() Config {
	return Config{
		MAWindows:         []int{5, 10, 20, 50},
		HighMaxWindows:    []int{10, 20},
		LowMinWindows:     []int{10, 20},
		VolatilityWindows: []int{10},
		VolumeWindows:     []int{20},
		AmountWindow:      20,
		VolumeTrendWindow: 5,
		DropWindow:        5,
	}
}

// Windows is a set of window lengths a consumer needs computed.
type Windows struct {
	MA         []int
	HighMax    []int
	Volatility []int
	Volume     []int
}

// Require returns a copy of c that also computes every window in w.
func (c Config) Require(w Windows) Config {
	c.MAWindows = mergeWindows(c.MAWindows, w.MA)
	c.HighMaxWindows = mergeWindows(c.HighMaxWindows, w.HighMax)
	c.VolatilityWindows = mergeWindows(c.VolatilityWindows, w.Volatility)
	c.VolumeWindows = mergeWindows(c.VolumeWindows, w.Volume)
	return c
}

func mergeWindows(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, w := range append(append([]int(nil), a...), b...) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Ints(out)
	return out
}

// Validate rejects non-positive windows.
func (c Config) Validate() error {
	groups := map[string][]int{
		"ma_windows":          c.MAWindows,
		"high_max_windows":    c.HighMaxWindows,
		"low_min_windows":     c.LowMinWindows,
		"volatility_windows":  c.VolatilityWindows,
		"volume_windows":      c.VolumeWindows,
		"amount_window":       {c.AmountWindow},
		"volume_trend_window": {c.VolumeTrendWindow},
		"drop_window":         {c.DropWindow},
	}
	for name, ws := range groups {
		for _, w := range ws {
			if w <= 0 {
				return fmt.Errorf("indicators.%s: window %d must be positive", name, w)
			}
		}
	}
	return nil
}

// Compute derives indicator rows from raw bars. Each ticker is processed on its
// own history only; the amount rank is the one cross-sectional feature. Rows come
// back ordered by (ticker, date). A repeated (ticker, date) keeps the first bar.
func Compute(bars []model.PriceBar, cfg Config) ([]model.IndicatorRow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}

	sorted := make([]model.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Ticker != sorted[j].Ticker {
			return sorted[i].Ticker < sorted[j].Ticker
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})
	sorted = dedupe(sorted)

	rows := make([]model.IndicatorRow, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Ticker == sorted[start].Ticker {
			end++
		}
		part, err := computeTicker(sorted[start:end], cfg)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", sorted[start].Ticker, err)
		}
		rows = append(rows, part...)
		start = end
	}

	rankAmounts(rows)
	return rows, nil
}

func dedupe(bars []model.PriceBar) []model.PriceBar {
	out := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Ticker == bars[i-1].Ticker && b.Date.Equal(bars[i-1].Date) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func computeTicker(bars []model.PriceBar, cfg Config) ([]model.IndicatorRow, error) {
	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	amounts := make([]float64, n)
	ranges := make([]model.Opt, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
		amounts[i] = b.Amount
		ranges[i] = calculator.RangePct(b.High, b.Low, b.Close)
	}

	mas, err := seriesByWindow(cfg.MAWindows, func(w int) ([]model.Opt, error) { return calculator.SMA(closes, w) })
	if err != nil {
		return nil, err
	}
	highMaxes, err := seriesByWindow(cfg.HighMaxWindows, func(w int) ([]model.Opt, error) { return calculator.RollingMax(highs, w) })
	if err != nil {
		return nil, err
	}
	lowMins, err := seriesByWindow(cfg.LowMinWindows, func(w int) ([]model.Opt, error) { return calculator.RollingMin(lows, w) })
	if err != nil {
		return nil, err
	}
	rangeMeans, err := seriesByWindow(cfg.VolatilityWindows, func(w int) ([]model.Opt, error) { return calculator.SMAOpt(ranges, w) })
	if err != nil {
		return nil, err
	}
	volAvgs, err := seriesByWindow(cfg.VolumeWindows, func(w int) ([]model.Opt, error) { return calculator.SMA(volumes, w) })
	if err != nil {
		return nil, err
	}
	amountAvg, err := calculator.SMA(amounts, cfg.AmountWindow)
	if err != nil {
		return nil, err
	}
	volMA, err := calculator.SMA(volumes, cfg.VolumeTrendWindow)
	if err != nil {
		return nil, err
	}
	volMAPrev := calculator.Shift(volMA, cfg.VolumeTrendWindow)
	prevChange := calculator.PctChange(closes)
	prevChangeMin, err := calculator.RollingMinOpt(prevChange, cfg.DropWindow)
	if err != nil {
		return nil, err
	}
	nextHigh := calculator.Shift(calculator.Wrap(highs), -1)

	rows := make([]model.IndicatorRow, n)
	for i, b := range bars {
		r := model.IndicatorRow{
			PriceBar:    b,
			MAs:         pick(mas, i),
			HighMaxes:   pick(highMaxes, i),
			LowMins:     pick(lowMins, i),
			RangeMeans:  pick(rangeMeans, i),
			VolumeRatio: make(map[int]float64, len(volAvgs)),

			RangePct:      ranges[i],
			AmountAvg:     amountAvg[i],
			PrevChange:    prevChange[i],
			VolMA:         volMA[i],
			VolMAPrev:     volMAPrev[i],
			PrevChangeMin: prevChangeMin[i],
			NextHigh:      nextHigh[i],

			BodyRatio:      calculator.SpanRatio(math.Abs(b.Close-b.Open), b.High, b.Low),
			UpperWickRatio: calculator.SpanRatio(b.High-b.Close, b.High, b.Low),
			LowerWickRatio: calculator.SpanRatio(b.Open-b.Low, b.High, b.Low),
		}
		for w, avg := range volAvgs {
			r.VolumeRatio[w] = volumeRatio(b.Volume, avg[i])
		}
		rows[i] = r
	}
	return rows, nil
}

// volumeRatio falls back to 1.0 while the average is undefined or zero.
func volumeRatio(volume float64, avg model.Opt) float64 {
	mean, ok := avg.Get()
	if !ok || mean == 0 {
		return 1.0
	}
	return volume / mean
}

func seriesByWindow(windows []int, f func(int) ([]model.Opt, error)) (map[int][]model.Opt, error) {
	out := make(map[int][]model.Opt, len(windows))
	for _, w := range windows {
		s, err := f(w)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", w, err)
		}
		out[w] = s
	}
	return out, nil
}

func pick(series map[int][]model.Opt, i int) map[int]model.Opt {
	out := make(map[int]model.Opt, len(series))
	for w, s := range series {
		out[w] = s[i]
	}
	return out
}

// rankAmounts fills AmountRankPct within each date's cross-section.
func rankAmounts(rows []model.IndicatorRow) {
	byDate := make(map[time.Time][]int)
	for i := range rows {
		d := model.Day(rows[i].Date)
		byDate[d] = append(byDate[d], i)
	}
	for _, idx := range byDate {
		amounts := make([]float64, len(idx))
		for k, i := range idx {
			amounts[k] = rows[i].Amount
		}
		for k, pct := range calculator.RankPctMax(amounts) {
			rows[idx[k]].AmountRankPct = model.Some(pct)
		}
	}
}
