package calculator

import (
	"math"
	"sort"

	"BreakoutScreener/internal/model"
)

// RollingMax returns the trailing max over period, absent until the window is full.
func RollingMax(values []float64, period int) ([]model.Opt, error) {
	return rollingExtreme(values, period, math.Max)
}

// RollingMin returns the trailing min over period, absent until the window is full.
func RollingMin(values []float64, period int) ([]model.Opt, error) {
	return rollingExtreme(values, period, math.Min)
}

func rollingExtreme(values []float64, period int, pick func(a, b float64) float64) ([]model.Opt, error) {
	if period <= 0 {
		return nil, ErrBadPeriod
	}
	out := make([]model.Opt, len(values))
	for i := period - 1; i < len(values); i++ {
		ext := values[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			ext = pick(ext, values[j])
		}
		out[i] = model.Some(ext)
	}
	return out, nil
}

// RollingMinOpt is RollingMin over a series with gaps; any absent value in the window makes it absent.
func RollingMinOpt(values []model.Opt, period int) ([]model.Opt, error) {
	if period <= 0 {
		return nil, ErrBadPeriod
	}
	out := make([]model.Opt, len(values))
	for i := period - 1; i < len(values); i++ {
		low := math.Inf(1)
		ok := true
		for j := i - period + 1; j <= i; j++ {
			v, valid := values[j].Get()
			if !valid {
				ok = false
				break
			}
			low = math.Min(low, v)
		}
		if ok {
			out[i] = model.Some(low)
		}
	}
	return out, nil
}

// RangePct returns (high-low)/close, absent when close is zero.
func RangePct(high, low, close float64) model.Opt {
	if close == 0 {
		return model.None()
	}
	return model.Some((high - low) / close)
}

// SpanRatio returns num/(high-low), absent for a zero span.
func SpanRatio(num, high, low float64) model.Opt {
	span := high - low
	if span == 0 {
		return model.None()
	}
	return model.Some(num / span)
}

// RankPctMax ranks each value among the non-NaN values and returns rank/n,
// where tied values all take the highest rank of the tie group. NaN ranks 0.
func RankPctMax(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	sorted := make([]float64, 0, n)
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		// number of values <= v
		rank := sort.Search(len(sorted), func(k int) bool { return sorted[k] > v })
		out[i] = float64(rank) / float64(len(sorted))
	}
	return out
}
