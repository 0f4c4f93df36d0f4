package calculator

import (
	"errors"
	"math"

	"BreakoutScreener/internal/model"
)

// ErrBadPeriod is returned for a non-positive window.
var ErrBadPeriod = errors.New("period must be positive")

// SMA computes the trailing simple moving average of values over period.
// out[i] covers values[i-period+1..i] and is absent for the first period-1
// entries and for any window holding a non-finite value.
func SMA(values []float64, period int) ([]model.Opt, error) {
	if period <= 0 {
		return nil, ErrBadPeriod
	}
	out := make([]model.Opt, len(values))
	sum := 0.0
	bad := 0
	for i, v := range values {
		if finite(v) {
			sum += v
		} else {
			bad++
		}
		if i >= period {
			if old := values[i-period]; finite(old) {
				sum -= old
			} else {
				bad--
			}
		}
		if i >= period-1 && bad == 0 {
			out[i] = model.Some(sum / float64(period))
		}
	}
	return out, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// SMAOpt is SMA over a series with gaps. A window containing an absent value is absent.
func SMAOpt(values []model.Opt, period int) ([]model.Opt, error) {
	if period <= 0 {
		return nil, ErrBadPeriod
	}
	out := make([]model.Opt, len(values))
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			v, valid := values[j].Get()
			if !valid {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = model.Some(sum / float64(period))
		}
	}
	return out, nil
}

// Shift lags a series by n rows (n > 0) so out[i] = values[i-n].
// A negative n leads it instead, out[i] = values[i-n] for the look-ahead fields.
func Shift(values []model.Opt, n int) []model.Opt {
	out := make([]model.Opt, len(values))
	for i := range values {
		j := i - n
		if j >= 0 && j < len(values) {
			out[i] = values[j]
		}
	}
	return out
}

// PctChange returns (values[i]-values[i-1])/values[i-1]; the first row and zero bases are absent.
func PctChange(values []float64) []model.Opt {
	out := make([]model.Opt, len(values))
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			continue
		}
		out[i] = model.Some((values[i] - prev) / prev)
	}
	return out
}

// Wrap lifts a plain series into Opt values.
func Wrap(values []float64) []model.Opt {
	out := make([]model.Opt, len(values))
	for i, v := range values {
		out[i] = model.Some(v)
	}
	return out
}
