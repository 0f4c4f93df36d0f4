// Package performance turns a trade log and equity curve into summary statistics.
package performance

import (
	"fmt"
	"sort"
	"time"

	"BreakoutScreener/internal/model"
)

// PeriodReturn is the additive sum of trade returns settled in one period.
type PeriodReturn struct {
	Period string  `json:"period"`
	Return float64 `json:"return"`
	Trades int     `json:"trades"`
}

// Summary holds the aggregate statistics of one run.
type Summary struct {
	TotalTrades  int            `json:"total_trades"`
	WinCount     int            `json:"win_count"`
	WinRate      float64        `json:"win_rate"`
	AvgReturn    float64        `json:"avg_return"`
	TotalReturn  float64        `json:"total_return"`
	MDD          float64        `json:"mdd"`
	TradeMDD     float64        `json:"trade_mdd"`
	FinalCapital float64        `json:"final_capital"`
	Outcomes     map[string]int `json:"outcomes"`
	Monthly      []PeriodReturn `json:"monthly"`
	Weekly       []PeriodReturn `json:"weekly"`
}

// Summarize computes statistics from trades and the equity series, which
// starts with the initial capital. A trade counts as a win when its return is
// positive, whatever its exit tag.
func Summarize(trades []model.TradeRecord, equity []float64, initial float64) Summary {
	s := Summary{
		TotalTrades:  len(trades),
		FinalCapital: initial,
		MDD:          MaxDrawdown(equity),
		TradeMDD:     TradeDrawdown(trades),
		Outcomes: map[string]int{
			string(model.OutcomeWin):         0,
			string(model.OutcomeLoss):        0,
			string(model.OutcomeHorizonExit): 0,
		},
	}
	if len(equity) > 0 {
		s.FinalCapital = equity[len(equity)-1]
	}
	if initial != 0 {
		s.TotalReturn = (s.FinalCapital - initial) / initial
	}

	sum := 0.0
	for _, t := range trades {
		if t.Won() {
			s.WinCount++
		}
		s.Outcomes[string(t.Outcome)]++
		sum += t.Return
	}
	if len(trades) > 0 {
		s.WinRate = float64(s.WinCount) / float64(len(trades))
		s.AvgReturn = sum / float64(len(trades))
	}

	s.Monthly = Aggregate(trades, MonthKey)
	s.Weekly = Aggregate(trades, WeekKey)
	return s
}

// MaxDrawdown is the minimum of (equity - peak) / peak over the curve, so
// always <= 0. Fewer than two points yields 0.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	peak := equity[0]
	mdd := 0.0
	for _, eq := range equity {
		if eq > peak {
			peak = eq
		}
		if peak <= 0 {
			continue
		}
		if dd := (eq - peak) / peak; dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

// TradeDrawdown is the drawdown of the cumulative (summed) trade returns,
// in return units rather than a fraction of peak equity.
func TradeDrawdown(trades []model.TradeRecord) float64 {
	cum, peak, mdd := 0.0, 0.0, 0.0
	for i, t := range trades {
		cum += t.Return
		if i == 0 || cum > peak {
			peak = cum
		}
		if dd := cum - peak; dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

// MonthKey formats the settlement month, e.g. "2024-03".
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// WeekKey formats the ISO week, e.g. "2024-W09".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// Aggregate sums trade returns per period of the settlement date, in chronological order.
func Aggregate(trades []model.TradeRecord, key func(time.Time) string) []PeriodReturn {
	idx := make(map[string]int)
	var out []PeriodReturn
	for _, t := range trades {
		k := key(t.SettleDate)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, PeriodReturn{Period: k})
		}
		out[i].Return += t.Return
		out[i].Trades++
	}
	// Both key layouts sort lexically in time order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
