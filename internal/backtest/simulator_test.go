package backtest

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/model"
)

var start = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func bar(day int, ticker string, high, low, close float64) model.IndicatorRow {
	return model.IndicatorRow{PriceBar: model.PriceBar{
		Date:   start.AddDate(0, 0, day),
		Ticker: ticker,
		Open:   close,
		High:   high,
		Low:    low,
		Close:  close,
	}}
}

// pickAll selects every ticker on every date with its close.
var pickAll = SelectorFunc(func(d indicator.Day) []model.Candidate {
	out := make([]model.Candidate, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = model.Candidate{Ticker: r.Ticker, Close: r.Close, Score: 1}
	}
	return out
})

func pickTickers(tickers ...string) Selector {
	return SelectorFunc(func(d indicator.Day) []model.Candidate {
		var out []model.Candidate
		for _, t := range tickers {
			for _, r := range d.Rows {
				if r.Ticker == t {
					out = append(out, model.Candidate{Ticker: t, Close: r.Close})
				}
			}
		}
		return out
	})
}

func simulator(t *testing.T, mutate func(*Config)) *Simulator {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	return s
}

func TestRun_ExitRules(t *testing.T) {
	tests := []struct {
		name      string
		next      model.IndicatorRow
		wantExit  float64
		wantTag   model.Outcome
		wantRet   float64
		wantFinal float64
	}{
		{"target hit", bar(1, "A", 10_200, 9_990, 10_150), 10_100, model.OutcomeWin, 0.01, 10_100_000},
		{"stop hit", bar(1, "A", 10_050, 9_850, 9_900), 9_900, model.OutcomeLoss, -0.01, 9_900_000},
		{"horizon exit", bar(1, "A", 10_050, 9_950, 10_030), 10_030, model.OutcomeHorizonExit, 0.003, 10_030_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []model.IndicatorRow{bar(0, "A", 10_000, 10_000, 10_000), tt.next}
			res, err := simulator(t, nil).Run(rows, pickAll)
			require.NoError(t, err)

			require.Len(t, res.Trades, 1)
			tr := res.Trades[0]
			assert.InDelta(t, tt.wantExit, tr.ExitPrice, 1e-6)
			assert.Equal(t, tt.wantTag, tr.Outcome)
			assert.InDelta(t, tt.wantRet, tr.Return, 1e-9)
			assert.InDelta(t, 10_000_000*tt.wantRet, tr.PnL, 1e-3)
			assert.Equal(t, start.AddDate(0, 0, 1), tr.SettleDate)
			assert.InDelta(t, tt.wantFinal, res.FinalCapital, 1e-3)
			assert.Equal(t, 10_000_000.0, res.DailyEquity[0])
		})
	}
}

func TestRun_TargetBeatsStopOnSameBar(t *testing.T) {
	rows := []model.IndicatorRow{bar(0, "A", 100, 100, 100), bar(1, "A", 105, 95, 100)}
	res, err := simulator(t, nil).Run(rows, pickAll)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeWin, res.Trades[0].Outcome)
}

func TestRun_AllocationFixedAtStartOfDate(t *testing.T) {
	rows := []model.IndicatorRow{
		bar(0, "A", 100, 100, 100), bar(0, "B", 100, 100, 100),
		bar(1, "A", 102, 100, 101), bar(1, "B", 100, 98, 99.5),
	}
	res, err := simulator(t, func(c *Config) { c.InitialCapital = 1_000 }).Run(rows, pickAll)
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, 500.0, res.Trades[0].Allocation)
	assert.Equal(t, 500.0, res.Trades[1].Allocation)
	require.Len(t, res.DailyEquity, 3, "one snapshot per trade plus the start")
	assert.InDelta(t, 1_005, res.DailyEquity[1], 1e-9)
	assert.InDelta(t, 1_000, res.DailyEquity[2], 1e-9)
}

func TestRun_CapsCandidates(t *testing.T) {
	var rows []model.IndicatorRow
	for _, tk := range []string{"A", "B", "C", "D", "E", "F"} {
		rows = append(rows, bar(0, tk, 100, 100, 100), bar(1, tk, 100, 100, 100))
	}
	res, err := simulator(t, nil).Run(rows, pickAll)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalTrades)
	assert.InDelta(t, 2_500_000, res.Trades[0].Allocation, 1e-9)
	assert.LessOrEqual(t, res.TotalTrades, res.DatesWithPicks*4)
}

func TestRun_MissingSettlementBarIsSkipped(t *testing.T) {
	rows := []model.IndicatorRow{
		bar(0, "A", 100, 100, 100), bar(0, "B", 100, 100, 100),
		bar(1, "A", 102, 100, 101),
	}
	res, err := simulator(t, nil).Run(rows, pickTickers("B", "A"))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "A", res.Trades[0].Ticker)
	assert.Equal(t, 5_000_000.0, res.Trades[0].Allocation, "allocation still split over both slots")
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Selections, 2)
	assert.False(t, res.Selections[0].Settled)
	assert.True(t, res.Selections[1].Settled)
}

func TestRun_DatesWithoutTradesHoldEquity(t *testing.T) {
	rows := []model.IndicatorRow{
		bar(0, "A", 100, 100, 100),
		bar(1, "A", 100, 100, 100),
		bar(2, "A", 102, 100, 101),
		bar(3, "A", 100, 100, 100),
	}
	onlyDay1 := SelectorFunc(func(d indicator.Day) []model.Candidate {
		if !d.Date.Equal(start.AddDate(0, 0, 1)) {
			return nil
		}
		return pickAll(d)
	})
	res, err := simulator(t, nil).Run(rows, onlyDay1)
	require.NoError(t, err)

	assert.Equal(t, 3, res.DatesProcessed)
	assert.GreaterOrEqual(t, len(res.DailyEquity), res.DatesProcessed+1)
	assert.Equal(t, []float64{10_000_000, 10_000_000, 10_100_000, 10_100_000}, roundAll(res.DailyEquity))
	for i := 1; i < len(res.EquityCurve); i++ {
		assert.False(t, res.EquityCurve[i].Date.Before(res.EquityCurve[i-1].Date), "curve dates ascend")
	}
}

func TestRun_ZeroCapTradesNothing(t *testing.T) {
	rows := []model.IndicatorRow{bar(0, "A", 100, 100, 100), bar(1, "A", 102, 100, 101)}
	res, err := simulator(t, func(c *Config) { c.MaxPositions = 0 }).Run(rows, pickAll)
	require.NoError(t, err)
	assert.Zero(t, res.TotalTrades)
	assert.Equal(t, []float64{10_000_000, 10_000_000}, res.DailyEquity)
	assert.Zero(t, res.MDD)
}

func TestRun_LastDateNeverTraded(t *testing.T) {
	rows := []model.IndicatorRow{bar(0, "A", 100, 100, 100)}
	res, err := simulator(t, nil).Run(rows, pickAll)
	require.NoError(t, err)
	assert.Zero(t, res.DatesProcessed)
	assert.Empty(t, res.Trades)
	assert.Equal(t, []float64{10_000_000}, res.DailyEquity)
}

func TestRun_NoData(t *testing.T) {
	_, err := simulator(t, nil).Run(nil, pickAll)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestResult_JSONContract(t *testing.T) {
	rows := []model.IndicatorRow{bar(0, "A", 100, 100, 100), bar(1, "A", 102, 100, 101)}
	res, err := simulator(t, nil).Run(rows, pickAll)
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	for _, key := range []string{"trades", "daily_equity", "total_trades", "win_count", "win_rate", "avg_return", "total_return", "mdd", "final_capital"} {
		assert.Contains(t, out, key)
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.StopLoss = 0.01
	bad.InitialCapital = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_loss")
	assert.Contains(t, err.Error(), "initial_capital")

	_, err = NewSimulator(Config{MaxPositions: -1})
	assert.Error(t, err)
}

func roundAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(int64(x + 0.5))
	}
	return out
}
