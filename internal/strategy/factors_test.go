package strategy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/model"
)

// surging passes the cross-sectional hard filter.
func surging(ticker string, amount float64) model.IndicatorRow {
	return model.IndicatorRow{
		PriceBar: model.PriceBar{
			Date:      day0,
			Ticker:    ticker,
			Open:      10_000,
			High:      10_500,
			Low:       9_950,
			Close:     10_480,
			Amount:    amount,
			MarketCap: model.Some(500_000_000_000),
		},
		MAs:            map[int]model.Opt{5: model.Some(10_300), 10: model.Some(10_200), 20: model.Some(10_100)},
		HighMaxes:      map[int]model.Opt{20: model.Some(10_500)},
		RangeMeans:     map[int]model.Opt{10: model.Some(0.03)},
		AmountAvg:      model.Some(2_000_000_000),
		AmountRankPct:  model.Some(0.5),
		PrevChange:     model.Some(0.02),
		BodyRatio:      model.Some(480.0 / 550.0),
		UpperWickRatio: model.Some(20.0 / 550.0),
		LowerWickRatio: model.Some(50.0 / 550.0),
		PrevChangeMin:  model.Some(-0.02),
	}
}

func newCrossSectional(t *testing.T, mutate func(*CrossSectionalConfig)) *CrossSectional {
	t.Helper()
	cfg := DefaultCrossSectional()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewCrossSectional(cfg)
	require.NoError(t, err)
	return p
}

func TestCrossSectional_Passes(t *testing.T) {
	p := newCrossSectional(t, nil)

	tests := []struct {
		name   string
		mutate func(*model.IndicatorRow)
		want   bool
	}{
		{"baseline", func(*model.IndicatorRow) {}, true},
		{"big drop in window", func(r *model.IndicatorRow) { r.PrevChangeMin = model.Some(-0.08) }, false},
		{"long upper wick", func(r *model.IndicatorRow) { r.UpperWickRatio = model.Some(0.6) }, false},
		{"day change too large", func(r *model.IndicatorRow) { r.PrevChange = model.Some(0.15) }, false},
		{"missing day change waived", func(r *model.IndicatorRow) { r.PrevChange = model.None() }, true},
		{"quiet range", func(r *model.IndicatorRow) { r.RangeMeans[10] = model.Some(0.01) }, false},
		{"volume decline", func(r *model.IndicatorRow) {
			r.VolMA, r.VolMAPrev = model.Some(40), model.Some(100)
		}, false},
		{"cap out of band", func(r *model.IndicatorRow) { r.MarketCap = model.Some(2e12) }, false},
		{"cheap stock", func(r *model.IndicatorRow) { r.Close, r.Open, r.High, r.Low = 900, 850, 905, 845 }, false},
		{"missing cap excluded by default", func(r *model.IndicatorRow) { r.MarketCap = model.None() }, false},
		{"weak afternoon", func(r *model.IndicatorRow) { r.After13Amount = model.Some(1e9) }, false},
		{"afternoon held the low", func(r *model.IndicatorRow) {
			r.After13Amount = model.Some(1e9)
			r.After13Low = model.Some(r.Low)
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := surging("A", 5_000_000_000)
			tt.mutate(&row)
			assert.Equal(t, tt.want, p.Passes(&row))
		})
	}
}

func TestCrossSectional_MissingCapAllowed(t *testing.T) {
	p := newCrossSectional(t, func(c *CrossSectionalConfig) { c.AllowMissingMarketCap = true })
	row := surging("A", 5_000_000_000)
	row.MarketCap = model.None()
	assert.True(t, p.Passes(&row))
}

func TestCrossSectional_Score(t *testing.T) {
	p := newCrossSectional(t, nil)
	row := surging("A", 5_000_000_000)
	s := p.Score(&row)

	require.True(t, s.Total.Valid)
	want := 2.5*0.4 + (10_480.0/10_500.0)*0.25 + 1.0*0.2 + 0.15
	assert.InDelta(t, want, s.Total.Value, 1e-9)
	require.Len(t, s.Factors, 4)
	assert.Equal(t, "amount", s.Factors[0].Name)

	row.Amount = 100_000_000_000
	assert.InDelta(t, 10.0, p.Score(&row).Factors[0].RawScore.Value, 1e-12, "amount ratio clipped")

	row.AmountAvg = model.None()
	assert.False(t, p.Score(&row).Total.Valid)
}

func TestCrossSectional_SelectTopK(t *testing.T) {
	p := newCrossSectional(t, nil)

	var rows []model.IndicatorRow
	for i, amt := range []float64{4e9, 9e9, 5e9, 6e9, 8e9, 7e9} {
		rows = append(rows, surging(fmt.Sprintf("T%d", i), amt))
	}
	got := p.Select(indicator.Day{Date: day0, Rows: rows})
	require.Len(t, got, 4)
	var order []string
	for _, c := range got {
		order = append(order, c.Ticker)
	}
	assert.Equal(t, []string{"T1", "T4", "T5", "T3"}, order)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}

func TestCrossSectional_UnscoredRowsSortLast(t *testing.T) {
	p := newCrossSectional(t, nil)

	unscored := surging("U", 5e9)
	unscored.AmountAvg = model.None()
	unscored.AmountRankPct = model.Some(0.9)
	scored := surging("S", 1e9)

	ranked := p.Rank([]model.IndicatorRow{unscored, scored})
	require.Len(t, ranked, 2)
	assert.Equal(t, "S", ranked[0].Row.Ticker)
	assert.False(t, ranked[1].Total.Valid)
}

func TestCrossSectional_SelectPerDate(t *testing.T) {
	p := newCrossSectional(t, nil)
	next := surging("B", 5e9)
	next.Date = day0.AddDate(0, 0, 1)
	quiet := surging("C", 5e9)
	quiet.Date = day0.AddDate(0, 0, 2)
	quiet.RangeMeans[10] = model.Some(0.001)

	days := indicator.SplitByDate([]model.IndicatorRow{surging("A", 5e9), next, quiet})
	require.Len(t, days, 3)
	got := make([][]model.Candidate, len(days))
	for i, d := range days {
		got[i] = p.Select(d)
	}
	require.Len(t, got[0], 1)
	assert.Equal(t, "A", got[0][0].Ticker)
	require.Len(t, got[1], 1)
	assert.Equal(t, "B", got[1][0].Ticker)
	assert.Empty(t, got[2])
}

func TestCrossSectionalConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultCrossSectional().Validate())

	bad := DefaultCrossSectional()
	bad.TopK = 0
	bad.BigDrop = 0.1
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k")
	assert.Contains(t, err.Error(), "big_drop")
}
