package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/model"
)

// breakoutRow satisfies every default condition.
func breakoutRow() *model.IndicatorRow {
	return &model.IndicatorRow{
		PriceBar: model.PriceBar{
			Ticker:    "005930",
			Open:      10_000,
			High:      10_500,
			Low:       9_900,
			Close:     10_450,
			Volume:    300_000,
			MarketCap: model.Some(500_000_000_000),
		},
		MAs:         map[int]model.Opt{5: model.Some(10_100)},
		HighMaxes:   map[int]model.Opt{20: model.Some(10_500)},
		RangeMeans:  map[int]model.Opt{10: model.Some(0.035)},
		VolumeRatio: map[int]float64{20: 2.5},
	}
}

func allOff(s Set) Set {
	s.Volume.Enabled = false
	s.Candle.Enabled = false
	s.Close.Enabled = false
	s.Trend.Enabled = false
	s.Volatility.Enabled = false
	s.Size.Enabled = false
	return s
}

func TestEvaluate_AllSatisfied(t *testing.T) {
	ev := Evaluate(DefaultSet(), breakoutRow())
	assert.Equal(t, 6, ev.Met)
	for _, n := range Names {
		assert.True(t, ev.Detail[n], "condition %s", n)
	}
}

func TestEvaluate_MetCountMatchesDetail(t *testing.T) {
	row := breakoutRow()
	row.VolumeRatio[20] = 1.2
	row.Close = row.Open
	ev := Evaluate(DefaultSet(), row)

	count := 0
	for _, ok := range ev.Detail {
		if ok {
			count++
		}
	}
	assert.Equal(t, count, ev.Met)
	assert.False(t, ev.Detail[Volume])
	assert.False(t, ev.Detail[Candle])
}

func TestEvaluate_DisabledIsVacuouslyTrue(t *testing.T) {
	ev := Evaluate(allOff(DefaultSet()), &model.IndicatorRow{})
	assert.Equal(t, Count, ev.Met)
}

func TestVolumeSurge(t *testing.T) {
	cfg := DefaultSet().Volume
	row := breakoutRow()

	row.VolumeRatio[20] = 2.0
	assert.True(t, VolumeSurge{cfg}.Evaluate(row).Satisfied, "boundary is inclusive")
	row.VolumeRatio[20] = 1.99
	assert.False(t, VolumeSurge{cfg}.Evaluate(row).Satisfied)

	delete(row.VolumeRatio, 20)
	assert.False(t, VolumeSurge{cfg}.Evaluate(row).Satisfied, "uncomputed window fails safe")
}

func TestBullishCandle(t *testing.T) {
	cfg := CandleConfig{Enabled: true, BodyRatioMin: 0.3}
	tests := []struct {
		name              string
		open, high, close float64
		want              bool
	}{
		{"strong body", 100, 110, 108, true},
		{"exact threshold", 100, 110, 103, true},
		{"thin body", 100, 110, 102, false},
		{"bearish", 100, 110, 99, false},
		{"doji", 100, 110, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := &model.IndicatorRow{PriceBar: model.PriceBar{Open: tt.open, High: tt.high, Close: tt.close}}
			assert.Equal(t, tt.want, BullishCandle{cfg}.Evaluate(row).Satisfied)
		})
	}
}

func TestBullishCandle_ZeroSpanNeverSatisfies(t *testing.T) {
	row := &model.IndicatorRow{PriceBar: model.PriceBar{Open: 100, High: 100, Close: 100}}
	assert.False(t, BullishCandle{CandleConfig{Enabled: true, BodyRatioMin: 0}}.Evaluate(row).Satisfied)
}

func TestClosePosition(t *testing.T) {
	cfg := CloseConfig{Enabled: true, ClosePct: 0.95}
	row := &model.IndicatorRow{PriceBar: model.PriceBar{High: 100, Close: 95}}
	res := ClosePosition{cfg}.Evaluate(row)
	assert.True(t, res.Satisfied)
	assert.InDelta(t, 0.95, res.Score.Value, 1e-12)

	row.Close = 94
	assert.False(t, ClosePosition{cfg}.Evaluate(row).Satisfied)

	zero := &model.IndicatorRow{}
	assert.False(t, ClosePosition{cfg}.Evaluate(zero).Satisfied)
}

func TestShortTrend(t *testing.T) {
	base := TrendConfig{Enabled: true, MAEnabled: true, MAPeriod: 5, BreakoutEnabled: true, BreakoutPeriod: 20}

	row := breakoutRow()
	row.MAs[5] = model.Some(row.Close + 1)
	assert.True(t, ShortTrend{base}.Evaluate(row).Satisfied, "breakout alone is enough")

	row.HighMaxes[20] = model.Some(row.High + 1)
	assert.False(t, ShortTrend{base}.Evaluate(row).Satisfied)

	onlyMA := base
	onlyMA.BreakoutEnabled = false
	row.MAs[5] = model.Some(row.Close)
	assert.True(t, ShortTrend{onlyMA}.Evaluate(row).Satisfied)

	row.MAs[5] = model.None()
	assert.False(t, ShortTrend{onlyMA}.Evaluate(row).Satisfied, "missing MA fails safe")

	none := base
	none.MAEnabled, none.BreakoutEnabled = false, false
	assert.True(t, ShortTrend{none}.Evaluate(&model.IndicatorRow{}).Satisfied)
}

func TestVolatilityFloor(t *testing.T) {
	cfg := VolatilityConfig{Enabled: true, MinVolatility: 0.02, Period: 10}
	row := &model.IndicatorRow{RangeMeans: map[int]model.Opt{10: model.Some(0.02)}}
	assert.True(t, VolatilityFloor{cfg}.Evaluate(row).Satisfied)

	row.RangeMeans[10] = model.None()
	assert.False(t, VolatilityFloor{cfg}.Evaluate(row).Satisfied)
}

func TestSizeBand(t *testing.T) {
	cfg := DefaultSet().Size
	row := breakoutRow()

	row.MarketCap = model.Some(cfg.MarketCapMax)
	row.Close = cfg.PriceMin
	assert.True(t, SizeBand{cfg}.Evaluate(row).Satisfied, "both bounds inclusive")

	row.Close = cfg.PriceMax + 1
	assert.False(t, SizeBand{cfg}.Evaluate(row).Satisfied)

	row.Close = 10_000
	row.MarketCap = model.None()
	assert.False(t, SizeBand{cfg}.Evaluate(row).Satisfied, "missing cap excluded by default")

	cfg.AllowMissingMarketCap = true
	assert.True(t, SizeBand{cfg}.Evaluate(row).Satisfied)
}

func TestSet_Validate(t *testing.T) {
	require.NoError(t, DefaultSet().Validate())

	bad := DefaultSet()
	bad.Volume.Period = -1
	bad.Size.PriceMin = 60_000
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume.period")
	assert.Contains(t, err.Error(), "size.price_min")

	disabled := allOff(DefaultSet())
	disabled.Trend.MAPeriod = 0
	assert.Error(t, disabled.Validate(), "disabled conditions are still validated")
}

func TestName_Valid(t *testing.T) {
	assert.True(t, Trend.Valid())
	assert.False(t, Name("momentum").Valid())
}
