package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/model"
)

func TestSMA_Bootstrap(t *testing.T) {
	out, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.False(t, out[0].Valid)
	assert.False(t, out[1].Valid)
	assert.Equal(t, model.Some(2), out[2])
	assert.Equal(t, model.Some(3), out[3])
	assert.Equal(t, model.Some(4), out[4])
}

func TestSMA_RecoversAfterNaN(t *testing.T) {
	in := []float64{1, 2, math.NaN(), 4, 5, 6, 7}
	out, err := SMA(in, 3)
	require.NoError(t, err)
	for i := 2; i <= 4; i++ {
		assert.False(t, out[i].Valid, "window %d holds the NaN", i)
	}
	assert.Equal(t, model.Some(5), out[5])
	assert.Equal(t, model.Some(6), out[6])
}

func TestSMA_BadPeriod(t *testing.T) {
	_, err := SMA([]float64{1}, 0)
	assert.ErrorIs(t, err, ErrBadPeriod)
}

func TestSMAOpt_GapInvalidatesWindow(t *testing.T) {
	in := []model.Opt{model.None(), model.Some(2), model.Some(4), model.Some(6)}
	out, err := SMAOpt(in, 2)
	require.NoError(t, err)
	assert.False(t, out[1].Valid, "window touching a gap must be absent")
	assert.Equal(t, model.Some(3), out[2])
	assert.Equal(t, model.Some(5), out[3])
}

func TestRollingExtremes(t *testing.T) {
	v := []float64{3, 1, 4, 1, 5}
	hi, err := RollingMax(v, 3)
	require.NoError(t, err)
	lo, err := RollingMin(v, 3)
	require.NoError(t, err)
	assert.False(t, hi[1].Valid)
	assert.Equal(t, []float64{4, 4, 5}, []float64{hi[2].Value, hi[3].Value, hi[4].Value})
	assert.Equal(t, []float64{1, 1, 1}, []float64{lo[2].Value, lo[3].Value, lo[4].Value})
}

func TestShift(t *testing.T) {
	in := Wrap([]float64{1, 2, 3})
	lag := Shift(in, 1)
	lead := Shift(in, -1)
	assert.False(t, lag[0].Valid)
	assert.Equal(t, 2.0, lag[2].Value)
	assert.Equal(t, 2.0, lead[0].Value)
	assert.False(t, lead[2].Valid)
}

func TestPctChange(t *testing.T) {
	out := PctChange([]float64{100, 110, 0, 5})
	assert.False(t, out[0].Valid)
	assert.InDelta(t, 0.1, out[1].Value, 1e-12)
	assert.InDelta(t, -1.0, out[2].Value, 1e-12)
	assert.False(t, out[3].Valid, "zero base is undefined")
}

func TestRankPctMax_Ties(t *testing.T) {
	out := RankPctMax([]float64{20, 10, 20, 30})
	assert.Equal(t, []float64{0.75, 0.25, 0.75, 1.0}, out)
}

func TestSpanRatio_ZeroSpan(t *testing.T) {
	assert.False(t, SpanRatio(1, 10, 10).Valid)
	assert.Equal(t, model.Some(0.5), SpanRatio(1, 12, 10))
	assert.False(t, RangePct(1, 1, 0).Valid)
}
