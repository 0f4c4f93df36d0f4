package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpt(t *testing.T) {
	assert.False(t, Some(math.NaN()).Valid)
	assert.False(t, Some(math.Inf(1)).Valid)
	assert.Equal(t, 2.5, Some(2.5).Or(0))
	assert.Equal(t, 7.0, None().Or(7))
	assert.Equal(t, "NA", None().String())
}

func TestOpt_JSON(t *testing.T) {
	var v struct {
		A Opt `json:"a"`
		B Opt `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1.5,"b":null}`), &v))
	assert.Equal(t, Some(1.5), v.A)
	assert.False(t, v.B.Valid)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(out))
}

func TestPriceBar_Validate(t *testing.T) {
	good := PriceBar{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Ticker: "A", Open: 10, High: 11, Low: 9, Close: 10.5}
	require.NoError(t, good.Validate())

	cases := map[string]func(*PriceBar){
		"no ticker":       func(b *PriceBar) { b.Ticker = "" },
		"no date":         func(b *PriceBar) { b.Date = time.Time{} },
		"high below":      func(b *PriceBar) { b.High = 10.2 },
		"low above":       func(b *PriceBar) { b.Low = 10.1 },
		"negative volume": func(b *PriceBar) { b.Volume = -1 },
		"nan close":       func(b *PriceBar) { b.Close = math.NaN() },
		"inf high":        func(b *PriceBar) { b.High = math.Inf(1) },
		"nan open":        func(b *PriceBar) { b.Open = math.NaN() },
		"nan low":         func(b *PriceBar) { b.Low = math.NaN() },
		"inf volume":      func(b *PriceBar) { b.Volume = math.Inf(1) },
		"nan amount":      func(b *PriceBar) { b.Amount = math.NaN() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := good
			mutate(&b)
			assert.ErrorIs(t, b.Validate(), errBadBar)
		})
	}
}

func TestDayAndParseDay(t *testing.T) {
	d := Day(time.Date(2024, 3, 4, 15, 50, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-04", d.Format(DateLayout))

	p, err := ParseDay("2024-03-04")
	require.NoError(t, err)
	assert.True(t, p.Equal(d))
	_, err = ParseDay("04/03/2024")
	assert.Error(t, err)
}
