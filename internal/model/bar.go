package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Opt is a float64 that may be absent, e.g. an indicator whose window is not yet full.
type Opt struct {
	Value float64
	Valid bool
}

// Some wraps a present value. NaN and ±Inf are treated as absent.
func Some(v float64) Opt {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Opt{}
	}
	return Opt{Value: v, Valid: true}
}

// None is the absent value.
func None() Opt { return Opt{} }

// Get returns the value and whether it is present.
func (o Opt) Get() (float64, bool) { return o.Value, o.Valid }

// Or returns the value, or def when absent.
func (o Opt) Or(def float64) float64 {
	if !o.Valid {
		return def
	}
	return o.Value
}

// MarshalJSON encodes an absent value as null.
func (o Opt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Opt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Opt) String() string {
	if !o.Valid {
		return "NA"
	}
	return fmt.Sprintf("%g", o.Value)
}

// PriceBar is one ticker's daily bar.
type PriceBar struct {
	Date      time.Time `json:"date"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name,omitempty"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount"` // traded value, close*volume when the source does not supply it
	MarketCap Opt       `json:"market_cap"`

	// Intraday afternoon session aggregates, only some sources provide them.
	After13Amount Opt `json:"after_13_amount"`
	After13Low    Opt `json:"after_13_low"`
}

var errBadBar = errors.New("invalid price bar")

// Validate checks that prices, volume and amount are finite, then the OHLC
// envelope and volume sign.
func (b PriceBar) Validate() error {
	if b.Ticker == "" {
		return fmt.Errorf("%w: empty ticker", errBadBar)
	}
	if b.Date.IsZero() {
		return fmt.Errorf("%w: %s has no date", errBadBar, b.Ticker)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume}, {"amount", b.Amount}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s %s %s is not finite", errBadBar, b.Ticker, b.Date.Format(DateLayout), f.name)
		}
	}
	if b.High < math.Max(math.Max(b.Open, b.Close), b.Low) {
		return fmt.Errorf("%w: %s %s high %.4f below open/close/low", errBadBar, b.Ticker, b.Date.Format(DateLayout), b.High)
	}
	if b.Low > math.Min(math.Min(b.Open, b.Close), b.High) {
		return fmt.Errorf("%w: %s %s low %.4f above open/close/high", errBadBar, b.Ticker, b.Date.Format(DateLayout), b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: %s %s negative volume", errBadBar, b.Ticker, b.Date.Format(DateLayout))
	}
	return nil
}

// DateLayout is the canonical day key used across stores and reports.
const DateLayout = "2006-01-02"

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD key.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
