package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/model"
)

// CrossSectionalConfig drives the alternate policy: a hard filter over raw
// indicators, a fixed-weight composite score, and the top K rows per date.
type CrossSectionalConfig struct {
	TopK int `yaml:"top_k"`

	AmountSurge   float64 `yaml:"amount_surge"`
	AmountRankPct float64 `yaml:"amount_rank_pct"`

	BodyRatioMin float64 `yaml:"body_ratio_min"`
	CloseToHigh  float64 `yaml:"close_to_high"`
	WickMax      float64 `yaml:"wick_max"`

	BreakoutProximity float64 `yaml:"breakout_proximity"`
	PullbackLow       float64 `yaml:"pullback_low"`
	PullbackClose     float64 `yaml:"pullback_close"`

	MinVolatility  float64 `yaml:"min_volatility"`
	VolatilityNorm float64 `yaml:"volatility_norm"`

	AfternoonAmountShare float64 `yaml:"afternoon_amount_share"`
	AfternoonLowRatio    float64 `yaml:"afternoon_low_ratio"`

	PrevChangeMin float64 `yaml:"prev_change_min"`
	PrevChangeMax float64 `yaml:"prev_change_max"`

	MarketCapMin          float64 `yaml:"market_cap_min"`
	MarketCapMax          float64 `yaml:"market_cap_max"`
	PriceMin              float64 `yaml:"price_min"`
	AllowMissingMarketCap bool    `yaml:"allow_missing_market_cap"`

	LimitUpClose       float64 `yaml:"limit_up_close"`
	LimitUpChange      float64 `yaml:"limit_up_change"`
	LongWickMax        float64 `yaml:"long_wick_max"`
	BigDrop            float64 `yaml:"big_drop"`
	VolumeDeclineRatio float64 `yaml:"volume_decline_ratio"`
}

// DefaultCrossSectional returns the relaxed thresholds of the cross-sectional screener.
func DefaultCrossSectional() CrossSectionalConfig {
	return CrossSectionalConfig{
		TopK:                 4,
		AmountSurge:          2.0,
		AmountRankPct:        0.8,
		BodyRatioMin:         0.5,
		CloseToHigh:          0.95,
		WickMax:              0.25,
		BreakoutProximity:    0.99,
		PullbackLow:          1.05,
		PullbackClose:        0.98,
		MinVolatility:        0.02,
		VolatilityNorm:       0.03,
		AfternoonAmountShare: 0.3,
		AfternoonLowRatio:    0.98,
		PrevChangeMin:        0.005,
		PrevChangeMax:        0.1,
		MarketCapMin:         1e11,
		MarketCapMax:         1e12,
		PriceMin:             1000,
		LimitUpClose:         0.999,
		LimitUpChange:        0.3,
		LongWickMax:          0.5,
		BigDrop:              -0.08,
		VolumeDeclineRatio:   0.5,
	}
}

// Validate checks the policy thresholds.
func (c CrossSectionalConfig) Validate() error {
	var errs []error
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("cross_sectional.top_k must be positive, got %d", c.TopK))
	}
	if c.VolatilityNorm <= 0 {
		errs = append(errs, fmt.Errorf("cross_sectional.volatility_norm must be positive, got %g", c.VolatilityNorm))
	}
	if c.PrevChangeMin > c.PrevChangeMax {
		errs = append(errs, fmt.Errorf("cross_sectional.prev_change_min %g exceeds prev_change_max %g", c.PrevChangeMin, c.PrevChangeMax))
	}
	if c.MarketCapMin > c.MarketCapMax {
		errs = append(errs, fmt.Errorf("cross_sectional.market_cap_min %g exceeds market_cap_max %g", c.MarketCapMin, c.MarketCapMax))
	}
	if c.BigDrop > 0 {
		errs = append(errs, fmt.Errorf("cross_sectional.big_drop must be a non-positive fraction, got %g", c.BigDrop))
	}
	return errors.Join(errs...)
}

// Windows lists the indicator windows the policy reads.
func (c CrossSectionalConfig) Windows() indicator.Windows {
	return indicator.Windows{
		MA:         []int{5, 10, 20},
		HighMax:    []int{20},
		Volatility: []int{10},
	}
}

// FactorScore is one weighted component of the composite score.
type FactorScore struct {
	Name     string
	RawScore model.Opt
	Weight   float64
	Weighted float64
}

// ScoredRow is a filtered row with its composite score.
type ScoredRow struct {
	Row     model.IndicatorRow
	Factors []FactorScore
	Total   model.Opt // absent when any factor is
}

// CrossSectional implements the alternate selection policy.
type CrossSectional struct {
	cfg CrossSectionalConfig
}

// NewCrossSectional validates cfg.
func NewCrossSectional(cfg CrossSectionalConfig) (*CrossSectional, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CrossSectional{cfg: cfg}, nil
}

// Passes applies the hard filter to one row. Comparisons against an absent
// value are false, except where a missing input explicitly waives a check.
func (p *CrossSectional) Passes(r *model.IndicatorRow) bool {
	c := p.cfg
	ma5, ma10, ma20 := r.MA(5), r.MA(10), r.MA(20)

	amountOK := geScaled(r.Amount, r.AmountAvg, c.AmountSurge) || ge(r.AmountRankPct, c.AmountRankPct)

	candleOK := r.Close > r.Open &&
		ge(r.BodyRatio, c.BodyRatioMin) &&
		r.Close >= r.High*c.CloseToHigh &&
		le(r.UpperWickRatio, c.WickMax) &&
		le(r.LowerWickRatio, c.WickMax)

	aligned := gt2(ma5, ma10) && gt2(ma10, ma20)
	trendOK := geScaled(r.Close, r.HighMax(20), c.BreakoutProximity) ||
		(aligned && leScaled(r.Low, ma5, c.PullbackLow) && geScaled(r.Close, ma5, c.PullbackClose)) ||
		(gtV(r.Close, ma20) && gt2(ma5, ma20))

	if !(amountOK || candleOK || trendOK) {
		return false
	}
	if !ge(r.Volatility(10), c.MinVolatility) {
		return false
	}
	if r.After13Amount.Valid {
		afternoon := geScaled(r.After13Amount.Value, model.Some(r.Amount), c.AfternoonAmountShare) ||
			geScaled(r.After13Low.Or(math.NaN()), model.Some(r.Low), c.AfternoonLowRatio)
		if !afternoon {
			return false
		}
	}
	if chg, ok := r.PrevChange.Get(); ok && (chg < c.PrevChangeMin || chg > c.PrevChangeMax) {
		return false
	}
	if !p.specOK(r) {
		return false
	}

	// exclusions
	if r.Close >= r.High*c.LimitUpClose && gt(r.PrevChange, c.LimitUpChange) {
		return false
	}
	if gt(r.UpperWickRatio, c.LongWickMax) || gt(r.LowerWickRatio, c.LongWickMax) {
		return false
	}
	if le(r.PrevChangeMin, c.BigDrop) {
		return false
	}
	if prev, ok := r.VolMAPrev.Get(); ok {
		if cur, ok := r.VolMA.Get(); ok && cur < prev*c.VolumeDeclineRatio {
			return false
		}
	}
	return true
}

// specOK is the cap and price band. A missing cap waives the whole band when allowed.
func (p *CrossSectional) specOK(r *model.IndicatorRow) bool {
	capital, ok := r.MarketCap.Get()
	if !ok {
		return p.cfg.AllowMissingMarketCap
	}
	return capital >= p.cfg.MarketCapMin && capital <= p.cfg.MarketCapMax && r.Close >= p.cfg.PriceMin
}

// Score computes the composite: amount ratio 0.4, close/high 0.25,
// normalised volatility 0.2, MA alignment 0.15.
func (p *CrossSectional) Score(r *model.IndicatorRow) ScoredRow {
	amount := model.None()
	if avg, ok := r.AmountAvg.Get(); ok && avg != 0 {
		amount = model.Some(clip(r.Amount/avg, 0, 10))
	}
	closeHigh := model.None()
	if r.High != 0 {
		closeHigh = model.Some(r.Close / r.High)
	}
	vol := model.None()
	if v, ok := r.Volatility(10).Get(); ok {
		vol = model.Some(clip(v/p.cfg.VolatilityNorm, 0, 2))
	}
	ma := 0.0
	if gt2(r.MA(5), r.MA(10)) && gt2(r.MA(10), r.MA(20)) {
		ma = 1
	}

	factors := []FactorScore{
		factor("amount", amount, 0.4),
		factor("close_to_high", closeHigh, 0.25),
		factor("volatility", vol, 0.2),
		factor("ma_alignment", model.Some(ma), 0.15),
	}
	total := 0.0
	valid := true
	for _, f := range factors {
		if !f.RawScore.Valid {
			valid = false
		}
		total += f.Weighted
	}
	out := ScoredRow{Row: *r, Factors: factors}
	if valid {
		out.Total = model.Some(total)
	}
	return out
}

func factor(name string, raw model.Opt, weight float64) FactorScore {
	return FactorScore{Name: name, RawScore: raw, Weight: weight, Weighted: raw.Or(0) * weight}
}

// Rank filters and scores one date's rows, best first. Rows whose score is
// absent sort after all scored rows.
func (p *CrossSectional) Rank(rows []model.IndicatorRow) []ScoredRow {
	var out []ScoredRow
	for i := range rows {
		if p.Passes(&rows[i]) {
			out = append(out, p.Score(&rows[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Total, out[j].Total
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Value > b.Value
	})
	return out
}

// Select returns the day's top K.
func (p *CrossSectional) Select(day indicator.Day) []model.Candidate {
	ranked := p.Rank(day.Rows)
	if len(ranked) > p.cfg.TopK {
		ranked = ranked[:p.cfg.TopK]
	}
	out := make([]model.Candidate, len(ranked))
	for i, s := range ranked {
		out[i] = model.Candidate{Ticker: s.Row.Ticker, Name: s.Row.Name, Close: s.Row.Close, Score: s.Total.Or(0)}
	}
	return out
}

func clip(v, lo, hi float64) float64 { return math.Min(math.Max(v, lo), hi) }

func ge(a model.Opt, b float64) bool { v, ok := a.Get(); return ok && v >= b }
func gt(a model.Opt, b float64) bool { v, ok := a.Get(); return ok && v > b }
func le(a model.Opt, b float64) bool { v, ok := a.Get(); return ok && v <= b }

func gt2(a, b model.Opt) bool           { return a.Valid && b.Valid && a.Value > b.Value }
func gtV(v float64, ref model.Opt) bool { return ref.Valid && v > ref.Value }

// geScaled reports v >= ref*k; NaN v or absent ref is false.
func geScaled(v float64, ref model.Opt, k float64) bool {
	return ref.Valid && !math.IsNaN(v) && v >= ref.Value*k
}

func leScaled(v float64, ref model.Opt, k float64) bool {
	return ref.Valid && v <= ref.Value*k
}
