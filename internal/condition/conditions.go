package condition

import "BreakoutScreener/internal/model"

// Result is one condition's verdict on a row. Score carries the continuous
// quantity the verdict was based on, when there is one.
type Result struct {
	Satisfied bool
	Score     model.Opt
}

// Condition is a pure predicate over an indicator row.
type Condition interface {
	Name() Name
	Evaluate(row *model.IndicatorRow) Result
}

func pass() Result { return Result{Satisfied: true} }

func verdict(ok bool, score model.Opt) Result { return Result{Satisfied: ok, Score: score} }

// VolumeSurge is satisfied when the volume ratio reaches the multiplier.
type VolumeSurge struct{ Cfg VolumeConfig }

func (VolumeSurge) Name() Name { return Volume }

func (c VolumeSurge) Evaluate(row *model.IndicatorRow) Result {
	if !c.Cfg.Enabled {
		return pass()
	}
	ratio, ok := row.VolumeRatioFor(c.Cfg.Period)
	if !ok {
		return Result{}
	}
	return verdict(ratio >= c.Cfg.Multiplier, model.Some(ratio))
}

// BullishCandle is satisfied by an up candle whose body covers enough of the open-to-high span.
type BullishCandle struct{ Cfg CandleConfig }

func (BullishCandle) Name() Name { return Candle }

func (c BullishCandle) Evaluate(row *model.IndicatorRow) Result {
	if !c.Cfg.Enabled {
		return pass()
	}
	if row.Close <= row.Open {
		return Result{}
	}
	body := 0.0
	if row.High > row.Open {
		body = (row.Close - row.Open) / (row.High - row.Open)
	}
	return verdict(body >= c.Cfg.BodyRatioMin, model.Some(body))
}

// ClosePosition is satisfied when close/high reaches the threshold.
type ClosePosition struct{ Cfg CloseConfig }

func (ClosePosition) Name() Name { return Close }

func (c ClosePosition) Evaluate(row *model.IndicatorRow) Result {
	if !c.Cfg.Enabled {
		return pass()
	}
	if row.High == 0 {
		return Result{}
	}
	ratio := row.Close / row.High
	return verdict(ratio >= c.Cfg.ClosePct, model.Some(ratio))
}

// ShortTrend is the OR of the enabled sub-checks; with none enabled it passes.
type ShortTrend struct{ Cfg TrendConfig }

func (ShortTrend) Name() Name { return Trend }

func (c ShortTrend) Evaluate(row *model.IndicatorRow) Result {
	if !c.Cfg.Enabled || (!c.Cfg.MAEnabled && !c.Cfg.BreakoutEnabled) {
		return pass()
	}
	if c.Cfg.MAEnabled {
		if ma, ok := row.MA(c.Cfg.MAPeriod).Get(); ok && row.Close >= ma {
			return pass()
		}
	}
	if c.Cfg.BreakoutEnabled {
		if hi, ok := row.HighMax(c.Cfg.BreakoutPeriod).Get(); ok && row.High >= hi {
			return pass()
		}
	}
	return Result{}
}

// VolatilityFloor is satisfied when the trailing mean range reaches the floor.
type VolatilityFloor struct{ Cfg VolatilityConfig }

func (VolatilityFloor) Name() Name { return Volatility }

func (c VolatilityFloor) Evaluate(row *model.IndicatorRow) Result {
	if !c.Cfg.Enabled {
		return pass()
	}
	v, ok := row.Volatility(c.Cfg.Period).Get()
	if !ok {
		return Result{}
	}
	return verdict(v >= c.Cfg.MinVolatility, model.Some(v))
}

// SizeBand is satisfied when both market cap and close sit inside their bands.
type SizeBand struct{ Cfg SizeConfig }

func (SizeBand) Name() Name { return Size }

func (c SizeBand) Evaluate(row *model.IndicatorRow) Result {
	if !c.Cfg.Enabled {
		return pass()
	}
	return verdict(c.Cfg.CapOK(row.MarketCap) && c.Cfg.PriceOK(row.Close), row.MarketCap)
}

// CapOK applies the cap band; a missing cap passes only when explicitly allowed.
func (s SizeConfig) CapOK(capital model.Opt) bool {
	v, ok := capital.Get()
	if !ok {
		return s.AllowMissingMarketCap
	}
	return s.MarketCapMin <= v && v <= s.MarketCapMax
}

// PriceOK applies the inclusive price band.
func (s SizeConfig) PriceOK(price float64) bool {
	return s.PriceMin <= price && price <= s.PriceMax
}

// All builds the six conditions in evaluation order.
func (s Set) All() []Condition {
	return []Condition{
		VolumeSurge{Cfg: s.Volume},
		BullishCandle{Cfg: s.Candle},
		ClosePosition{Cfg: s.Close},
		ShortTrend{Cfg: s.Trend},
		VolatilityFloor{Cfg: s.Volatility},
		SizeBand{Cfg: s.Size},
	}
}

// Evaluation is the outcome of all six conditions on a row.
type Evaluation struct {
	Met     int
	Detail  map[Name]bool
	Results map[Name]Result
}

// Evaluate runs every condition of s against row.
func Evaluate(s Set, row *model.IndicatorRow) Evaluation {
	ev := Evaluation{
		Detail:  make(map[Name]bool, Count),
		Results: make(map[Name]Result, Count),
	}
	for _, c := range s.All() {
		res := c.Evaluate(row)
		ev.Detail[c.Name()] = res.Satisfied
		ev.Results[c.Name()] = res
		if res.Satisfied {
			ev.Met++
		}
	}
	return ev
}
