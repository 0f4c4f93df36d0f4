package model

// IndicatorRow is a PriceBar with the features derived from that ticker's history.
// Windowed features are keyed by window length; a window that was never computed
// reads the same as one that is not yet full.
type IndicatorRow struct {
	PriceBar

	MAs         map[int]Opt     // SMA of close
	HighMaxes   map[int]Opt     // rolling max of high
	LowMins     map[int]Opt     // rolling min of low
	RangeMeans  map[int]Opt     // rolling mean of (high-low)/close
	VolumeRatio map[int]float64 // volume / rolling mean volume, 1.0 during bootstrap

	RangePct      Opt // (high-low)/close
	AmountAvg     Opt // rolling mean of amount
	AmountRankPct Opt // percentile of amount within the date, max tie-break
	PrevChange    Opt // close vs previous close

	BodyRatio      Opt // |close-open| / (high-low)
	UpperWickRatio Opt // (high-close) / (high-low)
	LowerWickRatio Opt // (open-low) / (high-low)

	VolMA         Opt // short volume MA
	VolMAPrev     Opt // VolMA lagged by the same window
	PrevChangeMin Opt // rolling min of PrevChange

	// NextHigh is the following session's high. Settlement only.
	NextHigh Opt
}

// MA returns the SMA for period.
func (r *IndicatorRow) MA(period int) Opt { return r.MAs[period] }

// HighMax returns the rolling high max for period.
func (r *IndicatorRow) HighMax(period int) Opt { return r.HighMaxes[period] }

// LowMin returns the rolling low min for period.
func (r *IndicatorRow) LowMin(period int) Opt { return r.LowMins[period] }

// Volatility returns the rolling mean daily range for period.
func (r *IndicatorRow) Volatility(period int) Opt { return r.RangeMeans[period] }

// VolumeRatioFor returns the volume ratio for period. ok is false only when the
// window was never computed for this row set.
func (r *IndicatorRow) VolumeRatioFor(period int) (ratio float64, ok bool) {
	ratio, ok = r.VolumeRatio[period]
	return ratio, ok
}
