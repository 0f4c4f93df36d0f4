package backtest

import (
	"time"

	"BreakoutScreener/internal/model"
)

// Portfolio holds the cash balance, its equity curve, and the trade log of
// one run. Only the simulator mutates it, one trade at a time.
type Portfolio struct {
	cash   float64
	curve  []model.EquityPoint
	trades []model.TradeRecord
}

// NewPortfolio starts the curve at initial capital on start.
func NewPortfolio(initial float64, start time.Time) *Portfolio {
	return &Portfolio{
		cash:  initial,
		curve: []model.EquityPoint{{Date: start, Cash: initial}},
	}
}

// Cash returns the current balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// Apply books a closed trade and snapshots the balance on its settlement date.
func (p *Portfolio) Apply(t model.TradeRecord) {
	p.cash += t.PnL
	p.trades = append(p.trades, t)
	p.curve = append(p.curve, model.EquityPoint{Date: t.SettleDate, Cash: p.cash})
}

// Hold snapshots an unchanged balance for a date without trades.
func (p *Portfolio) Hold(date time.Time) {
	p.curve = append(p.curve, model.EquityPoint{Date: date, Cash: p.cash})
}

// Trades returns a copy of the trade log.
func (p *Portfolio) Trades() []model.TradeRecord {
	return append([]model.TradeRecord(nil), p.trades...)
}

// Curve returns a copy of the dated equity curve.
func (p *Portfolio) Curve() []model.EquityPoint {
	return append([]model.EquityPoint(nil), p.curve...)
}

// DailyEquity returns the curve balances only.
func (p *Portfolio) DailyEquity() []float64 {
	out := make([]float64, len(p.curve))
	for i, pt := range p.curve {
		out[i] = pt.Cash
	}
	return out
}
