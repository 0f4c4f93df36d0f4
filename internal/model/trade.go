package model

import "time"

// Outcome tags how a simulated position was closed.
type Outcome string

const (
	OutcomeWin         Outcome = "win"
	OutcomeLoss        Outcome = "loss"
	OutcomeHorizonExit Outcome = "horizon-exit"
)

// TradeRecord is one closed position.
type TradeRecord struct {
	Date       time.Time `json:"date"`
	SettleDate time.Time `json:"settle_date"`
	Ticker     string    `json:"ticker"`
	EntryPrice float64   `json:"buy_price"`
	ExitPrice  float64   `json:"sell_price"`
	Return     float64   `json:"return_pct"`
	Outcome    Outcome   `json:"result"`
	Allocation float64   `json:"allocation"`
	PnL        float64   `json:"pnl"`
}

// Won reports a positive realized return, regardless of the exit tag.
func (t TradeRecord) Won() bool { return t.Return > 0 }

// EquityPoint is the cash balance after processing a date.
type EquityPoint struct {
	Date time.Time `json:"date"`
	Cash float64   `json:"cash"`
}
