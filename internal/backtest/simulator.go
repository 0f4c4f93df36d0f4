// Package backtest replays history one date at a time, buying the selected
// candidates at the close and settling them against the next session.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/performance"
)

// ErrNoData is returned when there is nothing to replay.
var ErrNoData = errors.New("backtest: no price data")

// Config sizes positions and sets the exit thresholds.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital"`
	TakeProfit     float64 `yaml:"take_profit"`
	StopLoss       float64 `yaml:"stop_loss"` // negative fraction
	MaxPositions   int     `yaml:"max_positions"`
}

// DefaultConfig returns 10M capital, +1% target, -1% stop, four slots.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10_000_000,
		TakeProfit:     0.01,
		StopLoss:       -0.01,
		MaxPositions:   4,
	}
}

// Validate checks the run parameters. A zero position cap is allowed and
// produces a run without trades.
func (c Config) Validate() error {
	var errs []error
	if !(c.InitialCapital > 0) || math.IsInf(c.InitialCapital, 0) {
		errs = append(errs, fmt.Errorf("backtest.initial_capital must be positive, got %g", c.InitialCapital))
	}
	if !(c.TakeProfit > 0) {
		errs = append(errs, fmt.Errorf("backtest.take_profit must be positive, got %g", c.TakeProfit))
	}
	if !(c.StopLoss < 0 && c.StopLoss > -1) {
		errs = append(errs, fmt.Errorf("backtest.stop_loss must be in (-1,0), got %g", c.StopLoss))
	}
	if c.MaxPositions < 0 {
		errs = append(errs, fmt.Errorf("backtest.max_positions must be non-negative, got %d", c.MaxPositions))
	}
	return errors.Join(errs...)
}

// Selector picks the ranked candidates for one date.
type Selector interface {
	Select(day indicator.Day) []model.Candidate
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(day indicator.Day) []model.Candidate

func (f SelectorFunc) Select(day indicator.Day) []model.Candidate { return f(day) }

// Selection logs one candidate taken on a date, settled or not.
type Selection struct {
	Date       time.Time `json:"date"`
	Ticker     string    `json:"ticker"`
	Name       string    `json:"stock_name,omitempty"`
	Score      float64   `json:"score"`
	Allocation float64   `json:"allocation"`
	EntryPrice float64   `json:"buy_price"`
	Target     float64   `json:"target"`
	Stop       float64   `json:"stop"`
	Settled    bool      `json:"settled"`
}

// Result is the output of one run. The embedded summary flattens into the
// top-level JSON object.
type Result struct {
	InitialCapital float64             `json:"initial_capital"`
	Trades         []model.TradeRecord `json:"trades"`
	DailyEquity    []float64           `json:"daily_equity"`
	EquityCurve    []model.EquityPoint `json:"equity_curve"`
	Selections     []Selection         `json:"selections"`
	DatesProcessed int                 `json:"dates_processed"`
	DatesWithPicks int                 `json:"dates_with_candidates"`
	Skipped        int                 `json:"skipped"`
	performance.Summary
}

// Simulator runs backtests with a fixed config.
type Simulator struct {
	cfg Config
}

// NewSimulator rejects an invalid config.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg}, nil
}

// Run replays rows. Each date except the last is processed in ascending
// order: the selector's candidates, capped to MaxPositions, share the cash
// available at the start of the date equally, enter at their close, and exit
// on the next date's bar. A candidate with no bar on the next date is skipped.
func (s *Simulator) Run(rows []model.IndicatorRow, sel Selector) (*Result, error) {
	days := indicator.SplitByDate(rows)
	if len(days) == 0 {
		return nil, ErrNoData
	}

	p := NewPortfolio(s.cfg.InitialCapital, days[0].Date)
	res := &Result{InitialCapital: s.cfg.InitialCapital, Selections: []Selection{}}

	for i := 0; i < len(days)-1; i++ {
		day, next := days[i], days[i+1]
		res.DatesProcessed++

		candidates := sel.Select(day)
		if len(candidates) > s.cfg.MaxPositions {
			candidates = candidates[:s.cfg.MaxPositions]
		}
		if len(candidates) == 0 {
			p.Hold(next.Date)
			continue
		}
		res.DatesWithPicks++

		settleBars := make(map[string]*model.IndicatorRow, len(next.Rows))
		for j := range next.Rows {
			settleBars[next.Rows[j].Ticker] = &next.Rows[j]
		}

		allocation := p.Cash() / float64(len(candidates))
		traded := 0
		for _, c := range candidates {
			entry := c.Close
			sl := Selection{
				Date:       day.Date,
				Ticker:     c.Ticker,
				Name:       c.Name,
				Score:      c.Score,
				Allocation: allocation,
				EntryPrice: entry,
				Target:     entry * (1 + s.cfg.TakeProfit),
				Stop:       entry * (1 + s.cfg.StopLoss),
			}
			bar, ok := settleBars[c.Ticker]
			if !ok || !(entry > 0) {
				res.Skipped++
				res.Selections = append(res.Selections, sl)
				continue
			}
			sl.Settled = true
			res.Selections = append(res.Selections, sl)

			exit, outcome := s.exit(sl.Target, sl.Stop, bar)
			ret := (exit - entry) / entry
			p.Apply(model.TradeRecord{
				Date:       day.Date,
				SettleDate: next.Date,
				Ticker:     c.Ticker,
				EntryPrice: entry,
				ExitPrice:  exit,
				Return:     ret,
				Outcome:    outcome,
				Allocation: allocation,
				PnL:        allocation * ret,
			})
			traded++
		}
		if traded == 0 {
			p.Hold(next.Date)
		}
	}

	res.Trades = p.Trades()
	if res.Trades == nil {
		res.Trades = []model.TradeRecord{}
	}
	res.EquityCurve = p.Curve()
	res.DailyEquity = p.DailyEquity()
	res.Summary = performance.Summarize(res.Trades, res.DailyEquity, s.cfg.InitialCapital)
	return res, nil
}

// exit applies target first, then stop, then the settlement close.
func (s *Simulator) exit(target, stop float64, bar *model.IndicatorRow) (float64, model.Outcome) {
	switch {
	case bar.High >= target:
		return target, model.OutcomeWin
	case bar.Low <= stop:
		return stop, model.OutcomeLoss
	default:
		return bar.Close, model.OutcomeHorizonExit
	}
}
