// Package screener wires collection, indicators, ranking, tracking and
// backtesting into the jobs the CLI and scheduler run.
package screener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"BreakoutScreener/internal/backtest"
	"BreakoutScreener/internal/collector"
	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/tracker"
)

// Policy names a backtest selection policy.
type Policy string

const (
	PolicyConditions Policy = "conditions"
	PolicyCross      Policy = "cross"
)

// Recorder receives job outcomes; metrics.Registry implements it.
type Recorder interface {
	ObserveRun(job string, started time.Time, err error)
	SetCandidates(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, time.Time, error) {}
func (nopRecorder) SetCandidates(int)                   {}

// Deps are the collaborators a Service runs with. Collector and Ranker are
// required; the rest default to no-ops.
type Deps struct {
	Collector      *collector.Collector
	Tickers        []string
	Days           int
	Indicators     indicator.Config
	Ranker         *strategy.Ranker
	MinConditions  int
	CrossSectional *strategy.CrossSectional
	Simulator      *backtest.Simulator
	Tracker        *tracker.Tracker
	Notifier       notifier.Notifier
	Recorder       Recorder
	Log            *zap.Logger
}

// Service runs searches, tracking updates and backtests.
type Service struct {
	Deps
}

// NewService checks the required collaborators and fills defaults.
func NewService(d Deps) (*Service, error) {
	if d.Collector == nil {
		return nil, errors.New("screener: collector is required")
	}
	if d.Ranker == nil {
		return nil, errors.New("screener: ranker is required")
	}
	if err := d.Indicators.Validate(); err != nil {
		return nil, err
	}
	if d.Days <= 0 {
		d.Days = 60
	}
	if d.Notifier == nil {
		d.Notifier = notifier.Noop{}
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{Deps: d}, nil
}

// SearchReport is the outcome of one search.
type SearchReport struct {
	Date    time.Time            `json:"date"`
	RunID   string               `json:"run_id,omitempty"`
	Results []model.SearchResult `json:"results"`
}

// Search screens the latest session. Only tickers with a bar on the most
// recent date are ranked; results below MinConditions are dropped. No
// candidates is an empty report, while every fetch failing is ErrNoData.
func (s *Service) Search(ctx context.Context) (*SearchReport, error) {
	rows, err := s.indicatorRows(ctx)
	if err != nil {
		return nil, err
	}
	date := indicator.LastDate(rows)
	if date.IsZero() {
		return &SearchReport{Results: []model.SearchResult{}}, nil
	}
	today := indicator.OnDate(rows, date)
	results := strategy.FilterMinConditions(s.Ranker.Rank(today), s.MinConditions)
	s.Log.Info("search ranked",
		zap.String("date", date.Format(model.DateLayout)),
		zap.Int("evaluated", len(today)), zap.Int("candidates", len(results)))
	return &SearchReport{Date: date, Results: results}, nil
}

// RecordSearch stores a report's top entries and sets its run id.
func (s *Service) RecordSearch(rep *SearchReport) error {
	if s.Tracker == nil || len(rep.Results) == 0 {
		return nil
	}
	id, err := s.Tracker.RecordSearch(rep.Date, rep.Results)
	if err != nil {
		return err
	}
	rep.RunID = id
	return nil
}

// RunSearch is the scheduled search job: search, record, notify.
func (s *Service) RunSearch(ctx context.Context) (err error) {
	started := time.Now()
	defer func() { s.Recorder.ObserveRun("search", started, err) }()

	rep, err := s.Search(ctx)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	s.Recorder.SetCandidates(len(rep.Results))
	if err := s.RecordSearch(rep); err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	s.notify(ctx, notifier.FormatSearch(rep.Date, rep.Results, s.topN()))
	return nil
}

// Track settles the search stored for date against freshly collected bars.
func (s *Service) Track(ctx context.Context, date time.Time) ([]tracker.Outcome, error) {
	if s.Tracker == nil {
		return nil, errors.New("screener: tracking is disabled")
	}
	bars, err := s.Collector.Collect(ctx, s.Tickers, s.Days)
	if err != nil {
		return nil, err
	}
	return s.Tracker.Track(date, bars)
}

// RunTracking is the scheduled tracking job. Every pending search date that
// already has a later session in the collected bars is settled, oldest first.
func (s *Service) RunTracking(ctx context.Context) (err error) {
	started := time.Now()
	defer func() { s.Recorder.ObserveRun("tracking", started, err) }()

	if s.Tracker == nil {
		return nil
	}
	pending, err := s.Tracker.Pending()
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		s.Log.Info("no pending searches to track")
		return nil
	}
	bars, err := s.Collector.Collect(ctx, s.Tickers, s.Days)
	if err != nil {
		return fmt.Errorf("tracking collect: %w", err)
	}
	latest := latestDate(bars)
	for _, d := range pending {
		if !latest.After(d) {
			s.Log.Info("next session not available yet", zap.String("date", d.Format(model.DateLayout)))
			continue
		}
		outcomes, err := s.Tracker.Track(d, bars)
		if err != nil {
			return fmt.Errorf("track %s: %w", d.Format(model.DateLayout), err)
		}
		s.Log.Info("tracked search", zap.String("date", d.Format(model.DateLayout)), zap.Int("outcomes", len(outcomes)))
		s.notify(ctx, notifier.FormatTracking(d, outcomes))
	}
	return nil
}

// Backtest computes indicators over bars and replays them under policy.
func (s *Service) Backtest(bars []model.PriceBar, policy Policy) (*backtest.Result, error) {
	if s.Simulator == nil {
		return nil, errors.New("screener: backtest simulator is not configured")
	}
	sel, err := s.selector(policy)
	if err != nil {
		return nil, err
	}
	rows, err := indicator.Compute(bars, s.Indicators)
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	res, err := s.Simulator.Run(rows, sel)
	if err != nil {
		return nil, err
	}
	s.Log.Info("backtest finished",
		zap.String("policy", string(policy)), zap.Int("dates", res.DatesProcessed),
		zap.Int("trades", res.TotalTrades), zap.Float64("total_return", res.TotalReturn))
	return res, nil
}

// BacktestCollected runs Backtest over bars loaded through the collector.
func (s *Service) BacktestCollected(ctx context.Context, policy Policy) (*backtest.Result, error) {
	bars, err := s.Collector.Collect(ctx, s.Tickers, s.Days)
	if err != nil {
		return nil, err
	}
	return s.Backtest(bars, policy)
}

func (s *Service) selector(policy Policy) (backtest.Selector, error) {
	switch policy {
	case PolicyConditions, "":
		return strategy.ConditionSelector{Ranker: s.Ranker, MinConditions: s.MinConditions}, nil
	case PolicyCross:
		if s.CrossSectional == nil {
			return nil, errors.New("screener: cross-sectional policy is not configured")
		}
		return s.CrossSectional, nil
	default:
		return nil, fmt.Errorf("unknown policy %q: want conditions or cross", policy)
	}
}

func (s *Service) indicatorRows(ctx context.Context) ([]model.IndicatorRow, error) {
	bars, err := s.Collector.Collect(ctx, s.Tickers, s.Days)
	if err != nil {
		return nil, err
	}
	rows, err := indicator.Compute(bars, s.Indicators)
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	return rows, nil
}

func (s *Service) notify(ctx context.Context, text string) {
	if err := s.Notifier.Notify(ctx, text); err != nil {
		s.Log.Error("send notification", zap.Error(err))
	}
}

func (s *Service) topN() int {
	if s.Tracker == nil {
		return tracker.DefaultOptions().TopN
	}
	return s.Tracker.Options().TopN
}

func latestDate(bars []model.PriceBar) time.Time {
	var out time.Time
	for _, b := range bars {
		if d := model.Day(b.Date); d.After(out) {
			out = d
		}
	}
	return out
}
