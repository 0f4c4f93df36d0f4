package tracker

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"BreakoutScreener/internal/model"
)

// Options tunes the tracking service.
type Options struct {
	TopN   int     `yaml:"top_n"`  // entries kept per search, 5 by default
	Target float64 `yaml:"target"` // next-high return that counts as achieved
}

// DefaultOptions keeps the top five and targets +1%.
func DefaultOptions() Options { return Options{TopN: 5, Target: 0.01} }

// Validate checks the options.
func (o Options) Validate() error {
	var errs []error
	if o.TopN <= 0 {
		errs = append(errs, fmt.Errorf("tracking.top_n must be positive, got %d", o.TopN))
	}
	if !(o.Target > 0) {
		errs = append(errs, fmt.Errorf("tracking.target must be positive, got %g", o.Target))
	}
	return errors.Join(errs...)
}

// Tracker writes search runs to a store and settles them once the next
// session's bars are known.
type Tracker struct {
	store Store
	opts  Options
}

// New wraps store.
func New(store Store, opts Options) (*Tracker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{store: store, opts: opts}, nil
}

// Options returns the tracking options.
func (t *Tracker) Options() Options { return t.opts }

// RecordSearch stores the top N of ranked results under date and returns the run id.
func (t *Tracker) RecordSearch(date time.Time, ranked []model.SearchResult) (string, error) {
	if len(ranked) > t.opts.TopN {
		ranked = ranked[:t.opts.TopN]
	}
	entries := make([]SearchEntry, len(ranked))
	for i, r := range ranked {
		entries[i] = SearchEntry{
			Rank:             i + 1,
			Ticker:           r.Ticker,
			Name:             r.Name,
			BuyPrice:         r.Close,
			ConditionsMet:    r.ConditionsMet,
			Score:            r.Score,
			ConditionsDetail: r.ConditionsDetail,
		}
	}
	runID := uuid.NewString()
	if err := t.store.SaveSearch(date, runID, entries); err != nil {
		return "", fmt.Errorf("save search %s: %w", dayKey(date), err)
	}
	return runID, nil
}

// Track settles the entries searched on date against bars. Each entry is
// joined to its ticker's first bar after date; entries whose next bar is not
// available yet are left out. Re-running replaces the stored outcomes.
func (t *Tracker) Track(date time.Time, bars []model.PriceBar) ([]Outcome, error) {
	rec, err := t.store.Day(date)
	if err != nil {
		return nil, err
	}

	day := model.Day(date)
	next := make(map[string]model.PriceBar)
	for _, b := range bars {
		d := model.Day(b.Date)
		if !d.After(day) {
			continue
		}
		if cur, ok := next[b.Ticker]; !ok || d.Before(model.Day(cur.Date)) {
			next[b.Ticker] = b
		}
	}

	outcomes := []Outcome{}
	for _, e := range rec.SearchResults {
		b, ok := next[e.Ticker]
		if !ok || !(e.BuyPrice > 0) {
			continue
		}
		ret := (b.High - e.BuyPrice) / e.BuyPrice
		outcomes = append(outcomes, Outcome{
			Ticker:        e.Ticker,
			Name:          e.Name,
			BuyPrice:      e.BuyPrice,
			NextDate:      dayKey(b.Date),
			NextDayHigh:   b.High,
			NextDayClose:  b.Close,
			ConditionsMet: e.ConditionsMet,
			Score:         e.Score,
			Achieved:      ret >= t.opts.Target,
			ActualReturn:  ret,
		})
	}
	if err := t.store.SaveTracking(date, outcomes); err != nil {
		return nil, fmt.Errorf("save tracking %s: %w", dayKey(date), err)
	}
	return outcomes, nil
}

// Stats aggregates every stored day.
type Stats struct {
	TotalSearches   int     `json:"total_searches"`
	TotalCandidates int     `json:"total_candidates"`
	TotalAchieved   int     `json:"total_achieved"`
	AccuracyRate    float64 `json:"accuracy_rate"`
	AvgScore        float64 `json:"avg_score"`
	AvgConditions   float64 `json:"avg_conditions"`
}

// Statistics computes accuracy over all searched candidates and score and
// condition averages over tracked outcomes.
func (t *Tracker) Statistics() (Stats, error) {
	var s Stats
	recs, err := t.records()
	if err != nil {
		return s, err
	}
	tracked := 0
	for _, rec := range recs {
		if len(rec.SearchResults) == 0 {
			continue
		}
		s.TotalSearches++
		s.TotalCandidates += len(rec.SearchResults)
		for _, o := range rec.TrackingResults {
			tracked++
			s.AvgScore += o.Score
			s.AvgConditions += float64(o.ConditionsMet)
			if o.Achieved {
				s.TotalAchieved++
			}
		}
	}
	if s.TotalCandidates > 0 {
		s.AccuracyRate = float64(s.TotalAchieved) / float64(s.TotalCandidates)
	}
	if tracked > 0 {
		s.AvgScore /= float64(tracked)
		s.AvgConditions /= float64(tracked)
	}
	return s, nil
}

// DateSummary is one searched date's accuracy.
type DateSummary struct {
	Date          string  `json:"date"`
	Searched      int     `json:"searched"`
	Achieved      int     `json:"achieved"`
	Tracked       bool    `json:"tracked"`
	Accuracy      float64 `json:"accuracy"`
	AvgScore      float64 `json:"avg_score"`
	AvgConditions float64 `json:"avg_conditions"`
}

// DateSummaries lists searched dates newest first.
func (t *Tracker) DateSummaries() ([]DateSummary, error) {
	recs, err := t.records()
	if err != nil {
		return nil, err
	}
	var out []DateSummary
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		n := len(rec.SearchResults)
		if n == 0 {
			continue
		}
		ds := DateSummary{Date: dayKey(rec.Date), Searched: n, Tracked: rec.TrackedAt != nil}
		for _, o := range rec.TrackingResults {
			if o.Achieved {
				ds.Achieved++
			}
		}
		for _, e := range rec.SearchResults {
			ds.AvgScore += e.Score
			ds.AvgConditions += float64(e.ConditionsMet)
		}
		ds.Accuracy = float64(ds.Achieved) / float64(n)
		ds.AvgScore /= float64(n)
		ds.AvgConditions /= float64(n)
		out = append(out, ds)
	}
	return out, nil
}

// HistoryRow is one tracked outcome with its search date.
type HistoryRow struct {
	Date string `json:"date"`
	Outcome
}

// History returns tracked outcomes of the latest limit dates, newest first.
func (t *Tracker) History(limit int) ([]HistoryRow, error) {
	recs, err := t.records()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	var out []HistoryRow
	for _, rec := range recs {
		for _, o := range rec.TrackingResults {
			out = append(out, HistoryRow{Date: dayKey(rec.Date), Outcome: o})
		}
	}
	return out, nil
}

// Pending lists searched dates that have not been tracked yet, oldest first.
func (t *Tracker) Pending() ([]time.Time, error) {
	recs, err := t.records()
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for _, rec := range recs {
		if rec.TrackedAt == nil && len(rec.SearchResults) > 0 {
			out = append(out, rec.Date)
		}
	}
	return out, nil
}

func (t *Tracker) records() ([]*DayRecord, error) {
	dates, err := t.store.Dates()
	if err != nil {
		return nil, err
	}
	out := make([]*DayRecord, 0, len(dates))
	for _, d := range dates {
		rec, err := t.store.Day(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
