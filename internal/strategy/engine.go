package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"BreakoutScreener/internal/condition"
	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/model"
)

// ScoringMode picks how satisfied conditions become a score.
type ScoringMode string

const (
	// ScoringUniform scores met/6.
	ScoringUniform ScoringMode = "uniform"
	// ScoringWeighted sums the weights of satisfied conditions, without renormalising.
	ScoringWeighted ScoringMode = "weighted"
)

// Scoring configures the ranker score.
type Scoring struct {
	Mode    ScoringMode                `yaml:"mode"`
	Weights map[condition.Name]float64 `yaml:"weights"`
}

// DefaultWeights favours the trend condition.
func DefaultWeights() map[condition.Name]float64 {
	return map[condition.Name]float64{
		condition.Volume:     0.15,
		condition.Candle:     0.15,
		condition.Close:      0.15,
		condition.Trend:      0.30,
		condition.Volatility: 0.15,
		condition.Size:       0.10,
	}
}

// DefaultScoring is uniform scoring with the default weights kept for switching modes.
func DefaultScoring() Scoring {
	return Scoring{Mode: ScoringUniform, Weights: DefaultWeights()}
}

// Validate checks the mode and that every weight names a known condition.
func (s Scoring) Validate() error {
	switch s.Mode {
	case ScoringUniform, ScoringWeighted:
	default:
		return fmt.Errorf("scoring.mode %q: want %q or %q", s.Mode, ScoringUniform, ScoringWeighted)
	}
	var errs []error
	for name, w := range s.Weights {
		if !name.Valid() {
			errs = append(errs, fmt.Errorf("scoring.weights: unknown condition %q", name))
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, fmt.Errorf("scoring.weights.%s: %g is not a non-negative number", name, w))
		}
	}
	if s.Mode == ScoringWeighted && len(s.Weights) == 0 {
		errs = append(errs, errors.New("scoring.weights: weighted mode needs at least one weight"))
	}
	return errors.Join(errs...)
}

// Ranker evaluates the condition set on rows and orders the results.
type Ranker struct {
	conditions condition.Set
	scoring    Scoring
}

// NewRanker validates both configs up front.
func NewRanker(set condition.Set, scoring Scoring) (*Ranker, error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	if err := scoring.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{conditions: set, scoring: scoring}, nil
}

// Evaluate scores a single row.
func (r *Ranker) Evaluate(row *model.IndicatorRow) model.SearchResult {
	ev := condition.Evaluate(r.conditions, row)

	detail := make(map[string]bool, condition.Count)
	for name, ok := range ev.Detail {
		detail[string(name)] = ok
	}
	return model.SearchResult{
		Date:             row.Date,
		Ticker:           row.Ticker,
		Name:             row.Name,
		Close:            row.Close,
		NextHigh:         row.NextHigh,
		ConditionsMet:    ev.Met,
		ConditionsDetail: detail,
		Score:            r.score(ev),
	}
}

func (r *Ranker) score(ev condition.Evaluation) float64 {
	if r.scoring.Mode != ScoringWeighted {
		return float64(ev.Met) / float64(condition.Count)
	}
	// Fixed order keeps the float sum reproducible.
	total := 0.0
	for _, name := range condition.Names {
		if ev.Detail[name] {
			total += r.scoring.Weights[name]
		}
	}
	return total
}

// Rank evaluates every row and sorts by score, then conditions met, both
// descending. Equal keys keep input order.
func (r *Ranker) Rank(rows []model.IndicatorRow) []model.SearchResult {
	results := make([]model.SearchResult, len(rows))
	for i := range rows {
		results[i] = r.Evaluate(&rows[i])
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ConditionsMet > results[j].ConditionsMet
	})
	return results
}

// FilterMinConditions keeps results with at least min conditions met, preserving order.
func FilterMinConditions(results []model.SearchResult, min int) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(results))
	for _, res := range results {
		if res.ConditionsMet >= min {
			out = append(out, res)
		}
	}
	return out
}

// ConditionSelector feeds ranker output to the simulator, one date at a time.
type ConditionSelector struct {
	Ranker        *Ranker
	MinConditions int
}

// Select ranks the day's cross-section and keeps rows meeting MinConditions.
func (s ConditionSelector) Select(day indicator.Day) []model.Candidate {
	ranked := FilterMinConditions(s.Ranker.Rank(day.Rows), s.MinConditions)
	out := make([]model.Candidate, len(ranked))
	for i, res := range ranked {
		out[i] = model.Candidate{Ticker: res.Ticker, Name: res.Name, Close: res.Close, Score: res.Score}
	}
	return out
}
