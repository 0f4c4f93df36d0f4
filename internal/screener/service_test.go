package screener

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/backtest"
	"BreakoutScreener/internal/collector"
	"BreakoutScreener/internal/condition"
	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/tracker"
)

var day0 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func flat(ticker string, n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 10_000.0
		bars[i] = model.PriceBar{
			Date: day0.AddDate(0, 0, i), Ticker: ticker,
			Open: c, High: c * 1.015, Low: c * 0.985, Close: c,
			Volume: 100_000, Amount: c * 100_000,
		}
	}
	return bars
}

// hot ends on a five-condition breakout; size fails for lack of market cap.
func hot(n int) []model.PriceBar {
	bars := flat("HOT", n)
	last := &bars[n-1]
	last.Open, last.High, last.Low, last.Close = 10_000, 10_600, 9_950, 10_580
	last.Volume = 400_000
	last.Amount = last.Close * last.Volume
	return bars
}

func nextSession(ticker string, date time.Time, high float64) model.PriceBar {
	return model.PriceBar{
		Date: date, Ticker: ticker,
		Open: 10_580, High: high, Low: 10_500, Close: 10_600,
		Volume: 200_000, Amount: 10_600 * 200_000,
	}
}

type recordingNotifier struct{ texts []string }

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.texts = append(n.texts, text)
	return nil
}

type recordingRecorder struct {
	runs       map[string]error
	candidates int
}

func (r *recordingRecorder) ObserveRun(job string, _ time.Time, err error) { r.runs[job] = err }
func (r *recordingRecorder) SetCandidates(n int)                           { r.candidates = n }

type fixture struct {
	svc   *Service
	mock  *collector.MockFetcher
	store tracker.Store
	note  *recordingNotifier
	rec   *recordingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := &collector.MockFetcher{Bars: map[string][]model.PriceBar{
		"HOT":  hot(25),
		"COLD": flat("COLD", 25),
	}}
	store, err := tracker.NewJSONStore(filepath.Join(t.TempDir(), "tracking.json"))
	require.NoError(t, err)
	tr, err := tracker.New(store, tracker.DefaultOptions())
	require.NoError(t, err)
	ranker, err := strategy.NewRanker(condition.DefaultSet(), strategy.DefaultScoring())
	require.NoError(t, err)
	cross, err := strategy.NewCrossSectional(strategy.DefaultCrossSectional())
	require.NoError(t, err)
	sim, err := backtest.NewSimulator(backtest.DefaultConfig())
	require.NoError(t, err)

	f := &fixture{mock: mock, store: store, note: &recordingNotifier{}, rec: &recordingRecorder{runs: map[string]error{}}}
	f.svc, err = NewService(Deps{
		Collector: collector.NewCollector(mock, map[string]string{"HOT": "Hot Corp"}, nil),
		Tickers:   []string{"COLD", "HOT"},
		Days:      25,
		Indicators: indicator.DefaultConfig().
			Require(condition.DefaultSet().Windows()).
			Require(strategy.DefaultCrossSectional().Windows()),
		Ranker:         ranker,
		MinConditions:  4,
		CrossSectional: cross,
		Simulator:      sim,
		Tracker:        tr,
		Notifier:       f.note,
		Recorder:       f.rec,
	})
	require.NoError(t, err)
	return f
}

func TestSearch_RanksLatestSession(t *testing.T) {
	f := newFixture(t)
	rep, err := f.svc.Search(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Date.Equal(day0.AddDate(0, 0, 24)))
	require.Len(t, rep.Results, 1, "COLD meets only three conditions")
	got := rep.Results[0]
	assert.Equal(t, "HOT", got.Ticker)
	assert.Equal(t, "Hot Corp", got.Name)
	assert.Equal(t, 5, got.ConditionsMet)
	assert.False(t, got.ConditionsDetail["size"])
}

func TestRunSearch_RecordsAndNotifies(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RunSearch(context.Background()))

	rec, err := f.store.Day(day0.AddDate(0, 0, 24))
	require.NoError(t, err)
	require.Len(t, rec.SearchResults, 1)
	assert.Equal(t, 1, rec.SearchResults[0].Rank)
	assert.NotEmpty(t, rec.RunID)

	require.Len(t, f.note.texts, 1)
	assert.Contains(t, f.note.texts[0], "HOT")
	assert.Equal(t, 1, f.rec.candidates)
	assert.Contains(t, f.rec.runs, "search")
	assert.NoError(t, f.rec.runs["search"])
}

func TestRunSearch_ReportsFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.mock.Errs = map[string]error{"HOT": errors.New("down"), "COLD": errors.New("down")}
	err := f.svc.RunSearch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, collector.ErrNoData)
	assert.Error(t, f.rec.runs["search"])
}

func TestSearch_NoCandidatesIsEmptyNotError(t *testing.T) {
	f := newFixture(t)
	f.svc.MinConditions = condition.Count

	rep, err := f.svc.Search(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rep.Results)
	assert.Empty(t, rep.Results)

	out, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"results":[]`)
}

func TestRunTracking_SettlesOnceNextSessionArrives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.RunSearch(ctx))
	searched := day0.AddDate(0, 0, 24)

	// Same data: nothing after the search date yet.
	require.NoError(t, f.svc.RunTracking(ctx))
	pending, err := f.svc.Tracker.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	f.mock.Bars["HOT"] = append(f.mock.Bars["HOT"], nextSession("HOT", day0.AddDate(0, 0, 25), 10_700))
	require.NoError(t, f.svc.RunTracking(ctx))

	rec, err := f.store.Day(searched)
	require.NoError(t, err)
	require.NotNil(t, rec.TrackedAt)
	require.Len(t, rec.TrackingResults, 1)
	o := rec.TrackingResults[0]
	assert.True(t, o.Achieved)
	assert.InDelta(t, (10_700.0-10_580)/10_580, o.ActualReturn, 1e-12)
	assert.Contains(t, f.note.texts[len(f.note.texts)-1], "Achieved 1/1")
}

func TestBacktest_Policies(t *testing.T) {
	f := newFixture(t)
	bars := append(hot(25), nextSession("HOT", day0.AddDate(0, 0, 25), 10_700))
	bars = append(bars, flat("COLD", 26)...)

	res, err := f.svc.Backtest(bars, PolicyConditions)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalTrades)
	assert.Equal(t, "HOT", res.Trades[0].Ticker)
	assert.Equal(t, model.OutcomeWin, res.Trades[0].Outcome)
	assert.Equal(t, 1, res.Outcomes["win"])

	_, err = f.svc.Backtest(bars, PolicyCross)
	require.NoError(t, err)

	_, err = f.svc.Backtest(bars, "momentum")
	assert.Error(t, err)
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)
}
