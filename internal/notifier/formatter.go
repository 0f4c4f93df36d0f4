package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"BreakoutScreener/internal/backtest"
	"BreakoutScreener/internal/condition"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/tracker"
)

// FormatSearch lists a search run's candidates with their satisfied conditions.
func FormatSearch(date time.Time, results []model.SearchResult, limit int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>Breakout search</b> | %s\n\n", date.Format(model.DateLayout)))
	if len(results) == 0 {
		b.WriteString("No candidates today.")
		return b.String()
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i, r := range results {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s\n", i+1, html.EscapeString(r.Ticker), html.EscapeString(r.Name)))
		b.WriteString(fmt.Sprintf("   close %.0f | %d/%d | score %.2f\n", r.Close, r.ConditionsMet, condition.Count, r.Score))
		b.WriteString("   " + metList(r.ConditionsDetail) + "\n")
	}
	return b.String()
}

func metList(detail map[string]bool) string {
	var on []string
	for _, n := range condition.Names {
		if detail[string(n)] {
			on = append(on, string(n))
		}
	}
	if len(on) == 0 {
		return "-"
	}
	return strings.Join(on, " · ")
}

// FormatTracking reports how the previous search did in the next session.
func FormatTracking(date time.Time, outcomes []tracker.Outcome) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Tracking</b> | searched %s\n\n", date.Format(model.DateLayout)))
	if len(outcomes) == 0 {
		b.WriteString("No settled candidates.")
		return b.String()
	}
	achieved := 0
	for _, o := range outcomes {
		mark := "❌"
		if o.Achieved {
			mark = "✅"
			achieved++
		}
		b.WriteString(fmt.Sprintf("%s %s %s: high %.0f (%+.2f%%)\n",
			mark, html.EscapeString(o.Ticker), html.EscapeString(o.Name), o.NextDayHigh, o.ActualReturn*100))
	}
	b.WriteString(fmt.Sprintf("\nAchieved %d/%d (%.0f%%)", achieved, len(outcomes), 100*float64(achieved)/float64(len(outcomes))))
	return b.String()
}

// FormatStats summarizes tracking accuracy across all stored dates.
func FormatStats(s tracker.Stats) string {
	var b strings.Builder
	b.WriteString("📊 <b>Tracking statistics</b>\n\n")
	b.WriteString(fmt.Sprintf("Searches: %d\n", s.TotalSearches))
	b.WriteString(fmt.Sprintf("Candidates: %d\n", s.TotalCandidates))
	b.WriteString(fmt.Sprintf("Achieved: %d (%.1f%%)\n", s.TotalAchieved, s.AccuracyRate*100))
	b.WriteString(fmt.Sprintf("Avg score: %.2f | avg conditions: %.1f\n", s.AvgScore, s.AvgConditions))
	return b.String()
}

// FormatBacktest summarizes a backtest run.
func FormatBacktest(r *backtest.Result) string {
	var b strings.Builder
	b.WriteString("🧪 <b>Backtest</b>\n\n")
	b.WriteString(fmt.Sprintf("Dates: %d (%d with candidates)\n", r.DatesProcessed, r.DatesWithPicks))
	b.WriteString(fmt.Sprintf("Trades: %d | win rate %.1f%%\n", r.TotalTrades, r.WinRate*100))
	b.WriteString(fmt.Sprintf("Avg return: %+.3f%% | total %+.2f%%\n", r.AvgReturn*100, r.TotalReturn*100))
	b.WriteString(fmt.Sprintf("MDD: %.2f%% | trade MDD %.2f%%\n", r.MDD*100, r.TradeMDD*100))
	b.WriteString(fmt.Sprintf("Capital: %.0f → %.0f\n", r.InitialCapital, r.FinalCapital))
	if len(r.Outcomes) > 0 {
		keys := make([]string, 0, len(r.Outcomes))
		for k := range r.Outcomes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s %d", k, r.Outcomes[k])
		}
		b.WriteString("Exits: " + strings.Join(parts, ", ") + "\n")
	}
	return b.String()
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return "Commands:\n• /search run today's search\n• /track settle the last search\n• /stats tracking statistics"
}
