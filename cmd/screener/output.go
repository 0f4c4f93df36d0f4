package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"BreakoutScreener/internal/backtest"
	"BreakoutScreener/internal/condition"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/tracker"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(f string) error {
	if f != formatTable && f != formatJSON {
		return fmt.Errorf("unknown format %q: want table or json", f)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSearchTable(w io.Writer, results []model.SearchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTICKER\tNAME\tCLOSE\tMET\tSCORE\tCONDITIONS")
	for i, r := range results {
		var on []string
		for _, n := range condition.Names {
			if r.ConditionsDetail[string(n)] {
				on = append(on, string(n))
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\t%d/%d\t%.3f\t%s\n",
			i+1, r.Ticker, r.Name, r.Close, r.ConditionsMet, condition.Count, r.Score, strings.Join(on, ","))
	}
	return tw.Flush()
}

func writeBacktestTable(w io.Writer, r *backtest.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "dates processed\t%d\n", r.DatesProcessed)
	fmt.Fprintf(tw, "dates with candidates\t%d\n", r.DatesWithPicks)
	fmt.Fprintf(tw, "skipped candidates\t%d\n", r.Skipped)
	fmt.Fprintf(tw, "trades\t%d\n", r.TotalTrades)
	fmt.Fprintf(tw, "win rate\t%.2f%%\n", r.WinRate*100)
	fmt.Fprintf(tw, "avg return\t%+.3f%%\n", r.AvgReturn*100)
	fmt.Fprintf(tw, "total return\t%+.2f%%\n", r.TotalReturn*100)
	fmt.Fprintf(tw, "max drawdown\t%.2f%%\n", r.MDD*100)
	fmt.Fprintf(tw, "trade drawdown\t%.2f%%\n", r.TradeMDD*100)
	fmt.Fprintf(tw, "final capital\t%.0f\n", r.FinalCapital)
	fmt.Fprintf(tw, "exits\twin %d, loss %d, horizon-exit %d\n",
		r.Outcomes[string(model.OutcomeWin)], r.Outcomes[string(model.OutcomeLoss)], r.Outcomes[string(model.OutcomeHorizonExit)])
	if len(r.Monthly) > 0 {
		fmt.Fprintln(tw, "\nMONTH\tTRADES\tRETURN")
		for _, m := range r.Monthly {
			fmt.Fprintf(tw, "%s\t%d\t%+.3f%%\n", m.Period, m.Trades, m.Return*100)
		}
	}
	return tw.Flush()
}

func writeStatsTable(w io.Writer, s tracker.Stats, days []tracker.DateSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "searches\t%d\n", s.TotalSearches)
	fmt.Fprintf(tw, "candidates\t%d\n", s.TotalCandidates)
	fmt.Fprintf(tw, "achieved\t%d\n", s.TotalAchieved)
	fmt.Fprintf(tw, "accuracy\t%.1f%%\n", s.AccuracyRate*100)
	fmt.Fprintf(tw, "avg score\t%.3f\n", s.AvgScore)
	fmt.Fprintf(tw, "avg conditions\t%.2f\n", s.AvgConditions)
	if len(days) > 0 {
		fmt.Fprintln(tw, "\nDATE\tSEARCHED\tACHIEVED\tACCURACY\tTRACKED")
		for _, d := range days {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\t%v\n", d.Date, d.Searched, d.Achieved, d.Accuracy*100, d.Tracked)
		}
	}
	return tw.Flush()
}

func writeHistoryTable(w io.Writer, rows []tracker.HistoryRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nDATE\tTICKER\tBUY\tNEXT HIGH\tRETURN\tACHIEVED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.0f\t%+.2f%%\t%v\n", r.Date, r.Ticker, r.BuyPrice, r.NextDayHigh, r.ActualReturn*100, r.Achieved)
	}
	return tw.Flush()
}
