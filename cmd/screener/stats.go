package main

import (
	"github.com/spf13/cobra"

	"BreakoutScreener/internal/tracker"
)

func statsCmd(a *app) *cobra.Command {
	var (
		format  string
		days    int
		history int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show tracking accuracy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			rt, err := a.build(nil, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			tr := rt.svc.Tracker
			stats, err := tr.Statistics()
			if err != nil {
				return err
			}
			summaries, err := tr.DateSummaries()
			if err != nil {
				return err
			}
			if days > 0 && len(summaries) > days {
				summaries = summaries[:days]
			}
			var hist []tracker.HistoryRow
			if history > 0 {
				if hist, err = tr.History(history); err != nil {
					return err
				}
			}
			if format == formatJSON {
				out := map[string]any{"statistics": stats, "dates": summaries}
				if history > 0 {
					out["history"] = hist
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if err := writeStatsTable(cmd.OutOrStdout(), stats, summaries); err != nil {
				return err
			}
			if history > 0 {
				return writeHistoryTable(cmd.OutOrStdout(), hist)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or json")
	cmd.Flags().IntVar(&days, "days", 10, "per-date rows to show, newest first (0 for all)")
	cmd.Flags().IntVar(&history, "history", 0, "also list tracked outcomes of the latest N dates")
	return cmd
}
