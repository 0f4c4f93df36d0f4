package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"BreakoutScreener/internal/condition"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/notifier"
)

func searchCmd(a *app) *cobra.Command {
	var (
		minConditions int
		format        string
		save          bool
		notify        bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Screen the latest session for breakout candidates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			rt, err := a.build(nil, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			if cmd.Flags().Changed("min-conditions") {
				if minConditions < 0 || minConditions > condition.Count {
					return fmt.Errorf("--min-conditions must be in [0,%d]", condition.Count)
				}
				rt.svc.MinConditions = minConditions
			}
			rep, err := rt.svc.Search(cmd.Context())
			if err != nil {
				return err
			}
			if save {
				if err := rt.svc.RecordSearch(rep); err != nil {
					return err
				}
			}
			if notify {
				if err := rt.svc.Notifier.Notify(cmd.Context(), notifier.FormatSearch(rep.Date, rep.Results, a.cfg.Tracking.Options.TopN)); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, rep)
			}
			fmt.Fprintf(out, "Search date %s: %d candidates\n", rep.Date.Format(model.DateLayout), len(rep.Results))
			return writeSearchTable(out, rep.Results)
		},
	}
	cmd.Flags().IntVar(&minConditions, "min-conditions", 3, "drop results meeting fewer conditions (defaults to config)")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or json")
	cmd.Flags().BoolVar(&save, "save", false, "record the top results in the tracking store")
	cmd.Flags().BoolVar(&notify, "notify", false, "send the results to Telegram when configured")
	return cmd
}
