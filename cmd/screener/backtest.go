package main

import (
	"github.com/spf13/cobra"

	"BreakoutScreener/internal/backtest"
	"BreakoutScreener/internal/collector"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/screener"
)

func backtestCmd(a *app) *cobra.Command {
	var (
		policy string
		format string
		input  string
		notify bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay history with next-session target and stop exits",
		Long: "Replays the configured universe, or a CSV bar table given with --input, " +
			"buying each date's candidates at the close and settling them on the next session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			rt, err := a.build(nil, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			var res *backtest.Result
			if input != "" {
				bars, err := collector.LoadCSV(input)
				if err != nil {
					return err
				}
				res, err = rt.svc.Backtest(bars, screener.Policy(policy))
				if err != nil {
					return err
				}
			} else {
				res, err = rt.svc.BacktestCollected(cmd.Context(), screener.Policy(policy))
				if err != nil {
					return err
				}
			}
			if notify {
				if err := rt.svc.Notifier.Notify(cmd.Context(), notifier.FormatBacktest(res)); err != nil {
					return err
				}
			}

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writeBacktestTable(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&policy, "policy", string(screener.PolicyConditions), "selection policy: conditions or cross")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or json")
	cmd.Flags().StringVar(&input, "input", "", "CSV bar table to replay instead of fetching")
	cmd.Flags().BoolVar(&notify, "notify", false, "send the summary to Telegram when configured")
	return cmd
}
