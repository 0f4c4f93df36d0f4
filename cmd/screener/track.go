package main

import (
	"github.com/spf13/cobra"

	"BreakoutScreener/internal/model"
)

func trackCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Settle stored searches against the next session",
		Long:  "Without --date every pending search that already has a next session is settled.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.build(nil, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			if date == "" {
				return rt.svc.RunTracking(cmd.Context())
			}
			d, err := model.ParseDay(date)
			if err != nil {
				return err
			}
			outcomes, err := rt.svc.Track(cmd.Context(), d)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), outcomes)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "search date to settle (YYYY-MM-DD)")
	return cmd
}
