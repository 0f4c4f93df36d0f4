package main

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"BreakoutScreener/internal/metrics"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/scheduler"
	"BreakoutScreener/internal/screener"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled search and tracking jobs with a metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			reg := metrics.NewRegistry()
			rt, err := a.build(reg, reg)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := metrics.NewServer(cfg.Metrics.Addr, reg, a.log.Named("http"))
			srv.Start()

			sched := scheduler.NewScheduler(ctx, rt.svc, a.log.Named("scheduler"))
			sched.OnSkip = reg.SkipRun
			sched.OnRun = func(job string, at time.Time, err error) {
				if err == nil {
					srv.MarkRun(job, at)
				}
			}
			if err := sched.RegisterAll(cfg.Schedule.SearchCron, cfg.Schedule.TrackingCron); err != nil {
				return err
			}
			sched.Start()

			// Background work outside cron; the store stays open until it returns.
			var bg sync.WaitGroup
			if rt.telegram != nil && cfg.Telegram.Commands {
				bg.Add(1)
				go func() {
					defer bg.Done()
					rt.telegram.StartPolling(ctx, commandHandler(rt.svc, sched))
				}()
				a.log.Info("telegram polling started")
			}
			if cfg.Schedule.RunOnStart {
				a.log.Info("run_on_start enabled, executing search now")
				bg.Add(1)
				go func() {
					defer bg.Done()
					sched.RunSearchNow()
				}()
			}

			a.log.Info("screener is running, press Ctrl+C to stop")
			<-ctx.Done()

			a.log.Info("shutdown signal received, stopping")
			sched.Stop()
			bg.Wait()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn("metrics server shutdown", zap.Error(err))
			}
			a.log.Info("screener stopped")
			return nil
		},
	}
}

// commandHandler answers chat commands. Jobs it triggers send their own reports.
func commandHandler(svc *screener.Service, sched *scheduler.Scheduler) notifier.CommandHandler {
	return func(_ context.Context, command string) string {
		switch command {
		case "/search":
			if !sched.RunSearchNow() {
				return "A job is already running."
			}
			return ""
		case "/track":
			if !sched.RunTrackingNow() {
				return "A job is already running."
			}
			return ""
		case "/stats":
			stats, err := svc.Tracker.Statistics()
			if err != nil {
				return "Statistics unavailable: " + err.Error()
			}
			return notifier.FormatStats(stats)
		default:
			return notifier.FormatHelp()
		}
	}
}
