package main

import (
	"fmt"

	"go.uber.org/zap"

	"BreakoutScreener/internal/backtest"
	"BreakoutScreener/internal/collector"
	"BreakoutScreener/internal/config"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/screener"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/tracker"
)

// runtime is a wired service plus the resources main has to release.
type runtime struct {
	svc      *screener.Service
	store    tracker.Store
	telegram *notifier.TelegramNotifier
}

func (r *runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// buildFetcher picks the configured source. Remote sources get the day cache
// and circuit breaker.
func buildFetcher(cfg *config.Config, log *zap.Logger, obs collector.Observer) (collector.Fetcher, []string, error) {
	tickers := cfg.Tickers()
	var remote collector.Fetcher
	switch cfg.DataSource.Kind {
	case config.SourceCSV:
		f := collector.NewCSVFetcher(cfg.DataSource.CSVPath)
		if len(tickers) == 0 {
			all, err := f.Tickers()
			if err != nil {
				return nil, nil, err
			}
			tickers = all
		}
		return f, tickers, nil
	case config.SourceMock:
		return &collector.MockFetcher{}, tickers, nil
	case config.SourceREST:
		remote = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	default:
		remote = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.RPS)
	}
	return collector.NewCachedFetcher(remote, cfg.DataSource.CacheDir, log, obs), tickers, nil
}

// build wires the service from config. obs and rec may be nil.
func (a *app) build(obs collector.Observer, rec screener.Recorder) (*runtime, error) {
	cfg := a.cfg
	fetcher, tickers, err := buildFetcher(cfg, a.log, obs)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}
	a.log.Info("data source", zap.String("source", fetcher.Name()), zap.Int("tickers", len(tickers)))

	ranker, err := strategy.NewRanker(cfg.Conditions, cfg.Scoring)
	if err != nil {
		return nil, err
	}
	cross, err := strategy.NewCrossSectional(cfg.CrossSectional)
	if err != nil {
		return nil, err
	}
	sim, err := backtest.NewSimulator(cfg.Backtest)
	if err != nil {
		return nil, err
	}

	rt := &runtime{}
	store, err := tracker.Open(cfg.Tracking.Backend, cfg.Tracking.Path, a.log)
	if err != nil {
		a.log.Warn("init tracking store failed, using noop", zap.Error(err))
		store = tracker.NewNoopStore()
	}
	rt.store = store
	tr, err := tracker.New(store, cfg.Tracking.Options)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var note notifier.Notifier = notifier.Noop{}
	if cfg.TelegramEnabled() {
		rt.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, a.log.Named("telegram"))
		note = rt.telegram
	}

	rt.svc, err = screener.NewService(screener.Deps{
		Collector:      collector.NewCollector(fetcher, cfg.Names(), a.log.Named("collector")),
		Tickers:        tickers,
		Days:           cfg.DataSource.Days,
		Indicators:     cfg.IndicatorConfig(),
		Ranker:         ranker,
		MinConditions:  cfg.MinConditions,
		CrossSectional: cross,
		Simulator:      sim,
		Tracker:        tr,
		Notifier:       note,
		Recorder:       rec,
		Log:            a.log.Named("screener"),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
