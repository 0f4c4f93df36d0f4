package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBars writes 25 sessions for COLD (flat) and HOT (ends on a breakout).
func writeBars(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,ticker,name,open,high,low,close,volume\n")
	day0 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, ticker := range []string{"COLD", "HOT"} {
		for i := 0; i < 25; i++ {
			d := day0.AddDate(0, 0, i).Format("2006-01-02")
			if ticker == "HOT" && i == 24 {
				fmt.Fprintf(&b, "%s,HOT,Hot Corp,10000,10600,9950,10580,400000\n", d)
				continue
			}
			fmt.Fprintf(&b, "%s,%s,,10000,10150,9850,10000,100000\n", d, ticker)
		}
	}
	path := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func setup(t *testing.T) (cfgPath, barsPath string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	barsPath = writeBars(t, dir)
	cfgPath = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`
data_source:
  kind: csv
  csv_path: %s
tracking:
  backend: json
  path: %s
log:
  level: error
`, barsPath, filepath.Join(dir, "tracking.json"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return cfgPath, barsPath
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestSearchCommand_JSON(t *testing.T) {
	cfg, _ := setup(t)
	out := run(t, "--config", cfg, "search", "--format", "json")

	var rep struct {
		Date    time.Time `json:"date"`
		Results []struct {
			Ticker        string `json:"ticker"`
			ConditionsMet int    `json:"conditions_met"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Results, 2)
	assert.Equal(t, "HOT", rep.Results[0].Ticker)
	assert.Equal(t, 5, rep.Results[0].ConditionsMet)
	assert.Equal(t, "2024-02-25", rep.Date.Format("2006-01-02"))

	out = run(t, "--config", cfg, "search", "--format", "json", "--min-conditions", "4")
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Len(t, rep.Results, 1)
}

func TestSearchSaveThenStats(t *testing.T) {
	cfg, _ := setup(t)
	run(t, "--config", cfg, "search", "--save")
	out := run(t, "--config", cfg, "stats", "--format", "json")

	var got struct {
		Statistics struct {
			TotalSearches   int `json:"total_searches"`
			TotalCandidates int `json:"total_candidates"`
		} `json:"statistics"`
		Dates []struct {
			Date    string `json:"date"`
			Tracked bool   `json:"tracked"`
		} `json:"dates"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Statistics.TotalSearches)
	assert.Equal(t, 2, got.Statistics.TotalCandidates)
	require.Len(t, got.Dates, 1)
	assert.False(t, got.Dates[0].Tracked)
}

func TestTrackThenStatsHistory(t *testing.T) {
	cfg, bars := setup(t)
	run(t, "--config", cfg, "search", "--save")

	f, err := os.OpenFile(bars, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("2024-02-26,COLD,,10000,10050,9850,10000,100000\n2024-02-26,HOT,Hot Corp,10600,10700,10500,10650,300000\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	run(t, "--config", cfg, "track")
	out := run(t, "--config", cfg, "stats", "--format", "json", "--history", "5")

	var got struct {
		History []struct {
			Date     string `json:"date"`
			Ticker   string `json:"ticker"`
			Achieved bool   `json:"achieved"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.History, 2)
	achieved := map[string]bool{}
	for _, h := range got.History {
		assert.Equal(t, "2024-02-25", h.Date)
		achieved[h.Ticker] = h.Achieved
	}
	assert.True(t, achieved["HOT"], "10700 is 1.13% over the 10580 close")
	assert.False(t, achieved["COLD"])

	table := run(t, "--config", cfg, "stats", "--history", "5")
	assert.Contains(t, table, "NEXT HIGH")
}

func TestBacktestCommand_Input(t *testing.T) {
	cfg, bars := setup(t)
	out := run(t, "--config", cfg, "backtest", "--input", bars, "--format", "json")

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	for _, key := range []string{"trades", "daily_equity", "total_trades", "win_rate", "mdd", "trade_mdd", "final_capital"} {
		assert.Contains(t, res, key)
	}
	assert.Greater(t, res["total_trades"].(float64), 0.0)

	table := run(t, "--config", cfg, "backtest", "--input", bars, "--policy", "cross")
	assert.Contains(t, table, "dates processed")
	assert.Contains(t, table, "trade drawdown")
}

func TestCommands_RejectBadFlags(t *testing.T) {
	cfg, _ := setup(t)
	for _, args := range [][]string{
		{"--config", cfg, "search", "--format", "xml"},
		{"--config", cfg, "search", "--min-conditions", "9"},
		{"--config", cfg, "backtest", "--policy", "momentum"},
		{"--config", cfg, "track", "--date", "yesterday"},
	} {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetArgs(args)
		assert.Error(t, root.ExecuteContext(context.Background()), strings.Join(args, " "))
	}
}
