package indicator

import (
	"sort"
	"time"

	"BreakoutScreener/internal/model"
)

// Day is one date's cross-section, rows in ticker order.
type Day struct {
	Date time.Time
	Rows []model.IndicatorRow
}

// SplitByDate groups rows into ascending dates.
func SplitByDate(rows []model.IndicatorRow) []Day {
	idx := make(map[time.Time]int)
	var days []Day
	for _, r := range rows {
		d := model.Day(r.Date)
		i, ok := idx[d]
		if !ok {
			i = len(days)
			idx[d] = i
			days = append(days, Day{Date: d})
		}
		days[i].Rows = append(days[i].Rows, r)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	for i := range days {
		rs := days[i].Rows
		sort.SliceStable(rs, func(a, b int) bool { return rs[a].Ticker < rs[b].Ticker })
	}
	return days
}

// LastDate returns the newest row date, zero for no rows.
func LastDate(rows []model.IndicatorRow) time.Time {
	var last time.Time
	for _, r := range rows {
		if d := model.Day(r.Date); d.After(last) {
			last = d
		}
	}
	return last
}

// OnDate returns the rows dated d, in ticker order.
func OnDate(rows []model.IndicatorRow, d time.Time) []model.IndicatorRow {
	d = model.Day(d)
	var out []model.IndicatorRow
	for _, r := range rows {
		if model.Day(r.Date).Equal(d) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
