// Package tracker records each search run's top candidates and, once the next
// session has traded, whether they reached the target.
package tracker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned for a date that has no search record.
var ErrNotFound = errors.New("tracker: no record for date")

// SearchEntry is one ranked candidate of a search run.
type SearchEntry struct {
	Rank             int             `json:"rank"`
	Ticker           string          `json:"ticker"`
	Name             string          `json:"stock_name"`
	BuyPrice         float64         `json:"buy_price"`
	ConditionsMet    int             `json:"conditions_met"`
	Score            float64         `json:"score"`
	ConditionsDetail map[string]bool `json:"conditions_detail"`
}

// Outcome is the realized next-session result of one entry.
type Outcome struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"stock_name"`
	BuyPrice      float64 `json:"buy_price"`
	NextDate      string  `json:"next_date"`
	NextDayHigh   float64 `json:"next_day_high"`
	NextDayClose  float64 `json:"next_day_close"`
	ConditionsMet int     `json:"conditions_met"`
	Score         float64 `json:"score"`
	Achieved      bool    `json:"achieved"`
	ActualReturn  float64 `json:"actual_return"`
}

// DayRecord is everything stored for one search date.
type DayRecord struct {
	Date            time.Time     `json:"-"`
	RunID           string        `json:"run_id"`
	CreatedAt       time.Time     `json:"created_at"`
	TrackedAt       *time.Time    `json:"tracked_at,omitempty"`
	SearchResults   []SearchEntry `json:"search_results"`
	TrackingResults []Outcome     `json:"tracking_results"`
}

// Store persists day records. SaveSearch replaces the date's entries;
// SaveTracking replaces its outcomes and fails with ErrNotFound when the date
// was never searched. Both are idempotent.
type Store interface {
	SaveSearch(date time.Time, runID string, entries []SearchEntry) error
	SaveTracking(date time.Time, outcomes []Outcome) error
	Day(date time.Time) (*DayRecord, error)
	Dates() ([]time.Time, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendNone   = "none"
)

// Open constructs the store for backend at path, creating the parent directory.
func Open(backend, path string, log *zap.Logger) (Store, error) {
	if backend == BackendSQLite || backend == BackendJSON {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	switch backend {
	case BackendSQLite:
		return NewSQLiteStore(path, log)
	case BackendJSON:
		return NewJSONStore(path)
	case BackendNone, "":
		return NewNoopStore(), nil
	default:
		return nil, fmt.Errorf("unknown tracking backend %q", backend)
	}
}
