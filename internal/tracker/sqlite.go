package tracker

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"BreakoutScreener/internal/model"
)

// SQLiteStore persists day records to a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the stats command read while a scheduled job writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite tracking store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS search_runs (
			date       TEXT PRIMARY KEY,
			run_id     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			tracked_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS search_results (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			date              TEXT NOT NULL,
			rank              INTEGER NOT NULL,
			ticker            TEXT NOT NULL,
			stock_name        TEXT,
			buy_price         REAL,
			conditions_met    INTEGER,
			score             REAL,
			conditions_detail TEXT,
			UNIQUE(date, ticker)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_date ON search_results(date)`,

		`CREATE TABLE IF NOT EXISTS tracking_results (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			date           TEXT NOT NULL,
			ticker         TEXT NOT NULL,
			stock_name     TEXT,
			buy_price      REAL,
			next_date      TEXT,
			next_day_high  REAL,
			next_day_close REAL,
			conditions_met INTEGER,
			score          REAL,
			achieved       INTEGER,
			actual_return  REAL,
			UNIQUE(date, ticker)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_date ON tracking_results(date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func dayKey(t time.Time) string { return model.Day(t).Format(model.DateLayout) }

// SaveSearch replaces the date's search entries in one transaction.
func (s *SQLiteStore) SaveSearch(date time.Time, runID string, entries []SearchEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(date)
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO search_runs (date, run_id, created_at) VALUES (?,?,?)
		ON CONFLICT(date) DO UPDATE SET run_id = excluded.run_id, created_at = excluded.created_at`,
		key, runID, s.now().Unix(),
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", key, err)
	}
	if _, err := tx.Exec(`DELETE FROM search_results WHERE date = ?`, key); err != nil {
		return fmt.Errorf("clear search results %s: %w", key, err)
	}
	for _, e := range entries {
		detail, err := json.Marshal(e.ConditionsDetail)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO search_results
			(date, rank, ticker, stock_name, buy_price, conditions_met, score, conditions_detail)
			VALUES (?,?,?,?,?,?,?,?)`,
			key, e.Rank, e.Ticker, e.Name, e.BuyPrice, e.ConditionsMet, e.Score, string(detail),
		); err != nil {
			return fmt.Errorf("insert search result %s/%s: %w", key, e.Ticker, err)
		}
	}
	return tx.Commit()
}

// SaveTracking replaces the date's outcomes in one transaction.
func (s *SQLiteStore) SaveTracking(date time.Time, outcomes []Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(date)
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE search_runs SET tracked_at = ? WHERE date = ?`, s.now().Unix(), key)
	if err != nil {
		return fmt.Errorf("mark tracked %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if _, err := tx.Exec(`DELETE FROM tracking_results WHERE date = ?`, key); err != nil {
		return fmt.Errorf("clear tracking results %s: %w", key, err)
	}
	for _, o := range outcomes {
		if _, err := tx.Exec(`INSERT INTO tracking_results
			(date, ticker, stock_name, buy_price, next_date, next_day_high, next_day_close,
			 conditions_met, score, achieved, actual_return)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			key, o.Ticker, o.Name, o.BuyPrice, o.NextDate, o.NextDayHigh, o.NextDayClose,
			o.ConditionsMet, o.Score, o.Achieved, o.ActualReturn,
		); err != nil {
			return fmt.Errorf("insert tracking result %s/%s: %w", key, o.Ticker, err)
		}
	}
	return tx.Commit()
}

// Day reads one date's record.
func (s *SQLiteStore) Day(date time.Time) (*DayRecord, error) {
	key := dayKey(date)
	rec := &DayRecord{Date: model.Day(date)}

	var created int64
	var tracked sql.NullInt64
	err := s.db.QueryRow(`SELECT run_id, created_at, tracked_at FROM search_runs WHERE date = ?`, key).
		Scan(&rec.RunID, &created, &tracked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(created, 0)
	if tracked.Valid {
		t := time.Unix(tracked.Int64, 0)
		rec.TrackedAt = &t
	}

	if rec.SearchResults, err = s.searchResults(key); err != nil {
		return nil, err
	}
	if rec.TrackingResults, err = s.trackingResults(key); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) searchResults(key string) ([]SearchEntry, error) {
	rows, err := s.db.Query(`SELECT rank, ticker, stock_name, buy_price, conditions_met, score, conditions_detail
		FROM search_results WHERE date = ? ORDER BY rank`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SearchEntry{}
	for rows.Next() {
		var e SearchEntry
		var detail string
		if err := rows.Scan(&e.Rank, &e.Ticker, &e.Name, &e.BuyPrice, &e.ConditionsMet, &e.Score, &detail); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(detail), &e.ConditionsDetail); err != nil {
			return nil, fmt.Errorf("decode conditions of %s/%s: %w", key, e.Ticker, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) trackingResults(key string) ([]Outcome, error) {
	rows, err := s.db.Query(`SELECT ticker, stock_name, buy_price, next_date, next_day_high, next_day_close,
		conditions_met, score, achieved, actual_return
		FROM tracking_results WHERE date = ? ORDER BY id`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Outcome{}
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.Ticker, &o.Name, &o.BuyPrice, &o.NextDate, &o.NextDayHigh, &o.NextDayClose,
			&o.ConditionsMet, &o.Score, &o.Achieved, &o.ActualReturn); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Dates lists searched dates in ascending order.
func (s *SQLiteStore) Dates() ([]time.Time, error) {
	rows, err := s.db.Query(`SELECT date FROM search_runs ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		d, err := model.ParseDay(key)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite tracking store")
	return s.db.Close()
}
