package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"BreakoutScreener/internal/model"
)

// JSONStore keeps every day record in one JSON object keyed by date, the
// tracking.json layout. The whole file is rewritten on each save.
type JSONStore struct {
	mu   sync.Mutex
	path string
	db   map[string]*DayRecord
	now  func() time.Time
}

// NewJSONStore loads path, starting empty if the file doesn't exist.
func NewJSONStore(path string) (*JSONStore, error) {
	db, err := loadRecords(path)
	if err != nil {
		return nil, err
	}
	return &JSONStore{path: path, db: db, now: time.Now}, nil
}

func loadRecords(path string) (map[string]*DayRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*DayRecord{}, nil
		}
		return nil, err
	}
	db := map[string]*DayRecord{}
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return db, nil
}

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *JSONStore) SaveSearch(date time.Time, runID string, entries []SearchEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(date)
	rec, ok := s.db[key]
	if !ok {
		rec = &DayRecord{TrackingResults: []Outcome{}}
		s.db[key] = rec
	}
	rec.RunID = runID
	rec.CreatedAt = s.now()
	rec.SearchResults = append([]SearchEntry{}, entries...)
	return s.save()
}

func (s *JSONStore) SaveTracking(date time.Time, outcomes []Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(date)
	rec, ok := s.db[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	now := s.now()
	rec.TrackedAt = &now
	rec.TrackingResults = append([]Outcome{}, outcomes...)
	return s.save()
}

func (s *JSONStore) Day(date time.Time) (*DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(date)
	rec, ok := s.db[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := *rec
	out.Date = model.Day(date)
	out.SearchResults = append([]SearchEntry{}, rec.SearchResults...)
	out.TrackingResults = append([]Outcome{}, rec.TrackingResults...)
	return &out, nil
}

func (s *JSONStore) Dates() ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]time.Time, 0, len(s.db))
	for key := range s.db {
		d, err := model.ParseDay(key)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date key %q: %w", s.path, key, err)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *JSONStore) Close() error { return nil }
