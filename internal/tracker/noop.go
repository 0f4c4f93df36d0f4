package tracker

import "time"

// NoopStore discards writes; used when tracking is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) SaveSearch(_ time.Time, _ string, _ []SearchEntry) error { return nil }
func (n *NoopStore) SaveTracking(_ time.Time, _ []Outcome) error             { return ErrNotFound }
func (n *NoopStore) Day(_ time.Time) (*DayRecord, error)                     { return nil, ErrNotFound }
func (n *NoopStore) Dates() ([]time.Time, error)                             { return nil, nil }
func (n *NoopStore) Close() error                                            { return nil }
