package model

import "time"

// SearchResult is one evaluated row of a search run.
type SearchResult struct {
	Date             time.Time       `json:"date"`
	Ticker           string          `json:"ticker"`
	Name             string          `json:"stock_name"`
	Close            float64         `json:"close"`
	NextHigh         Opt             `json:"-"`
	ConditionsMet    int             `json:"conditions_met"`
	ConditionsDetail map[string]bool `json:"conditions_detail"`
	Score            float64         `json:"score"`
}

// Candidate is what a selection policy hands to the simulator for one date.
type Candidate struct {
	Ticker string
	Name   string
	Close  float64 // reference entry price
	Score  float64
}
