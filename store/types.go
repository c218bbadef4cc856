package store

import (
	"time"

	"github.com/hazyhaar/petwatch/petition"
)

// Petition is one stored petition row.
type Petition struct {
	Source        petition.Source
	ExternalID    string
	Number        string
	Title         string
	RawDate       string // "date" column: the date string as published
	Date          string // "date_normalized" column: YYYY-MM-DD or ""
	Status        petition.Status
	Votes         int
	VotesPrevious *int // nil until the first reconcile updates the row
	URL           string
	Author        *string
	TextLength    *int
	HasAnswer     bool
	CrawledAt     time.Time
	UpdatedAt     time.Time
}

// DailyStats is the per-date aggregate row. StatusChanges is a serialized
// JSON list of status transitions observed during the run.
type DailyStats struct {
	Date          string
	PresidentNew  int
	CabinetNew    int
	VotesDelta    int
	StatusChanges string
}

// DailyDelta is a derived per-source daily vote movement: the difference
// between one tracked date's summed votes and the previous tracked date's.
type DailyDelta struct {
	Date  string `json:"date"`
	Votes int    `json:"votes"`
	Delta int    `json:"delta"`
}
