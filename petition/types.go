// Package petition defines the domain types shared by the fetchers, the
// store, and the sync engine: petition sources, the closed status vocabulary,
// and the normalized record shape a fetcher produces.
package petition

// Source identifies an upstream petition platform.
type Source string

const (
	// SourcePresident is the paginated HTML listing source.
	SourcePresident Source = "president"
	// SourceCabinet is the full-snapshot JSON API source.
	SourceCabinet Source = "cabinet"
)

// Status is the closed status vocabulary. Unknown and NotFound are sentinels:
// Unknown marks an upstream parse ambiguity and must never overwrite a known
// status; NotFound marks a record whose upstream page is gone.
type Status string

const (
	StatusCollecting  Status = "collecting"
	StatusUnderReview Status = "under_review"
	StatusAnswered    Status = "answered"
	StatusArchived    Status = "archived"
	StatusUnsupported Status = "unsupported"
	StatusUnknown     Status = "unknown"
	StatusNotFound    Status = "not_found"
)

// Known reports whether s is a real observed status rather than a sentinel.
func (s Status) Known() bool {
	return s != StatusUnknown && s != StatusNotFound && s != ""
}

// Record is the normalized result of fetching one petition from upstream.
type Record struct {
	ExternalID string
	Title      string
	Number     string
	Author     string // empty if the page lists no author
	RawDate    string // date string exactly as published upstream
	Date       string // normalized YYYY-MM-DD, empty if not parseable
	Status     Status
	Votes      int
	URL        string
	TextLength int
	HasAnswer  bool
}

// GrowthEntry reports a positive vote change for trending output. A newly
// discovered petition counts as growth with Delta equal to its full vote count.
type GrowthEntry struct {
	Title string `json:"title"`
	Delta int    `json:"delta"`
	Total int    `json:"total"`
	URL   string `json:"url"`
}

// StatusChange records one observed status transition during a run.
type StatusChange struct {
	ID   string `json:"id"`
	From Status `json:"from"`
	To   Status `json:"to"`
}
