// Package export renders the analytics JSON consumed by the dashboard.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// Analytics is the exported document shape.
type Analytics struct {
	GeneratedAt string                   `json:"generated_at"`
	Totals      map[string]SourceTotals  `json:"totals"`
	Top         map[string][]TopPetition `json:"top"`
	Growth      []petition.GrowthEntry   `json:"growth"`
}

// SourceTotals aggregates one source.
type SourceTotals struct {
	Petitions int `json:"petitions"`
	Votes     int `json:"votes"`
}

// TopPetition is one row of a per-source leaderboard.
type TopPetition struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Votes  int    `json:"votes"`
	URL    string `json:"url"`
}

// Exporter builds analytics documents from the store.
type Exporter struct {
	store *store.Store
	topN  int
	now   func() time.Time
}

// New creates an Exporter keeping the topN most-signed petitions per source.
func New(st *store.Store, topN int) *Exporter {
	if topN <= 0 {
		topN = 10
	}
	return &Exporter{store: st, topN: topN, now: time.Now}
}

// Build assembles the document. growth may be nil; it is carried through
// verbatim so a run's fresh deltas land in the same file.
func (e *Exporter) Build(ctx context.Context, growth []petition.GrowthEntry) (*Analytics, error) {
	doc := &Analytics{
		GeneratedAt: e.now().UTC().Format(time.RFC3339),
		Totals:      make(map[string]SourceTotals),
		Top:         make(map[string][]TopPetition),
		Growth:      growth,
	}
	if doc.Growth == nil {
		doc.Growth = []petition.GrowthEntry{}
	}

	for _, src := range []petition.Source{petition.SourcePresident, petition.SourceCabinet} {
		count, err := e.store.CountSource(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("export: counting %s: %w", src, err)
		}
		votes, err := e.store.VotesBySource(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("export: summing %s votes: %w", src, err)
		}
		total := 0
		for _, v := range votes {
			total += v
		}
		doc.Totals[string(src)] = SourceTotals{Petitions: count, Votes: total}

		top, err := e.store.TopByVotes(ctx, src, e.topN)
		if err != nil {
			return nil, fmt.Errorf("export: top %s: %w", src, err)
		}
		rows := make([]TopPetition, 0, len(top))
		for _, p := range top {
			rows = append(rows, TopPetition{
				ID:     p.ExternalID,
				Title:  p.Title,
				Status: string(p.Status),
				Votes:  p.Votes,
				URL:    p.URL,
			})
		}
		doc.Top[string(src)] = rows
	}
	return doc, nil
}

// WriteFile builds the document and writes it to path as indented JSON.
func (e *Exporter) WriteFile(ctx context.Context, path string, growth []petition.GrowthEntry) error {
	doc, err := e.Build(ctx, growth)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
