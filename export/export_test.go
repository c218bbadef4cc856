package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

func seed(t *testing.T, st *store.Store, source petition.Source, id string, votes int) {
	t.Helper()
	err := st.Insert(context.Background(), &store.Petition{
		Source:     source,
		ExternalID: id,
		Title:      "petition " + id,
		Status:     petition.StatusCollecting,
		Votes:      votes,
		URL:        "https://example.test/" + id,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestBuildTotalsAndLeaderboards(t *testing.T) {
	st := store.OpenMemory(t)
	ctx := context.Background()
	seed(t, st, petition.SourcePresident, "1", 500)
	seed(t, st, petition.SourcePresident, "2", 900)
	seed(t, st, petition.SourcePresident, "3", 100)
	seed(t, st, petition.SourceCabinet, "40", 250)

	ex := New(st, 2)
	ex.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }

	doc, err := ex.Build(ctx, []petition.GrowthEntry{{Title: "petition 2", Delta: 30, Total: 900}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if doc.GeneratedAt != "2026-09-01T12:00:00Z" {
		t.Errorf("generated_at: %q", doc.GeneratedAt)
	}
	pres := doc.Totals["president"]
	if pres.Petitions != 3 || pres.Votes != 1500 {
		t.Errorf("president totals: %+v", pres)
	}
	cab := doc.Totals["cabinet"]
	if cab.Petitions != 1 || cab.Votes != 250 {
		t.Errorf("cabinet totals: %+v", cab)
	}

	top := doc.Top["president"]
	if len(top) != 2 || top[0].ID != "2" || top[1].ID != "1" {
		t.Errorf("leaderboard: %+v", top)
	}
	if len(doc.Growth) != 1 || doc.Growth[0].Delta != 30 {
		t.Errorf("growth: %+v", doc.Growth)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	st := store.OpenMemory(t)
	seed(t, st, petition.SourcePresident, "1", 500)

	path := filepath.Join(t.TempDir(), "analytics_data.json")
	ex := New(st, 10)
	if err := ex.WriteFile(context.Background(), path, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var doc Analytics
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Totals["president"].Petitions != 1 {
		t.Errorf("totals: %+v", doc.Totals)
	}
	// nil growth is exported as an empty array, not null.
	if doc.Growth == nil {
		t.Error("growth is null in exported JSON")
	}
}

func TestEmptyStoreExports(t *testing.T) {
	st := store.OpenMemory(t)
	doc, err := New(st, 10).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Totals["president"].Petitions != 0 {
		t.Errorf("totals: %+v", doc.Totals)
	}
	if len(doc.Top["president"]) != 0 {
		t.Errorf("top: %+v", doc.Top)
	}
}
