package engine

import (
	"context"
	"reflect"
	"testing"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

func TestDiscoverInsertsNewPetitions(t *testing.T) {
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 500)

	detail := &fakeDetail{records: map[string]*petition.Record{
		"200": activeRecord("200", 40),
		"201": activeRecord("201", 15),
	}}
	lister := &fakeLister{pages: [][]string{{"201", "200", "100"}}}
	e := testEngine(t, st, detail, lister, nil)

	res := newRunResult()
	if err := e.discover(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("discover: %v", err)
	}

	if res.Stats.PresidentNew != 2 {
		t.Errorf("new: got %d", res.Stats.PresidentNew)
	}
	p, _ := st.Get(ctx, petition.SourcePresident, "200")
	if p == nil || p.Votes != 40 {
		t.Fatalf("inserted record: %+v", p)
	}
	// Day-zero history snapshot for the new record.
	votes, _ := st.HistoryVotes(ctx, "200", petition.SourcePresident, testDate)
	if votes != 40 {
		t.Errorf("day-zero history: got %d", votes)
	}
	// Already-tracked 100 must not be re-fetched by discovery.
	for _, id := range detail.calls {
		if id == "100" {
			t.Errorf("discovery re-fetched a tracked petition")
		}
	}
}

func TestDiscoverSmartStop(t *testing.T) {
	// WHAT: A non-empty page with zero new identifiers halts the scan; later
	// pages are never requested.
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 500)
	seedActive(t, st, "101", 200)

	lister := &fakeLister{pages: [][]string{
		{"100", "101"}, // everything known
		{"999"},        // would be new, but unreachable
	}}
	detail := &fakeDetail{records: map[string]*petition.Record{
		"999": activeRecord("999", 10),
	}}
	e := testEngine(t, st, detail, lister, nil)

	res := newRunResult()
	if err := e.discover(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("discover: %v", err)
	}

	if !reflect.DeepEqual(lister.asked, []int{1}) {
		t.Errorf("pages asked: %v, want [1]", lister.asked)
	}
	if res.Stats.PresidentNew != 0 {
		t.Errorf("new: got %d", res.Stats.PresidentNew)
	}
}

func TestDiscoverFullIgnoresSmartStop(t *testing.T) {
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 500)

	lister := &fakeLister{pages: [][]string{
		{"100"},
		{"999"},
	}}
	detail := &fakeDetail{records: map[string]*petition.Record{
		"999": activeRecord("999", 10),
	}}
	e := testEngine(t, st, detail, lister, nil)

	res := newRunResult()
	if err := e.discover(ctx, res, RunOptions{Full: true}); err != nil {
		t.Fatalf("discover: %v", err)
	}

	if res.Stats.PresidentNew != 1 {
		t.Errorf("new: got %d, want 999 found on page 2", res.Stats.PresidentNew)
	}
	// An empty page still ends a full scan.
	if !reflect.DeepEqual(lister.asked, []int{1, 2, 3}) {
		t.Errorf("pages asked: %v", lister.asked)
	}
}

func TestDiscoverPageFailureEndsQuietly(t *testing.T) {
	// WHY: A broken listing page skips the rest of discovery but must not
	// fail the run; reconciliation results still stand.
	st := store.OpenMemory(t)
	ctx := context.Background()

	lister := &fakeLister{
		pages:  [][]string{{"200"}, {"300"}},
		failOn: 2,
	}
	detail := &fakeDetail{records: map[string]*petition.Record{
		"200": activeRecord("200", 40),
		"300": activeRecord("300", 50),
	}}
	e := testEngine(t, st, detail, lister, nil)

	res := newRunResult()
	if err := e.discover(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("discover returned error: %v", err)
	}
	if res.Stats.PresidentNew != 1 {
		t.Errorf("new: got %d, want only page 1 processed", res.Stats.PresidentNew)
	}
}

func TestDiscoverSkipsUnknownStatus(t *testing.T) {
	st := store.OpenMemory(t)
	ctx := context.Background()

	rec := activeRecord("200", 40)
	rec.Status = petition.StatusUnknown
	detail := &fakeDetail{records: map[string]*petition.Record{"200": rec}}
	lister := &fakeLister{pages: [][]string{{"200"}}}
	e := testEngine(t, st, detail, lister, nil)

	res := newRunResult()
	if err := e.discover(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("discover: %v", err)
	}

	exists, _ := st.Exists(ctx, petition.SourcePresident, "200")
	if exists {
		t.Error("unknown-status petition was inserted")
	}
	if res.Stats.SourceErrors != 1 || res.Stats.SoftErrors != 0 || res.Stats.PresidentNew != 0 {
		t.Errorf("stats: %+v", res.Stats)
	}
}

func TestDiscoverDedupesWithinRun(t *testing.T) {
	// Listing pages can repeat an identifier when the site shifts underfoot.
	st := store.OpenMemory(t)
	ctx := context.Background()

	detail := &fakeDetail{records: map[string]*petition.Record{
		"200": activeRecord("200", 40),
	}}
	lister := &fakeLister{pages: [][]string{{"200", "200"}}}
	e := testEngine(t, st, detail, lister, nil)

	res := newRunResult()
	if err := e.discover(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(detail.calls) != 1 {
		t.Errorf("detail calls: %v, want one", detail.calls)
	}
	if res.Stats.PresidentNew != 1 {
		t.Errorf("new: got %d", res.Stats.PresidentNew)
	}
}
