package engine

import (
	"context"
	"testing"

	"github.com/hazyhaar/petwatch/fetch"
	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

func newRunResult() *RunResult {
	return &RunResult{RunID: "test-run", Date: testDate, State: StateSyncing}
}

func TestReconcileVoteGrowth(t *testing.T) {
	// WHAT: votes 500 → 520 updates the row, snapshots history, and emits a
	// growth entry {delta:20, total:520}.
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 500)

	detail := &fakeDetail{records: map[string]*petition.Record{
		"100": activeRecord("100", 520),
	}}
	e := testEngine(t, st, detail, nil, nil)

	res := newRunResult()
	if err := e.reconcile(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	p, _ := st.Get(ctx, petition.SourcePresident, "100")
	if p.Votes != 520 {
		t.Errorf("votes: got %d", p.Votes)
	}
	if p.VotesPrevious == nil || *p.VotesPrevious != 500 {
		t.Errorf("votes_previous: got %v", p.VotesPrevious)
	}
	votes, _ := st.HistoryVotes(ctx, "100", petition.SourcePresident, testDate)
	if votes != 520 {
		t.Errorf("history snapshot: got %d", votes)
	}
	if len(res.Growth) != 1 || res.Growth[0].Delta != 20 || res.Growth[0].Total != 520 {
		t.Errorf("growth: got %+v", res.Growth)
	}
	if res.Stats.VoteDelta != 20 || res.Stats.Updated != 1 || res.Stats.SoftErrors != 0 {
		t.Errorf("stats: %+v", res.Stats)
	}
}

func TestReconcileStaleScrapeGuard(t *testing.T) {
	// WHAT: A returned zero against stored 500 is rejected as a broken
	// extraction: stored votes stay, a soft error is counted, no growth.
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 500)

	detail := &fakeDetail{records: map[string]*petition.Record{
		"100": activeRecord("100", 0),
	}}
	e := testEngine(t, st, detail, nil, nil)

	res := newRunResult()
	if err := e.reconcile(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	p, _ := st.Get(ctx, petition.SourcePresident, "100")
	if p.Votes != 500 {
		t.Errorf("votes: got %d, want 500 kept", p.Votes)
	}
	if res.Stats.SoftErrors != 1 {
		t.Errorf("soft errors: got %d", res.Stats.SoftErrors)
	}
	if len(res.Growth) != 0 {
		t.Errorf("growth emitted for stale scrape: %+v", res.Growth)
	}
	// The day's snapshot carries the kept value, not the anomalous zero.
	votes, _ := st.HistoryVotes(ctx, "100", petition.SourcePresident, testDate)
	if votes != 500 {
		t.Errorf("history snapshot: got %d", votes)
	}
}

func TestReconcileZeroVotesOnSmallPetitionAccepted(t *testing.T) {
	// WHY: The guard only fires above the 100-vote floor; a small petition
	// genuinely at zero is written as-is.
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 80)

	detail := &fakeDetail{records: map[string]*petition.Record{
		"100": activeRecord("100", 0),
	}}
	e := testEngine(t, st, detail, nil, nil)

	res := newRunResult()
	if err := e.reconcile(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	p, _ := st.Get(ctx, petition.SourcePresident, "100")
	if p.Votes != 0 {
		t.Errorf("votes: got %d, want 0 accepted", p.Votes)
	}
	if res.Stats.SoftErrors != 0 {
		t.Errorf("soft errors: got %d", res.Stats.SoftErrors)
	}
}

func TestReconcileUnknownNeverOverwrites(t *testing.T) {
	// WHAT: Status monotonicity guard — Unknown leaves the record untouched.
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 500)

	rec := activeRecord("100", 999)
	rec.Status = petition.StatusUnknown
	detail := &fakeDetail{records: map[string]*petition.Record{"100": rec}}
	e := testEngine(t, st, detail, nil, nil)

	res := newRunResult()
	if err := e.reconcile(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	p, _ := st.Get(ctx, petition.SourcePresident, "100")
	if p.Status != petition.StatusCollecting || p.Votes != 500 {
		t.Errorf("record touched: status=%q votes=%d", p.Status, p.Votes)
	}
	if res.Stats.SoftErrors != 1 {
		t.Errorf("soft errors: got %d", res.Stats.SoftErrors)
	}
	n, _ := st.HistoryCount(ctx, petition.SourcePresident)
	if n != 0 {
		t.Errorf("history written for skipped record: %d rows", n)
	}
}

func TestReconcileNotFoundMarksDead(t *testing.T) {
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 500)

	detail := &fakeDetail{errs: map[string]error{"100": fetch.ErrNotFound}}
	e := testEngine(t, st, detail, nil, nil)

	res := newRunResult()
	if err := e.reconcile(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	p, _ := st.Get(ctx, petition.SourcePresident, "100")
	if p.Status != petition.StatusNotFound {
		t.Errorf("status: got %q", p.Status)
	}
	if p.Votes != 500 {
		t.Errorf("votes mutated on not-found: got %d", p.Votes)
	}
	if len(res.StatusChanges) != 1 || res.StatusChanges[0].To != petition.StatusNotFound {
		t.Errorf("status changes: %+v", res.StatusChanges)
	}
}

func TestReconcileStatusTransition(t *testing.T) {
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 25000)

	rec := activeRecord("100", 25000)
	rec.Status = petition.StatusUnderReview
	detail := &fakeDetail{records: map[string]*petition.Record{"100": rec}}
	e := testEngine(t, st, detail, nil, nil)

	res := newRunResult()
	if err := e.reconcile(ctx, res, RunOptions{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	p, _ := st.Get(ctx, petition.SourcePresident, "100")
	if p.Status != petition.StatusUnderReview {
		t.Errorf("status: got %q", p.Status)
	}
	want := petition.StatusChange{ID: "100", From: petition.StatusCollecting, To: petition.StatusUnderReview}
	if len(res.StatusChanges) != 1 || res.StatusChanges[0] != want {
		t.Errorf("status changes: %+v", res.StatusChanges)
	}
}

func TestReconcileRangeBounds(t *testing.T) {
	// WHAT: Start/end identifier flags bound which records are re-fetched.
	st := store.OpenMemory(t)
	ctx := context.Background()
	seedActive(t, st, "100", 10)
	seedActive(t, st, "200", 10)
	seedActive(t, st, "300", 10)

	detail := &fakeDetail{records: map[string]*petition.Record{
		"100": activeRecord("100", 10),
		"200": activeRecord("200", 10),
		"300": activeRecord("300", 10),
	}}
	e := testEngine(t, st, detail, nil, nil)

	res := newRunResult()
	if err := e.reconcile(ctx, res, RunOptions{StartID: 150, EndID: 250}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(detail.calls) != 1 || detail.calls[0] != "200" {
		t.Errorf("fetched: %v, want just 200", detail.calls)
	}
}
