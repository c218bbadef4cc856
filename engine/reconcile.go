package engine

import (
	"context"
	"errors"

	"github.com/hazyhaar/petwatch/fetch"
	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// reconcile re-fetches every tracked petition still collecting signatures and
// applies safe updates, one record at a time. Per-record failures are tallied
// as soft errors; only store failures abort the run.
func (e *Engine) reconcile(ctx context.Context, res *RunResult, opts RunOptions) error {
	active, err := e.store.Active(ctx, petition.SourcePresident, opts.StartID, opts.EndID)
	if err != nil {
		return err
	}
	res.Stats.Checked += len(active)
	e.logger.Info("reconciling active petitions", "count", len(active))

	for i, p := range active {
		if err := e.reconcileOne(ctx, res, &p); err != nil {
			return err
		}
		e.politeness(i)
	}
	return nil
}

func (e *Engine) reconcileOne(ctx context.Context, res *RunResult, p *store.Petition) error {
	rec, err := e.president.Detail(ctx, p.ExternalID)
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		// Terminal for the record: mark dead in place, no vote mutation.
		if err := e.store.MarkNotFound(ctx, p.Source, p.ExternalID); err != nil {
			return err
		}
		res.StatusChanges = append(res.StatusChanges, petition.StatusChange{
			ID: p.ExternalID, From: p.Status, To: petition.StatusNotFound,
		})
		res.Stats.StatusChanges++
		res.Stats.SoftErrors++
		e.logger.Warn("petition gone upstream, marked dead", "id", p.ExternalID)
		return nil

	case err != nil:
		// Rate limits, transient failures, parse failures: the record is
		// left untouched this pass.
		res.Stats.SoftErrors++
		e.logger.Warn("skipping petition this pass", "id", p.ExternalID, "error", err)
		return nil
	}

	if rec.Status == petition.StatusUnknown {
		// Upstream parse ambiguity: Unknown must never overwrite a known
		// status, so the whole record stays untouched.
		res.Stats.SoftErrors++
		e.logger.Warn("unknown status extracted, keeping stored record", "id", p.ExternalID)
		return nil
	}

	votes := rec.Votes
	if votes == 0 && p.Votes > 100 {
		// Stale-scrape guard: signatures do not evaporate. A zero against a
		// substantial stored count is a broken extraction, not real data.
		e.logger.Warn("suspicious vote drop, keeping stored votes",
			"id", p.ExternalID, "stored", p.Votes, "returned", votes)
		votes = p.Votes
		res.Stats.SoftErrors++
	}

	delta := votes - p.Votes
	previous := p.Votes
	textLength := rec.TextLength
	if err := e.store.UpdateVotes(ctx, p.Source, p.ExternalID, votes, &previous, rec.Status, &textLength); err != nil {
		return err
	}
	if err := e.store.UpsertHistory(ctx, p.ExternalID, p.Source, res.Date, votes); err != nil {
		return err
	}

	res.Stats.Updated++
	res.Stats.VoteDelta += delta

	if delta > 0 {
		res.Growth = append(res.Growth, petition.GrowthEntry{
			Title: rec.Title, Delta: delta, Total: votes, URL: rec.URL,
		})
	}
	if rec.Status != p.Status {
		res.StatusChanges = append(res.StatusChanges, petition.StatusChange{
			ID: p.ExternalID, From: p.Status, To: rec.Status,
		})
		res.Stats.StatusChanges++
		e.logger.Info("status change",
			"id", p.ExternalID, "from", string(p.Status), "to", string(rec.Status))
	}
	return nil
}
