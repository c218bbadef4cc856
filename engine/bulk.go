package engine

import (
	"context"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// bulkSync replaces both the reconciler and discovery for the snapshot
// source: one call returns its entire current record set, so the day's full
// state is known regardless of what changed.
func (e *Engine) bulkSync(ctx context.Context, res *RunResult) error {
	records, err := e.cabinet.FetchAll(ctx)
	if err != nil {
		// The snapshot source being down skips that source for this run;
		// it never fails the overall sync.
		res.Stats.SourceErrors++
		e.logger.Warn("bulk fetch failed, skipping source this run", "error", err)
		return nil
	}
	e.logger.Info("bulk snapshot fetched", "records", len(records))

	votes, err := e.store.VotesBySource(ctx, petition.SourceCabinet)
	if err != nil {
		return err
	}

	for i := range records {
		rec := &records[i]
		old, tracked := votes[rec.ExternalID]

		switch {
		case !tracked:
			if rec.Status == petition.StatusUnknown {
				res.Stats.SourceErrors++
				e.logger.Warn("bulk record has unknown status, skipping", "id", rec.ExternalID)
				continue
			}
			p := &store.Petition{
				Source:     petition.SourceCabinet,
				ExternalID: rec.ExternalID,
				Number:     rec.Number,
				Title:      rec.Title,
				RawDate:    rec.RawDate,
				Date:       rec.Date,
				Status:     rec.Status,
				Votes:      rec.Votes,
				URL:        rec.URL,
				HasAnswer:  rec.Status == petition.StatusAnswered,
			}
			if err := e.store.Insert(ctx, p); err != nil {
				return err
			}
			res.Stats.CabinetNew++
			res.Growth = append(res.Growth, petition.GrowthEntry{
				Title: rec.Title, Delta: rec.Votes, Total: rec.Votes, URL: rec.URL,
			})

		case rec.Votes != old:
			if err := e.store.UpdateVotesOnly(ctx, petition.SourceCabinet, rec.ExternalID, rec.Votes, old); err != nil {
				return err
			}
			delta := rec.Votes - old
			res.Stats.VoteDelta += delta
			if delta > 0 {
				res.Growth = append(res.Growth, petition.GrowthEntry{
					Title: rec.Title, Delta: delta, Total: rec.Votes, URL: rec.URL,
				})
			}
		}

		// Unconditional: the bulk source is complete, so today's snapshot is
		// recorded for every incoming record, changed or not.
		if err := e.store.UpsertHistory(ctx, rec.ExternalID, petition.SourceCabinet, res.Date, rec.Votes); err != nil {
			return err
		}
	}
	return nil
}
