package engine

import (
	"context"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// discover scans the listing pages newest-first for identifiers not yet
// tracked, up to the configured page cap.
//
// Smart stop: the listing is sorted newest-first, so a non-empty page with
// zero new-to-the-store identifiers means everything older is known too, and
// the scan halts. That is a throughput optimization, not a completeness
// guarantee — untracked identifiers hiding beyond an all-known page stay
// missed until a -full run. A page fetch failure ends discovery for this run
// without failing the overall sync.
func (e *Engine) discover(ctx context.Context, res *RunResult, opts RunOptions) error {
	seen := make(map[string]bool)
	processed := 0

	for page := 1; page <= e.config.President.MaxPages; page++ {
		ids, err := e.lister.ListPage(ctx, page)
		if err != nil {
			e.logger.Warn("listing page fetch failed, ending discovery", "page", page, "error", err)
			return nil
		}
		if len(ids) == 0 {
			e.logger.Info("empty listing page, ending discovery", "page", page)
			return nil
		}

		pageNew := 0
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			inserted, err := e.discoverOne(ctx, res, id)
			if err != nil {
				return err
			}
			if inserted {
				pageNew++
			}
			e.politeness(processed)
			processed++
		}
		e.logger.Info("listing page scanned", "page", page, "new", pageNew)

		if pageNew == 0 && !opts.Full {
			e.logger.Info("smart stop: page had no new petitions", "page", page)
			return nil
		}
	}
	return nil
}

// discoverOne inserts one untracked petition. It reports whether a row was
// actually created; already-tracked and unfetchable identifiers return false.
func (e *Engine) discoverOne(ctx context.Context, res *RunResult, id string) (bool, error) {
	exists, err := e.store.Exists(ctx, petition.SourcePresident, id)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	rec, err := e.president.Detail(ctx, id)
	if err != nil {
		res.Stats.SourceErrors++
		e.logger.Warn("new petition fetch failed", "id", id, "error", err)
		return false, nil
	}
	if rec.Status == petition.StatusUnknown {
		// Don't seed the store with the Unknown sentinel; the next run will
		// pick the petition up once extraction works.
		res.Stats.SourceErrors++
		e.logger.Warn("new petition has unknown status, skipping", "id", id)
		return false, nil
	}

	p := &store.Petition{
		Source:     petition.SourcePresident,
		ExternalID: id,
		Number:     rec.Number,
		Title:      rec.Title,
		RawDate:    rec.RawDate,
		Date:       rec.Date,
		Status:     rec.Status,
		Votes:      rec.Votes,
		URL:        rec.URL,
		HasAnswer:  rec.HasAnswer,
	}
	if rec.Author != "" {
		p.Author = &rec.Author
	}
	if rec.TextLength > 0 {
		textLength := rec.TextLength
		p.TextLength = &textLength
	}
	if err := e.store.Insert(ctx, p); err != nil {
		return false, err
	}
	if err := e.store.UpsertHistory(ctx, id, petition.SourcePresident, res.Date, rec.Votes); err != nil {
		return false, err
	}

	res.Stats.PresidentNew++
	// A new record's appearance counts as growth for trending purposes.
	res.Growth = append(res.Growth, petition.GrowthEntry{
		Title: rec.Title, Delta: rec.Votes, Total: rec.Votes, URL: rec.URL,
	})
	e.logger.Info("discovered new petition", "id", id, "votes", rec.Votes)
	return true, nil
}
