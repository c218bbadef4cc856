package engine

import (
	"context"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// Preflight checks that the extractor still matches the live site before any
// mutation, by re-fetching a small sample of marker records the store already
// knows: the most-signed active petitions, a few random archived ones, and an
// answered one. Isolated failures are background noise and become warnings; a
// majority failing means the extractor is broken, and the run must not start.
func (e *Engine) Preflight(ctx context.Context) *ValidationResult {
	result := NewValidationResult()

	markers, err := e.sampleMarkers(ctx)
	if err != nil {
		result.AddError("pre-flight: sampling markers: %v", err)
		return result
	}
	if len(markers) == 0 {
		// Bootstrap: an empty store has nothing to sanity-check against.
		result.AddWarning("pre-flight: no marker petitions available, skipping extractor check")
		return result
	}

	required := e.config.Validation.MinPass
	if required > len(markers) {
		required = len(markers)
	}

	failed := 0
	for i, m := range markers {
		if reason := e.checkMarker(ctx, &m); reason != "" {
			result.AddWarning("marker %s: %s", m.ExternalID, reason)
			failed++
		} else {
			e.logger.Debug("marker ok", "id", m.ExternalID, "votes", m.Votes)
		}
		e.politeness(i)
	}

	passed := len(markers) - failed
	if passed < required {
		result.AddError("pre-flight: only %d of %d markers passed (need %d)",
			passed, len(markers), required)
	}
	return result
}

// checkMarker re-fetches one marker and returns "" when it passes, or the
// failure reason.
func (e *Engine) checkMarker(ctx context.Context, m *store.Petition) string {
	rec, err := e.president.Detail(ctx, m.ExternalID)
	if err != nil {
		return "fetch failed: " + err.Error()
	}
	if rec.Status == petition.StatusUnknown {
		return "status extracted as unknown"
	}
	// Signatures don't shrink; anything beyond the tolerance means the
	// extractor is reading the wrong element.
	floor := float64(m.Votes) * (1 - e.config.Validation.VoteDropTolerance)
	if float64(rec.Votes) < floor {
		return "votes dropped below tolerance"
	}
	if rec.TextLength == 0 {
		return "extracted text is empty"
	}
	return ""
}

// sampleMarkers draws the pre-flight sample from the store.
func (e *Engine) sampleMarkers(ctx context.Context) ([]store.Petition, error) {
	v := e.config.Validation

	markers, err := e.store.TopActiveByVotes(ctx, petition.SourcePresident, v.TopMarkers)
	if err != nil {
		return nil, err
	}
	archived, err := e.store.RandomByStatus(ctx, petition.SourcePresident, petition.StatusArchived, v.RandomArchived)
	if err != nil {
		return nil, err
	}
	answered, err := e.store.RandomByStatus(ctx, petition.SourcePresident, petition.StatusAnswered, v.AnsweredMarkers)
	if err != nil {
		return nil, err
	}
	markers = append(markers, archived...)
	markers = append(markers, answered...)
	return markers, nil
}

// PostSync asserts the store-wide invariants after mutation, before commit.
// Any breach is a hard failure that rolls the whole run back.
func (e *Engine) PostSync(ctx context.Context, stats *RunStats) *ValidationResult {
	result := NewValidationResult()
	v := e.config.Validation

	unknown, err := e.store.CountStatus(ctx, petition.StatusUnknown)
	if err != nil {
		result.AddError("post-sync: counting unknown statuses: %v", err)
		return result
	}
	if unknown > 0 {
		result.AddError("found %d petitions with status=unknown", unknown)
	}

	zeroVotes, err := e.store.CountActiveZeroVotes(ctx)
	if err != nil {
		result.AddError("post-sync: counting zero-vote actives: %v", err)
		return result
	}
	if zeroVotes > 0 {
		result.AddError("found %d active petitions with votes=0", zeroVotes)
	}

	// The rate covers reconcile only: SoftErrors and Checked are both
	// reconcile tallies. Discovery/bulk failures (SourceErrors) stay out, so
	// one source being down cannot roll back the other source's updates.
	if stats.Checked > 0 {
		rate := float64(stats.SoftErrors) / float64(stats.Checked)
		switch {
		case rate > v.MaxErrorRate:
			result.AddError("error rate too high: %.1f%% of %d checked", rate*100, stats.Checked)
		case rate > v.WarnErrorRate:
			result.AddWarning("error rate elevated: %.1f%% of %d checked", rate*100, stats.Checked)
		}
	}

	if stats.VoteDelta < v.MinVoteDelta {
		result.AddError("suspicious vote delta: %d (floor %d)", stats.VoteDelta, v.MinVoteDelta)
	}

	return result
}
