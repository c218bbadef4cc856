package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/petwatch/petition"
)

// UpsertHistory records one vote snapshot for (petition, source, date).
// Re-running the same day overwrites that day's row: last write wins.
func (s *Store) UpsertHistory(ctx context.Context, petitionID string, source petition.Source, date string, votes int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO votes_history (petition_id, source, date, votes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (petition_id, source, date) DO UPDATE SET votes = excluded.votes`,
		petitionID, source, date, votes)
	if err != nil {
		return fmt.Errorf("store: upsert history %s/%s@%s: %w", source, petitionID, date, err)
	}
	return nil
}

// HistoryVotes returns the recorded snapshot for one (petition, source, date),
// or -1 when none exists.
func (s *Store) HistoryVotes(ctx context.Context, petitionID string, source petition.Source, date string) (int, error) {
	var votes int
	err := s.DB.QueryRowContext(ctx, `
		SELECT votes FROM votes_history
		WHERE petition_id = ? AND source = ? AND date = ?`,
		petitionID, source, date).Scan(&votes)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("store: history votes %s/%s@%s: %w", source, petitionID, date, err)
	}
	return votes, nil
}

// HistoryCount returns the total number of history rows for a source.
func (s *Store) HistoryCount(ctx context.Context, source petition.Source) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes_history WHERE source = ?`, source).Scan(&n)
	return n, err
}

// DailyDeltas derives a source's per-day vote movement by differencing the
// summed votes of consecutive tracked dates. The first tracked date has no
// previous day, so its delta is 0; a meaningful series needs at least two
// distinct dates of history.
func (s *Store) DailyDeltas(ctx context.Context, source petition.Source) ([]DailyDelta, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT date, SUM(votes) FROM votes_history
		WHERE source = ? GROUP BY date ORDER BY date`, source)
	if err != nil {
		return nil, fmt.Errorf("store: daily deltas %s: %w", source, err)
	}
	defer rows.Close()

	var out []DailyDelta
	prev := -1
	for rows.Next() {
		var d DailyDelta
		if err := rows.Scan(&d.Date, &d.Votes); err != nil {
			return nil, err
		}
		if prev >= 0 {
			d.Delta = d.Votes - prev
		}
		prev = d.Votes
		out = append(out, d)
	}
	return out, rows.Err()
}
