package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertDailyStats writes the aggregate row for one date. A rerun on the same
// calendar date overwrites the prior row.
func (s *Store) UpsertDailyStats(ctx context.Context, d DailyStats) error {
	if d.StatusChanges == "" {
		d.StatusChanges = "[]"
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO daily_stats (date, president_new, cabinet_new, total_votes_delta, status_changes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			president_new = excluded.president_new,
			cabinet_new = excluded.cabinet_new,
			total_votes_delta = excluded.total_votes_delta,
			status_changes = excluded.status_changes`,
		d.Date, d.PresidentNew, d.CabinetNew, d.VotesDelta, d.StatusChanges)
	if err != nil {
		return fmt.Errorf("store: upsert daily stats %s: %w", d.Date, err)
	}
	return nil
}

// GetDailyStats returns the aggregate row for one date, or nil when absent.
func (s *Store) GetDailyStats(ctx context.Context, date string) (*DailyStats, error) {
	var d DailyStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT date, president_new, cabinet_new, total_votes_delta, status_changes
		FROM daily_stats WHERE date = ?`, date).
		Scan(&d.Date, &d.PresidentNew, &d.CabinetNew, &d.VotesDelta, &d.StatusChanges)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get daily stats %s: %w", date, err)
	}
	return &d, nil
}

// ListDailyStats returns the most recent daily rows, newest first.
func (s *Store) ListDailyStats(ctx context.Context, limit int) ([]DailyStats, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT date, president_new, cabinet_new, total_votes_delta, status_changes
		FROM daily_stats ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list daily stats: %w", err)
	}
	defer rows.Close()

	var out []DailyStats
	for rows.Next() {
		var d DailyStats
		if err := rows.Scan(&d.Date, &d.PresidentNew, &d.CabinetNew, &d.VotesDelta, &d.StatusChanges); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
