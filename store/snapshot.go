package store

import (
	"context"
	"fmt"
)

// Snapshot is a handle to the shadow copies taken before a sync run.
// The guard holds it across the run and either restores or discards it.
type Snapshot struct {
	// live table → shadow table
	tables map[string]string
}

var snapshotTables = map[string]string{
	"petitions":   "petitions_backup",
	"daily_stats": "daily_stats_backup",
}

// TakeSnapshot copies the petitions and daily_stats tables into shadow
// tables. Any stale shadow from a crashed earlier run is dropped first.
// This is coarse whole-table backup: O(table size) per run regardless of how
// much the run actually changes.
func (s *Store) TakeSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: snapshot begin: %w", err)
	}
	defer tx.Rollback()

	for live, shadow := range snapshotTables {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+shadow); err != nil {
			return nil, fmt.Errorf("store: snapshot drop stale %s: %w", shadow, err)
		}
		if _, err := tx.ExecContext(ctx, `CREATE TABLE `+shadow+` AS SELECT * FROM `+live); err != nil {
			return nil, fmt.Errorf("store: snapshot %s: %w", live, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: snapshot commit: %w", err)
	}
	return &Snapshot{tables: snapshotTables}, nil
}

// Restore puts the snapshotted contents back and discards the shadows, all in
// one transaction. The live tables are swapped by content rather than by
// rename so their declared schema and indexes survive the rollback; the
// result is still byte-for-byte the pre-run state.
func (s *Store) Restore(ctx context.Context, snap *Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: restore begin: %w", err)
	}
	defer tx.Rollback()

	for live, shadow := range snap.tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+live); err != nil {
			return fmt.Errorf("store: restore clear %s: %w", live, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+live+` SELECT * FROM `+shadow); err != nil {
			return fmt.Errorf("store: restore copy %s: %w", live, err)
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE `+shadow); err != nil {
			return fmt.Errorf("store: restore drop %s: %w", shadow, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: restore commit: %w", err)
	}
	return nil
}

// Discard drops the shadow tables after a successful run.
func (s *Store) Discard(ctx context.Context, snap *Snapshot) error {
	for _, shadow := range snap.tables {
		if _, err := s.DB.ExecContext(ctx, `DROP TABLE IF EXISTS `+shadow); err != nil {
			return fmt.Errorf("store: discard %s: %w", shadow, err)
		}
	}
	return nil
}
