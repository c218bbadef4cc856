package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// RunOptions are the per-run switches from the CLI surface.
type RunOptions struct {
	DryRun        bool // pre-flight only, no mutation
	SkipPreflight bool // bypass the pre-flight gate
	Full          bool // walk every listing page, ignoring the smart stop
	StartID       int  // lower bound of the reconcile identifier range, 0 = unbounded
	EndID         int  // upper bound, 0 = unbounded
}

// Run executes one guarded synchronization run:
//
//	INIT → PREFLIGHT → (fail → ABORTED)
//	PREFLIGHT(pass) → BACKUP → SYNCING → POSTVALIDATE
//	  → (fail → ROLLED_BACK)
//	  → (pass → CLEANUP → DONE)
//
// A panic during SYNCING/POSTVALIDATE also routes to ROLLED_BACK. On any
// non-nil error the returned result still describes how far the run got.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	res := &RunResult{
		RunID: e.newRunID(),
		Date:  e.now().UTC().Format("2006-01-02"),
		State: StateInit,
	}
	log := e.logger.With("run_id", res.RunID, "date", res.Date)

	res.State = StatePreflight
	if opts.SkipPreflight {
		log.Warn("pre-flight gate bypassed")
	} else {
		pf := e.Preflight(ctx)
		res.Preflight = pf
		if !pf.Passed {
			res.State = StateAborted
			log.Error("pre-flight failed, aborting before any mutation", "summary", pf.Summary())
			return res, ErrPreflightFailed
		}
		for _, w := range pf.Warnings {
			log.Warn("pre-flight warning", "warning", w)
		}
	}

	if opts.DryRun {
		res.State = StateDone
		log.Info("dry run complete, no changes made")
		return res, nil
	}

	res.State = StateBackup
	snap, err := e.store.TakeSnapshot(ctx)
	if err != nil {
		res.State = StateAborted
		return res, fmt.Errorf("engine: backup: %w", err)
	}
	log.Info("backup created")

	res.State = StateSyncing
	err = e.guarded(ctx, res, opts, log)
	if err != nil {
		if restoreErr := e.store.Restore(ctx, snap); restoreErr != nil {
			log.Error("rollback failed", "error", restoreErr)
			return res, fmt.Errorf("engine: rollback after %v: %w", err, restoreErr)
		}
		res.State = StateRolledBack
		log.Warn("run rolled back, store restored to pre-run state", "cause", err)
		return res, err
	}

	res.State = StateCleanup
	if err := e.store.Discard(ctx, snap); err != nil {
		// The run itself committed; a leftover shadow is an annoyance,
		// not a correctness problem.
		log.Warn("cleanup failed, shadow tables left behind", "error", err)
	}

	res.State = StateDone
	log.Info("run complete",
		"checked", res.Stats.Checked,
		"updated", res.Stats.Updated,
		"president_new", res.Stats.PresidentNew,
		"cabinet_new", res.Stats.CabinetNew,
		"vote_delta", res.Stats.VoteDelta,
		"soft_errors", res.Stats.SoftErrors,
		"source_errors", res.Stats.SourceErrors,
		"status_changes", res.Stats.StatusChanges)
	return res, nil
}

// guarded covers everything between backup and commit. Panics become errors
// so the caller always rolls back.
func (e *Engine) guarded(ctx context.Context, res *RunResult, opts RunOptions, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: panic during sync: %v", r)
		}
	}()

	if e.president != nil {
		if err := e.reconcile(ctx, res, opts); err != nil {
			return err
		}
	}
	if e.lister != nil && e.president != nil {
		if err := e.discover(ctx, res, opts); err != nil {
			return err
		}
	}
	if e.cabinet != nil {
		if err := e.bulkSync(ctx, res); err != nil {
			return err
		}
	}

	res.State = StatePostValidate
	ps := e.PostSync(ctx, &res.Stats)
	res.PostSync = ps
	if !ps.Passed {
		return fmt.Errorf("%w: %s", ErrPostSyncFailed, ps.Summary())
	}
	for _, w := range ps.Warnings {
		log.Warn("post-sync warning", "warning", w)
	}

	return e.writeDailyStats(ctx, res)
}

func (e *Engine) writeDailyStats(ctx context.Context, res *RunResult) error {
	transitions := res.StatusChanges
	if transitions == nil {
		transitions = []petition.StatusChange{}
	}
	changes, err := json.Marshal(transitions)
	if err != nil {
		return fmt.Errorf("engine: marshal status changes: %w", err)
	}
	return e.store.UpsertDailyStats(ctx, store.DailyStats{
		Date:          res.Date,
		PresidentNew:  res.Stats.PresidentNew,
		CabinetNew:    res.Stats.CabinetNew,
		VotesDelta:    res.Stats.VoteDelta,
		StatusChanges: string(changes),
	})
}
