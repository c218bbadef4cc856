package engine

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/petwatch/petition"
)

// RunState is the transaction guard's state machine position.
type RunState string

const (
	StateInit         RunState = "init"
	StatePreflight    RunState = "preflight"
	StateBackup       RunState = "backup"
	StateSyncing      RunState = "syncing"
	StatePostValidate RunState = "postvalidate"
	StateCleanup      RunState = "cleanup"
	StateDone         RunState = "done"
	StateAborted      RunState = "aborted"
	StateRolledBack   RunState = "rolled_back"
)

// RunStats tallies one run. Soft errors are per-record reconcile failures
// that do not abort the run by themselves; only their rate over Checked can.
// Discovery and bulk failures are tallied apart, outside that rate: those
// paths skip work they cannot do, they never fail the run.
type RunStats struct {
	Checked       int `json:"checked"`        // active records reconciled
	Updated       int `json:"updated"`        // records written by the reconciler
	SoftErrors    int `json:"soft_errors"`    // reconcile skips, stale scrapes, unknown statuses
	SourceErrors  int `json:"source_errors"`  // discovery/bulk fetch and parse failures
	PresidentNew  int `json:"president_new"`  // records discovery inserted
	CabinetNew    int `json:"cabinet_new"`    // records bulk sync inserted
	VoteDelta     int `json:"vote_delta"`     // summed vote movement this run
	StatusChanges int `json:"status_changes"` // transitions observed this run
}

// RunResult is everything one run produced, whatever its outcome.
type RunResult struct {
	RunID         string
	Date          string // calendar date of the run, YYYY-MM-DD
	State         RunState
	Stats         RunStats
	Preflight     *ValidationResult
	PostSync      *ValidationResult
	Growth        []petition.GrowthEntry
	StatusChanges []petition.StatusChange
}

// ValidationResult collects a validation gate's findings. It is transient:
// produced and consumed within a single run, never persisted.
type ValidationResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
}

// NewValidationResult returns a passing result with no findings.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Passed: true}
}

// AddError records a finding and fails the result.
func (r *ValidationResult) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Passed = false
}

// AddWarning records a finding without failing the result.
func (r *ValidationResult) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Summary renders the result for logs and failure reports.
func (r *ValidationResult) Summary() string {
	var b strings.Builder
	if r.Passed {
		b.WriteString("PASSED")
	} else {
		b.WriteString("FAILED")
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nerrors (%d):", len(r.Errors))
		for _, e := range r.Errors {
			b.WriteString("\n  - " + e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\nwarnings (%d):", len(r.Warnings))
		for _, w := range r.Warnings {
			b.WriteString("\n  - " + w)
		}
	}
	return b.String()
}
