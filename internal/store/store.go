// Package store keeps run history in SQLite.
package store

import (
	"context"
	"slices"

	"uicheck/internal/runner"
)

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent dir (.uicheck).
const DefaultDBPath = ".uicheck/runs.db"

// RunOutcome is the per-step status sequence of one stored run.
type RunOutcome struct {
	RunID string
	State runner.State
	Steps []runner.StepStatus
}

// Store is the persistence facade for run history.
type Store interface {
	SaveRun(ctx context.Context, res *runner.Result) error
	// GetRun returns nil, nil when no run has the id.
	GetRun(ctx context.Context, id string) (*runner.Result, error)
	// ListRuns returns runs newest first; scenario "" matches all, limit
	// <= 0 means no limit.
	ListRuns(ctx context.Context, scenario string, limit int) ([]*runner.Result, error)
	Outcomes(ctx context.Context, scenario string, limit int) ([]RunOutcome, error)
	Close() error
}

// Consistent reports whether every run produced the same step outcomes.
func Consistent(outcomes []RunOutcome) bool {
	for i := 1; i < len(outcomes); i++ {
		if !slices.Equal(outcomes[0].Steps, outcomes[i].Steps) {
			return false
		}
	}
	return true
}
