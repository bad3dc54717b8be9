package runner

import (
	"fmt"
	"time"

	"uicheck/internal/scenario"
)

// StepStatus is the outcome of one step within a run.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult records what happened at one checkpoint.
type StepResult struct {
	Index     int           `json:"index"`
	Label     string        `json:"label"`
	Status    StepStatus    `json:"status"`
	Elapsed   time.Duration `json:"elapsed"`
	Artifact  string        `json:"artifact,omitempty"`
	Condition string        `json:"condition,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Result is the record of one scenario run. It is returned on success and
// on failure.
type Result struct {
	ID         string               `json:"id"`
	Scenario   string               `json:"scenario"`
	BaseURL    string               `json:"base_url,omitempty"`
	State      State                `json:"state"`
	FailedStep int                  `json:"failed_step,omitempty"`
	Failure    *VerificationFailure `json:"-"`
	Error      string               `json:"error,omitempty"`
	Steps      []StepResult         `json:"steps"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

func newResult(id string, sc *scenario.Scenario) *Result {
	r := &Result{
		ID:        id,
		Scenario:  sc.Name,
		BaseURL:   sc.BaseURL,
		Steps:     make([]StepResult, len(sc.Steps)),
		StartedAt: time.Now().UTC(),
	}
	for i, st := range sc.Steps {
		r.Steps[i] = StepResult{Index: i + 1, Label: st.Label, Status: StepPending}
	}
	return r
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcomes returns the per-step statuses in order; two runs of the same
// scenario against the same application should produce equal outcomes.
func (r *Result) Outcomes() []StepStatus {
	out := make([]StepStatus, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Status
	}
	return out
}

// Artifacts lists the screenshots written during the run, in step order.
func (r *Result) Artifacts() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Artifact != "" {
			out = append(out, s.Artifact)
		}
	}
	return out
}

// Summary is a one-line description for logs and CLI output.
func (r *Result) Summary() string {
	switch r.State {
	case Completed:
		return fmt.Sprintf("%s: completed %d/%d steps in %s", r.Scenario, len(r.Steps), len(r.Steps), r.Duration().Round(time.Millisecond))
	case Failed:
		return fmt.Sprintf("%s: failed at step %d: %s", r.Scenario, r.FailedStep, r.Error)
	}
	return fmt.Sprintf("%s: %s", r.Scenario, r.State)
}
