package report

import (
	"fmt"
	"strings"

	"uicheck/internal/display"
	"uicheck/internal/runner"
	"uicheck/internal/store"
	"uicheck/internal/suite"
)

const maxErrorWidth = 80

// Run renders the steps of one run.
func Run(res *runner.Result, m Mode) string {
	tb := NewTable(m)
	tb.Title(fmt.Sprintf("%s (%s)", res.Scenario, res.State))
	tb.Header("#", "Step", "Status", "Elapsed", "Artifact / Condition")
	tb.AlignRight(1, 4)
	for _, st := range res.Steps {
		detail := st.Artifact
		if st.Status == runner.StepFailed {
			detail = "unmet: " + st.Condition
		}
		tb.Row(st.Index, st.Label, StatusMark(st.Status)+" "+string(st.Status), FmtDuration(st.Elapsed), detail)
	}
	tb.Footer("", "", "", FmtDuration(res.Duration()), "")
	out := tb.String()
	if res.Failure != nil {
		out += "\n" + display.ErrorKindWithCode(runner.Kind(res.Failure)) + " at " + display.Label(res.Failure.Label)
	}
	if res.Error != "" {
		out += "\n" + res.Error
	}
	return out
}

// Suite renders one line per scenario of a suite run.
func Suite(outcomes []suite.Outcome, m Mode) string {
	tb := NewTable(m)
	tb.Header("Scenario", "State", "Steps", "Duration", "Artifacts", "Error")
	passed := 0
	for _, o := range outcomes {
		if o.Passed() {
			passed++
		}
		if o.Result == nil {
			tb.Row(o.Scenario, "not_started", "", "", o.ArtifactDir, Truncate(errString(o.Err), maxErrorWidth))
			continue
		}
		tb.Row(o.Scenario, o.Result.State, stepMarks(o.Result.Outcomes()), FmtDuration(o.Result.Duration()),
			o.ArtifactDir, Truncate(o.Result.Error, maxErrorWidth))
	}
	tb.Footer(fmt.Sprintf("%d/%d passed", passed, len(outcomes)), "", "", "", "", "")
	return tb.String()
}

// History renders stored runs, newest first.
func History(runs []*runner.Result, m Mode) string {
	tb := NewTable(m)
	tb.Header("Run", "Scenario", "Started", "State", "Steps", "Duration", "Failed At")
	for _, r := range runs {
		failedAt := ""
		if r.FailedStep > 0 && r.FailedStep <= len(r.Steps) {
			failedAt = fmt.Sprintf("%d %s", r.FailedStep, r.Steps[r.FailedStep-1].Condition)
		}
		tb.Row(shortID(r.ID), r.Scenario, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.State,
			stepMarks(r.Outcomes()), FmtDuration(r.Duration()), failedAt)
	}
	return tb.String()
}

// Stability summarises whether recent runs of a scenario agree.
func Stability(scenario string, outcomes []store.RunOutcome) string {
	if len(outcomes) == 0 {
		return fmt.Sprintf("%s: no runs recorded", scenario)
	}
	if store.Consistent(outcomes) {
		return fmt.Sprintf("%s: last %d runs produced identical step outcomes", scenario, len(outcomes))
	}
	return fmt.Sprintf("%s: step outcomes differ across the last %d runs", scenario, len(outcomes))
}

func stepMarks(ss []runner.StepStatus) string {
	var b strings.Builder
	for _, s := range ss {
		b.WriteString(StatusMark(s))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
