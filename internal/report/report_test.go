package report_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"uicheck/internal/report"
	"uicheck/internal/runner"
	"uicheck/internal/store"
	"uicheck/internal/suite"
)

func failedRun() *runner.Result {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &runner.Result{
		ID:         "0f8e2c1a-5b7d-4c3e-9a10-1b2c3d4e5f60",
		Scenario:   "picking-list",
		State:      runner.Failed,
		FailedStep: 2,
		Error:      `step=2 label=review_page condition="gridcell PP2448IO/C visible": assertion timeout`,
		StartedAt:  start,
		FinishedAt: start.Add(31 * time.Second),
		Steps: []runner.StepResult{
			{Index: 1, Label: "upload_page", Status: runner.StepPassed, Elapsed: 850 * time.Millisecond, Artifact: "verification/01_upload_page.png"},
			{Index: 2, Label: "review_page", Status: runner.StepFailed, Elapsed: 30 * time.Second, Condition: "gridcell PP2448IO/C visible"},
			{Index: 3, Label: "details_page", Status: runner.StepSkipped},
		},
	}
}

func TestRun_ASCII(t *testing.T) {
	out := report.Run(failedRun(), report.ASCII)
	for _, want := range []string{
		"picking-list (failed)",
		"upload_page",
		"verification/01_upload_page.png",
		"✗ failed",
		"unmet: gridcell PP2448IO/C visible",
		"- skipped",
		"31.0s",
		`condition="gridcell PP2448IO/C visible"`,
		"───",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRun_FailureKind(t *testing.T) {
	res := failedRun()
	res.Failure = &runner.VerificationFailure{Step: 2, Label: "review_page", Condition: "gridcell PP2448IO/C visible", Kind: runner.ErrAssertionTimeout}
	out := report.Run(res, report.ASCII)
	if !strings.Contains(out, "Assertion timeout (assertion_timeout) at Review page") {
		t.Errorf("missing failure kind in:\n%s", out)
	}
}

func TestRun_Markdown(t *testing.T) {
	out := report.Run(failedRun(), report.Markdown)
	if !strings.Contains(out, "| # |") && !strings.Contains(out, "| # ") {
		t.Errorf("expected markdown header:\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator:\n%s", out)
	}
}

func TestSuite(t *testing.T) {
	ok := failedRun()
	ok.State, ok.FailedStep, ok.Error = runner.Completed, 0, ""
	for i := range ok.Steps {
		ok.Steps[i].Status = runner.StepPassed
	}
	outcomes := []suite.Outcome{
		{Scenario: "good", ArtifactDir: "verification/good", Result: ok},
		{Scenario: "bad", ArtifactDir: "verification/bad", Result: failedRun(), Err: errors.New("boom")},
		{Scenario: "no-page", ArtifactDir: "verification/no-page", Err: runner.ErrResourceUnavailable},
	}
	out := report.Suite(outcomes, report.ASCII)
	for _, want := range []string{"1/3 passed", "✓✓✓", "✓✗-", "not_started", "resource unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestHistory(t *testing.T) {
	out := report.History([]*runner.Result{failedRun()}, report.ASCII)
	for _, want := range []string{"0f8e2c1a", "picking-list", "failed", "2 gridcell PP2448IO/C visible"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0f8e2c1a-5b7d") {
		t.Errorf("run id should be shortened:\n%s", out)
	}
}

func TestStability(t *testing.T) {
	pass := []runner.StepStatus{runner.StepPassed, runner.StepPassed}
	fail := []runner.StepStatus{runner.StepPassed, runner.StepFailed}
	tests := []struct {
		outcomes []store.RunOutcome
		want     string
	}{
		{nil, "no runs recorded"},
		{[]store.RunOutcome{{Steps: pass}, {Steps: pass}}, "identical"},
		{[]store.RunOutcome{{Steps: pass}, {Steps: fail}}, "differ"},
	}
	for _, tt := range tests {
		if got := report.Stability("picking-list", tt.outcomes); !strings.Contains(got, tt.want) {
			t.Errorf("Stability = %q, want it to contain %q", got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    report.Mode
		wantErr bool
	}{
		{"", report.ASCII, false},
		{"ascii", report.ASCII, false},
		{"Markdown", report.Markdown, false},
		{"md", report.Markdown, false},
		{"html", report.ASCII, true},
	}
	for _, tt := range tests {
		got, err := report.ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{850 * time.Millisecond, "850ms"},
		{2300 * time.Millisecond, "2.3s"},
		{59 * time.Second, "59.0s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tc := range tests {
		if got := report.FmtDuration(tc.in); got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abcdef", 3, "abc"},
		{"Überprüfung", 6, "Übe..."},
	}
	for _, tc := range tests {
		if got := report.Truncate(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
