package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"uicheck/internal/runner"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func feed(r *Recorder, events ...runner.Event) {
	for _, e := range events {
		r.OnEvent(e)
	}
}

func failedRun(scenario string) []runner.Event {
	f := &runner.VerificationFailure{Step: 2, Label: "review_page", Condition: "gridcell PP2448IO/C visible", Kind: runner.ErrAssertionTimeout}
	return []runner.Event{
		{Type: runner.EventRunStart, Scenario: scenario},
		{Type: runner.EventConditionMet, Scenario: scenario, Step: 1, Elapsed: 200 * time.Millisecond},
		{Type: runner.EventStepPassed, Scenario: scenario, Step: 1},
		{Type: runner.EventStepFailed, Scenario: scenario, Step: 2, Error: f},
		{Type: runner.EventRunFailed, Scenario: scenario, Elapsed: 31 * time.Second, Error: f},
	}
}

func completedRun(scenario string) []runner.Event {
	var out []runner.Event
	for i := 1; i <= 3; i++ {
		out = append(out,
			runner.Event{Type: runner.EventConditionMet, Scenario: scenario, Step: i, Elapsed: 50 * time.Millisecond},
			runner.Event{Type: runner.EventStepPassed, Scenario: scenario, Step: i},
		)
	}
	return append(out, runner.Event{Type: runner.EventRunComplete, Scenario: scenario, Elapsed: 3 * time.Second})
}

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()
	feed(r, completedRun("picking-list")...)
	feed(r, failedRun("picking-list")...)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"passed steps", testutil.ToFloat64(r.steps.WithLabelValues("picking-list", "passed")), 4},
		{"failed steps", testutil.ToFloat64(r.steps.WithLabelValues("picking-list", "failed")), 1},
		{"completed runs", testutil.ToFloat64(r.runs.WithLabelValues("picking-list", "completed")), 1},
		{"failed runs", testutil.ToFloat64(r.runs.WithLabelValues("picking-list", "failed")), 1},
		{"timeouts", testutil.ToFloat64(r.failures.WithLabelValues("picking-list", "assertion_timeout")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(r.conditionWait); n != 1 {
		t.Errorf("condition wait series = %d, want 1", n)
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	feed(r, completedRun("picking-list")...)

	path := filepath.Join(t.TempDir(), "textfile", "uicheck.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`uicheck_runs_total{scenario="picking-list",state="completed"} 1`,
		`uicheck_steps_total{scenario="picking-list",status="passed"} 3`,
		`uicheck_condition_wait_seconds_count{scenario="picking-list"} 3`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	feed(r, failedRun("picking-list")...)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `uicheck_failures_total{kind="assertion_timeout",scenario="picking-list"} 1`) {
		t.Errorf("unexpected exposition:\n%s", body)
	}
}

func TestRecorder_UnknownErrorKind(t *testing.T) {
	r := NewRecorder()
	r.OnEvent(runner.Event{Type: runner.EventRunFailed, Scenario: "x", Error: errors.New("boom")})
	if got := testutil.ToFloat64(r.failures.WithLabelValues("x", "error")); got != 1 {
		t.Errorf("failures{kind=error} = %v, want 1", got)
	}
}
