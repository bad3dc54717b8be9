package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"uicheck/internal/browser"
	"uicheck/internal/metrics"
	"uicheck/internal/runner"
	"uicheck/internal/runner/runnertest"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const appURL = "http://localhost:5100"

type fakeBrowser struct {
	*runnertest.Opener
	closed int
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

// useFakeBrowser swaps Chrome for the simulated picking-list application.
func useFakeBrowser(t *testing.T) *fakeBrowser {
	t.Helper()
	fb := &fakeBrowser{Opener: &runnertest.Opener{New: func() *runnertest.FakePage {
		return runnertest.PickingListApp(appURL)
	}}}
	orig := launchBrowser
	launchBrowser = func(context.Context, browser.Options) (pageSource, error) { return fb, nil }
	t.Cleanup(func() { launchBrowser = orig })
	return fb
}

// resetFlags restores flag defaults; cobra keeps parsed values on the
// package-level commands between executions. Slice flags are left alone.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if _, ok := f.Value.(pflag.SliceValue); ok {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeScenario writes the picking-list flow with a local sample file and
// short timeouts; gridcell is what the review page must show.
func writeScenario(t *testing.T, dir, gridcell string) string {
	t.Helper()
	sample := filepath.Join(dir, "15355234.pdf")
	if err := os.WriteFile(sample, []byte("%PDF-1.4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := fmt.Sprintf(`name: picking-list
base_url: http://unused.invalid
default_timeout: 300ms
steps:
  - label: upload_page
    action: {kind: navigate, url: /upload}
    expect: [{role: heading, name: Upload Picking List}]
    screenshot: true
  - label: review_page
    action: {kind: set-input, selector: "input[type=file]", files: [15355234.pdf]}
    expect:
      - {role: heading, name: "Review & Edit Picking List"}
      - {text: "Sales Order: 39053467"}
      - {role: gridcell, name: %q}
    screenshot: true
  - label: details_page
    action: {kind: click, target: {role: button, name: "Approve & Save"}}
    expect: [{role: heading, name: Picking List Details}]
    screenshot: true
`, gridcell)
	path := filepath.Join(dir, "picking-list.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_Completed(t *testing.T) {
	fb := useFakeBrowser(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "verification")
	db := filepath.Join(dir, "runs.db")
	metricsFile := filepath.Join(dir, "uicheck.prom")
	traceFile := filepath.Join(dir, "trace.json")

	stdout, err := execute(t, "run", writeScenario(t, dir, "PP2448IO/C"),
		"--base-url", appURL, "--out", out, "--db", db,
		"--metrics-textfile", metricsFile, "--trace-file", traceFile, "--report", "ascii")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stdout)
	}

	want := []string{"01_upload_page.png", "02_review_page.png", "03_details_page.png"}
	if diff := cmp.Diff(want, listDir(t, out)); diff != "" {
		t.Errorf("screenshots mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stdout, "picking-list (completed)") {
		t.Errorf("report missing:\n%s", stdout)
	}
	if fb.closed != 1 {
		t.Errorf("browser closed %d times", fb.closed)
	}
	if pages := fb.Pages(); len(pages) != 1 || pages[0].Closed() != 1 {
		t.Error("page should be opened and closed once")
	}

	metricsData, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(metricsData), `uicheck_runs_total{scenario="picking-list",state="completed"} 1`) {
		t.Errorf("metrics textfile:\n%s", metricsData)
	}
	traceData, err := os.ReadFile(traceFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(traceData), "run picking-list") {
		t.Errorf("trace file missing run span:\n%.300s", traceData)
	}

	hist, err := execute(t, "history", "--db", db, "--scenario", "picking-list")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"completed", "✓✓✓", "identical step outcomes"} {
		if !strings.Contains(hist, want) {
			t.Errorf("history missing %q:\n%s", want, hist)
		}
	}
}

func TestRun_GridcellMissing(t *testing.T) {
	fb := useFakeBrowser(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "verification")

	stdout, err := execute(t, "run", writeScenario(t, dir, "XX0000/Z"),
		"--base-url", appURL, "--out", out, "--no-history")
	if err == nil {
		t.Fatalf("expected failure\n%s", stdout)
	}
	for _, want := range []string{"picking-list", "step=2", `condition="gridcell XX0000/Z visible"`, "assertion timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if diff := cmp.Diff([]string{"01_upload_page.png"}, listDir(t, out)); diff != "" {
		t.Errorf("screenshots mismatch (-want +got):\n%s", diff)
	}
	for _, call := range fb.Pages()[0].Calls() {
		if strings.HasPrefix(call, "click") {
			t.Errorf("no click may run after step 2 fails, got %q", call)
		}
	}
}

func TestRun_UnreachableApp(t *testing.T) {
	useFakeBrowser(t)
	dir := t.TempDir()

	_, err := execute(t, "run", writeScenario(t, dir, "PP2448IO/C"),
		"--base-url", "http://localhost:1", "--out", filepath.Join(dir, "v"), "--no-history")
	if err == nil || !strings.Contains(err.Error(), "step=1") || !strings.Contains(err.Error(), "navigation failure") {
		t.Errorf("err = %v, want navigation failure at step 1", err)
	}
}

func TestRun_BrowserUnavailable(t *testing.T) {
	orig := launchBrowser
	launchBrowser = func(context.Context, browser.Options) (pageSource, error) {
		return nil, fmt.Errorf("chrome not found")
	}
	t.Cleanup(func() { launchBrowser = orig })

	dir := t.TempDir()
	_, err := execute(t, "run", writeScenario(t, dir, "PP2448IO/C"), "--out", filepath.Join(dir, "v"), "--no-history")
	if err == nil || !strings.Contains(err.Error(), "resource unavailable") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_BadReportFormat(t *testing.T) {
	useFakeBrowser(t)
	_, err := execute(t, "run", "--report", "html")
	if err == nil || !strings.Contains(err.Error(), "unknown report format") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeScenario(t, dir, "PP2448IO/C")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("steps:\n  - label: a\n    action: {kind: click}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "validate", good)
	if err != nil {
		t.Fatalf("validate good: %v", err)
	}
	if !strings.Contains(out, "ok (picking-list, 3 steps: upload_page, review_page, details_page)") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = execute(t, "validate", good, bad)
	if err == nil {
		t.Fatal("expected error for invalid file")
	}
	for _, want := range []string{"bad.yaml: invalid", "step 1 must be a navigate step", "click requires target"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"picking-list", "upload_page → review_page → details_page", "Navigate, Upload, Click"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHistory_Empty(t *testing.T) {
	out, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRoot_BadLogLevel(t *testing.T) {
	_, err := execute(t, "list", "--log-level", "loud")
	if err == nil || !strings.Contains(err.Error(), "unknown log level") {
		t.Errorf("err = %v", err)
	}
	if _, err := execute(t, "list", "--log-level", "info"); err != nil {
		t.Fatal(err)
	}
}

func TestServe_BrowserFlags(t *testing.T) {
	var got browser.Options
	orig := launchBrowser
	launchBrowser = func(_ context.Context, opts browser.Options) (pageSource, error) {
		got = opts
		return nil, fmt.Errorf("chrome not found")
	}
	t.Cleanup(func() { launchBrowser = orig })

	_, err := execute(t, "serve", "--chrome-path", "/opt/chrome/chrome", "--full-page", "--headless=false")
	if err == nil || !strings.Contains(err.Error(), "resource unavailable") {
		t.Fatalf("err = %v", err)
	}
	if got.ExecPath != "/opt/chrome/chrome" || !got.FullPage || got.Headless {
		t.Errorf("serve ignored its browser flags: %+v", got)
	}
}

func TestServeMetrics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := metrics.NewRecorder()
	rec.OnEvent(runner.Event{Type: runner.EventRunComplete, Scenario: "picking-list", Elapsed: time.Second})

	addr, err := serveMetrics(ctx, "127.0.0.1:0", rec)
	if err != nil {
		t.Fatalf("serveMetrics: %v", err)
	}
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `uicheck_runs_total{scenario="picking-list",state="completed"} 1`) {
		t.Errorf("metrics body:\n%s", body)
	}
}
