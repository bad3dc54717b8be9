package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"uicheck/internal/browser"
	"uicheck/internal/logging"
	"uicheck/internal/metrics"
	"uicheck/internal/report"
	"uicheck/internal/runner"
	"uicheck/internal/scenario"
	"uicheck/internal/scenario/catalog"
	"uicheck/internal/store"
	"uicheck/internal/suite"
	"uicheck/internal/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const baseURLEnv = "UICHECK_BASE_URL"

var runFlags struct {
	scenarios       []string
	baseURL         string
	outDir          string
	browser         browserFlags
	parallel        int
	dbPath          string
	noHistory       bool
	metricsTextfile string
	traceFile       string
	reportFormat    string
}

var runCmd = &cobra.Command{
	Use:   "run [scenario-file...]",
	Short: "Run scenarios against the application and save checkpoint screenshots",
	Long: `Run executes each scenario in Chrome. Scenario files (YAML or JSON) given as
arguments take precedence over built-in scenarios named with --scenario.

Every step performs its action, then waits for all of its post-conditions
to become visible. The first unmet condition fails the scenario; later
steps do not run. Screenshots of the checkpoints reached stay on disk.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runFlags.scenarios, "scenario", []string{catalog.Default}, "Built-in scenario name(s), see 'uicheck list'")
	f.StringVar(&runFlags.baseURL, "base-url", "", "Application base URL (default: $"+baseURLEnv+", then the scenario's)")
	f.StringVar(&runFlags.outDir, "out", "verification", "Screenshot directory")
	addBrowserFlags(f, &runFlags.browser)
	f.IntVar(&runFlags.parallel, "parallel", 1, "Scenarios run concurrently, each in its own tab")
	f.StringVar(&runFlags.dbPath, "db", store.DefaultDBPath, "Run history DB path")
	f.BoolVar(&runFlags.noHistory, "no-history", false, "Do not record runs")
	f.StringVar(&runFlags.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file (node-exporter textfile format)")
	f.StringVar(&runFlags.traceFile, "trace-file", "", "Write OpenTelemetry spans as JSON to this file")
	f.StringVar(&runFlags.reportFormat, "report", "ascii", "Result table format (ascii, markdown)")
}

// pageSource is a browser that hands out pages.
type pageSource interface {
	suite.PageOpener
	Close() error
}

// launchBrowser is replaced in tests.
var launchBrowser = func(ctx context.Context, opts browser.Options) (pageSource, error) {
	return browser.Launch(ctx, opts)
}

// browserFlags are the Chrome settings shared by run and serve.
type browserFlags struct {
	headless   bool
	remoteURL  string
	chromePath string
	fullPage   bool
}

func addBrowserFlags(f *pflag.FlagSet, bf *browserFlags) {
	f.BoolVar(&bf.headless, "headless", true, "Run Chrome without a window")
	f.StringVar(&bf.remoteURL, "remote-url", "", "Attach to a running Chrome DevTools endpoint instead of launching one")
	f.StringVar(&bf.chromePath, "chrome-path", "", "Chrome executable (default: discovered)")
	f.BoolVar(&bf.fullPage, "full-page", false, "Capture the whole page instead of the viewport")
}

func (bf browserFlags) options() browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = bf.headless
	opts.RemoteURL = bf.remoteURL
	opts.ExecPath = bf.chromePath
	opts.FullPage = bf.fullPage
	return opts
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := logging.New("cli")
	mode, err := report.ParseMode(runFlags.reportFormat)
	if err != nil {
		return err
	}
	scenarios, err := resolveScenarios(args, runFlags.scenarios)
	if err != nil {
		return err
	}
	if base := firstNonEmpty(runFlags.baseURL, os.Getenv(baseURLEnv)); base != "" {
		for _, sc := range scenarios {
			sc.BaseURL = base
		}
	}

	opts := []runner.Option{runner.WithObserver(&runner.LogObserver{Logger: logging.New("run")})}

	var recorder *metrics.Recorder
	if runFlags.metricsTextfile != "" {
		recorder = metrics.NewRecorder()
		opts = append(opts, runner.WithObserver(recorder))
	}

	if runFlags.traceFile != "" {
		f, err := os.Create(runFlags.traceFile)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer f.Close()
		tp, err := telemetry.NewProvider(f)
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(context.WithoutCancel(cmd.Context())); err != nil {
				logger.Warn("flush traces", "error", err)
			}
		}()
		opts = append(opts, runner.WithObserver(telemetry.NewTracer(tp)))
	}

	b, err := launchBrowser(cmd.Context(), runFlags.browser.options())
	if err != nil {
		return fmt.Errorf("%w: %w", runner.ErrResourceUnavailable, err)
	}
	defer b.Close()

	outcomes := suite.Run(cmd.Context(), b, scenarios, suite.Options{
		Parallel: runFlags.parallel,
		OutDir:   runFlags.outDir,
		Runner:   opts,
	})

	if !runFlags.noHistory {
		recordHistory(cmd.Context(), outcomes)
	}
	if recorder != nil {
		if err := recorder.WriteTextfile(runFlags.metricsTextfile); err != nil {
			logger.Warn("metrics not written", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	if len(outcomes) == 1 && outcomes[0].Result != nil {
		fmt.Fprintln(out, report.Run(outcomes[0].Result, mode))
	} else {
		fmt.Fprintln(out, report.Suite(outcomes, mode))
	}
	if abs, err := filepath.Abs(runFlags.outDir); err == nil {
		fmt.Fprintf(out, "Screenshots: %s\n", abs)
	}
	return suite.Err(outcomes)
}

// resolveScenarios loads scenario files, or the named built-in scenarios
// when no file is given.
func resolveScenarios(paths, names []string) ([]*scenario.Scenario, error) {
	var out []*scenario.Scenario
	if len(paths) > 0 {
		for _, p := range paths {
			sc, err := scenario.LoadFromPath(p)
			if err != nil {
				return nil, err
			}
			out = append(out, sc)
		}
		return out, nil
	}
	for _, name := range names {
		sc, err := catalog.Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenario given")
	}
	return out, nil
}

func recordHistory(ctx context.Context, outcomes []suite.Outcome) {
	logger := logging.New("cli")
	st, err := store.Open(runFlags.dbPath)
	if err != nil {
		logger.Warn("run history unavailable", "db", runFlags.dbPath, "error", err)
		return
	}
	defer st.Close()
	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		if err := st.SaveRun(ctx, o.Result); err != nil {
			logger.Warn("record run", "run", o.Result.ID, "error", err)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
