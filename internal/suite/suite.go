// Package suite runs several scenarios concurrently, each on its own page.
package suite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"uicheck/internal/artifact"
	"uicheck/internal/logging"
	"uicheck/internal/runner"
	"uicheck/internal/scenario"

	"golang.org/x/sync/errgroup"
)

// PageOpener hands out a fresh page per scenario run.
type PageOpener interface {
	OpenPage(ctx context.Context) (runner.Page, error)
}

// Options configures a suite run.
type Options struct {
	// Parallel caps concurrent scenario runs; <= 0 means 1.
	Parallel int
	// OutDir receives screenshots. With more than one scenario each one
	// writes to OutDir/<scenario-name>.
	OutDir string
	// Runner options shared by every run (observers, poll interval).
	// Artifacts are always set per run.
	Runner []runner.Option
}

// Outcome is the result of one scenario in the suite.
type Outcome struct {
	Index       int
	Scenario    string
	ArtifactDir string
	// Result is nil only when no page could be opened.
	Result *runner.Result
	Err    error
}

// Passed reports whether the scenario completed.
func (o Outcome) Passed() bool {
	return o.Err == nil && o.Result != nil && o.Result.State == runner.Completed
}

// Run executes every scenario and returns outcomes in input order. A
// failing scenario does not cancel the others.
func Run(ctx context.Context, opener PageOpener, scenarios []*scenario.Scenario, opts Options) []Outcome {
	logger := logging.New("suite")
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	outcomes := make([]Outcome, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	logger.Info("suite started", "scenarios", len(scenarios), "parallel", parallel)

	seen := make(map[string]bool, len(scenarios))
	for i, sc := range scenarios {
		dir := opts.OutDir
		if len(scenarios) > 1 {
			name := DirName(sc.Name, i)
			if seen[name] {
				name = fmt.Sprintf("%s-%d", name, i+1)
			}
			seen[name] = true
			dir = filepath.Join(opts.OutDir, name)
		}
		outcomes[i] = Outcome{Index: i, Scenario: sc.Name, ArtifactDir: dir}
		g.Go(func() error {
			res, err := runOne(gctx, opener, sc, dir, opts.Runner)
			outcomes[i].Result = res
			outcomes[i].Err = err
			if err != nil {
				logger.Warn("scenario failed", "scenario", sc.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait() // errors captured in Outcome.Err

	logger.Info("suite finished", "passed", len(scenarios)-len(Failed(outcomes)), "failed", len(Failed(outcomes)))
	return outcomes
}

func runOne(ctx context.Context, opener PageOpener, sc *scenario.Scenario, dir string, base []runner.Option) (*runner.Result, error) {
	artifacts := artifact.NewDir(dir)
	if err := artifacts.Clear(); err != nil {
		return nil, fmt.Errorf("%w: %w", runner.ErrResourceUnavailable, err)
	}
	page, err := opener.OpenPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open page: %w", runner.ErrResourceUnavailable, err)
	}
	opts := append(append([]runner.Option(nil), base...), runner.WithArtifacts(artifacts))
	return runner.New(opts...).Run(ctx, sc, page)
}

// Failed returns the outcomes that did not complete.
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if !o.Passed() {
			out = append(out, o)
		}
	}
	return out
}

// Err joins the failures of a suite, or returns nil when every scenario
// completed.
func Err(outcomes []Outcome) error {
	var errs []error
	for _, o := range Failed(outcomes) {
		err := o.Err
		if err == nil {
			err = fmt.Errorf("state %s", o.Result.State)
		}
		errs = append(errs, fmt.Errorf("scenario %s: %w", o.Scenario, err))
	}
	return errors.Join(errs...)
}

// DirName turns a scenario name into a single safe path element. i is the
// scenario's position, used when nothing usable is left of the name.
func DirName(name string, i int) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if clean == "" || clean == "." || clean == ".." {
		clean = fmt.Sprintf("scenario-%d", i+1)
	}
	return clean
}
