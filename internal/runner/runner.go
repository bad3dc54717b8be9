// Package runner executes a scenario against one page: steps in declared
// order, each action followed by bounded waits for its post-conditions,
// stopping at the first condition that does not hold.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"uicheck/internal/logging"
	"uicheck/internal/scenario"

	"github.com/google/uuid"
)

// DefaultPollInterval is how often a pending post-condition is re-probed.
const DefaultPollInterval = 100 * time.Millisecond

// Runner drives scenarios. A Runner carries no per-run state and may be
// shared by concurrent runs, each with its own Page.
type Runner struct {
	observer  Observer
	artifacts ArtifactSink
	poll      time.Duration
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver attaches an observer; repeated calls fan out.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if r.observer == nil {
			r.observer = o
			return
		}
		r.observer = MultiObserver{r.observer, o}
	}
}

// WithArtifacts sets where checkpoint screenshots go. Without a sink no
// screenshots are taken.
func WithArtifacts(s ArtifactSink) Option { return func(r *Runner) { r.artifacts = s } }

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.poll = d
		}
	}
}

// WithIDFunc overrides run id generation.
func WithIDFunc(f func() string) Option { return func(r *Runner) { r.newID = f } }

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// New returns a Runner with the given options applied.
func New(opts ...Option) *Runner {
	r := &Runner{
		poll:  DefaultPollInterval,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = logging.New("runner")
	}
	return r
}

// Run executes sc on page and closes page before returning, on every path.
// The returned Result is always non-nil. A failed step yields a
// *VerificationFailure error and no later step's action runs.
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario, page Page) (*Result, error) {
	defer r.closePage(page)

	res := newResult(r.newID(), sc)
	if err := sc.Validate(); err != nil {
		res.FinishedAt = time.Now().UTC()
		res.Error = err.Error()
		return res, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	var m machine
	if err := m.start(len(sc.Steps)); err != nil {
		return res, err
	}
	res.State = Running
	r.emit(Event{Type: EventRunStart, RunID: res.ID, Scenario: sc.Name})

	for i, st := range sc.Steps {
		if i > 0 {
			if err := m.advance(); err != nil {
				return res, err
			}
		}
		n := i + 1
		sr := &res.Steps[i]
		r.emit(Event{Type: EventStepStart, RunID: res.ID, Scenario: sc.Name, Step: n, Label: st.Label, Action: describeAction(sc, st)})

		start := time.Now()
		f := r.runStep(ctx, res.ID, sc, page, n, st, sr)
		sr.Elapsed = time.Since(start)

		if f != nil {
			if err := m.fail(); err != nil {
				return res, err
			}
			sr.Status = StepFailed
			sr.Condition = f.Condition
			sr.Error = f.Error()
			for j := i + 1; j < len(res.Steps); j++ {
				res.Steps[j].Status = StepSkipped
			}
			res.State = Failed
			res.FailedStep = n
			res.Failure = f
			res.Error = f.Error()
			res.FinishedAt = time.Now().UTC()
			r.emit(Event{Type: EventStepFailed, RunID: res.ID, Scenario: sc.Name, Step: n, Label: st.Label,
				Condition: f.Condition, Elapsed: sr.Elapsed, Error: f})
			r.emit(Event{Type: EventRunFailed, RunID: res.ID, Scenario: sc.Name, Elapsed: res.Duration(), Error: f})
			return res, f
		}

		sr.Status = StepPassed
		r.emit(Event{Type: EventStepPassed, RunID: res.ID, Scenario: sc.Name, Step: n, Label: st.Label,
			Artifact: sr.Artifact, Elapsed: sr.Elapsed})
	}

	if err := m.complete(); err != nil {
		return res, err
	}
	res.State = Completed
	res.FinishedAt = time.Now().UTC()
	r.emit(Event{Type: EventRunComplete, RunID: res.ID, Scenario: sc.Name, Elapsed: res.Duration()})
	return res, nil
}

func (r *Runner) runStep(ctx context.Context, runID string, sc *scenario.Scenario, page Page, n int, st scenario.Step, sr *StepResult) *VerificationFailure {
	fail := func(cond string, kind, err error) *VerificationFailure {
		if ctx.Err() != nil && kind != ErrAborted {
			kind, err = ErrAborted, ctx.Err()
		}
		return &VerificationFailure{Step: n, Label: st.Label, Condition: cond, Kind: kind, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(describeAction(sc, st), ErrAborted, err)
	}
	if f := r.act(ctx, sc, page, st, fail); f != nil {
		return f
	}
	r.emit(Event{Type: EventActionDone, RunID: runID, Scenario: sc.Name, Step: n, Label: st.Label, Action: describeAction(sc, st)})

	for _, e := range st.Expect {
		waited, err := r.waitVisible(ctx, page, e.Locator, sc.Timeout(st, e))
		if err != nil {
			kind := ErrAssertionTimeout
			if st.Action.Kind == scenario.ActionNavigate {
				kind = ErrNavigation
			}
			return fail(e.Condition(), kind, err)
		}
		r.emit(Event{Type: EventConditionMet, RunID: runID, Scenario: sc.Name, Step: n, Label: st.Label,
			Condition: e.Condition(), Elapsed: waited})
	}

	if st.Settle > 0 {
		if err := sleep(ctx, st.Settle.Std()); err != nil {
			return fail("settle "+st.Settle.String(), ErrAborted, err)
		}
	}

	if st.Screenshot && r.artifacts != nil {
		png, err := page.Screenshot(ctx)
		if err != nil {
			return fail("screenshot "+st.Label, ErrAction, err)
		}
		path, err := r.artifacts.Save(n, st.Label, png)
		if err != nil {
			return fail("screenshot "+st.Label+" written", ErrResourceUnavailable, err)
		}
		sr.Artifact = path
		r.emit(Event{Type: EventCheckpoint, RunID: runID, Scenario: sc.Name, Step: n, Label: st.Label, Artifact: path})
	}
	return nil
}

type failFunc func(cond string, kind, err error) *VerificationFailure

func (r *Runner) act(ctx context.Context, sc *scenario.Scenario, page Page, st scenario.Step, fail failFunc) *VerificationFailure {
	a := st.Action
	switch a.Kind {
	case scenario.ActionNavigate:
		target := sc.ResolveURL(a.URL)
		if err := page.Navigate(ctx, target); err != nil {
			return fail("navigate "+target, ErrNavigation, err)
		}

	case scenario.ActionSetInput:
		files := make([]string, 0, len(a.Files))
		for _, f := range a.Files {
			abs, err := sc.ResolveFile(f)
			if err == nil {
				err = checkReadable(abs)
			}
			if err != nil {
				return fail("file "+f+" readable", ErrResourceUnavailable, err)
			}
			files = append(files, abs)
		}
		if err := page.SetInputFiles(ctx, a.Selector, files); err != nil {
			return fail("set-input "+a.Selector, ErrAction, err)
		}

	case scenario.ActionClick:
		target := *a.Target
		if _, err := r.waitVisible(ctx, page, target, sc.StepTimeout(st)); err != nil {
			return fail(target.Condition(), ErrAssertionTimeout, err)
		}
		if err := page.Click(ctx, target); err != nil {
			return fail("click "+target.String(), ErrAction, err)
		}

	default:
		return fail(string(a.Kind), ErrInvalidScenario, fmt.Errorf("unknown action kind %q", a.Kind))
	}
	return nil
}

// waitVisible re-probes loc until it is visible or timeout elapses. Probe
// errors count as "not yet"; the last one is reported on timeout.
func (r *Runner) waitVisible(ctx context.Context, page Page, loc scenario.Locator, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	var last error
	for {
		ok, err := page.IsVisible(wctx, loc)
		if err == nil && ok {
			return time.Since(start), nil
		}
		if err != nil && wctx.Err() == nil {
			last = err
		}
		select {
		case <-wctx.Done():
			if err := ctx.Err(); err != nil {
				return time.Since(start), err
			}
			return time.Since(start), &timeoutError{after: timeout, last: last}
		case <-ticker.C:
		}
	}
}

type timeoutError struct {
	after time.Duration
	last  error
}

func (e *timeoutError) Error() string {
	if e.last != nil {
		return fmt.Sprintf("not visible after %s (last probe error: %v)", e.after, e.last)
	}
	return fmt.Sprintf("not visible after %s", e.after)
}

func (e *timeoutError) Is(target error) bool { return target == ErrAssertionTimeout }

func (e *timeoutError) Unwrap() error { return e.last }

func (r *Runner) closePage(page Page) {
	if page == nil {
		return
	}
	if err := page.Close(); err != nil {
		r.logger.Warn("close page", "error", err)
	}
}

func (r *Runner) emit(e Event) {
	if r.observer != nil {
		r.observer.OnEvent(e)
	}
}

func describeAction(sc *scenario.Scenario, st scenario.Step) string {
	a := st.Action
	switch a.Kind {
	case scenario.ActionNavigate:
		return "navigate " + sc.ResolveURL(a.URL)
	case scenario.ActionSetInput:
		return "set-input " + a.Selector
	case scenario.ActionClick:
		if a.Target != nil {
			return "click " + a.Target.String()
		}
	}
	return string(a.Kind)
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
