package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrNavigation: the URL was unreachable or the page did not show its
	// expected initial content.
	ErrNavigation = errors.New("navigation failure")

	// ErrAssertionTimeout: a post-condition did not become visible in time.
	ErrAssertionTimeout = errors.New("assertion timeout")

	// ErrResourceUnavailable: an input file or the artifact directory could
	// not be used.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrAction: the browser rejected an upload, click or screenshot.
	ErrAction = errors.New("action failed")

	// ErrAborted: the run's context was canceled.
	ErrAborted = errors.New("run aborted")

	// ErrInvalidScenario wraps validation errors returned before step 1.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// VerificationFailure identifies the step that stopped a run and the
// condition it could not establish.
type VerificationFailure struct {
	Step      int // 1-based
	Label     string
	Condition string
	Kind      error // one of the sentinels above
	Err       error
}

func (f *VerificationFailure) Error() string {
	msg := fmt.Sprintf("step=%d label=%s condition=%q: %v", f.Step, f.Label, f.Condition, f.Kind)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *VerificationFailure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// AsFailure extracts the VerificationFailure from err, if any.
func AsFailure(err error) (*VerificationFailure, bool) {
	var f *VerificationFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Kind returns a stable snake_case name for the category of err, for
// metric labels and machine-readable output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNavigation):
		return "navigation_failure"
	case errors.Is(err, ErrAssertionTimeout):
		return "assertion_timeout"
	case errors.Is(err, ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, ErrAction):
		return "action_failed"
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrInvalidScenario):
		return "invalid_scenario"
	}
	return "error"
}
