package scenario

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("scenario: invalid")

var labelPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks the structural rules a scenario must satisfy before it
// can run. All problems are reported at once.
func (s *Scenario) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch {
	case s.Name == "":
		add("name is required")
	case strings.ContainsAny(s.Name, `/\`) || strings.Contains(s.Name, ".."):
		add("name %q must not contain path separators or \"..\"", s.Name)
	}
	if s.DefaultTimeout < 0 {
		add("default_timeout must not be negative")
	}
	if len(s.Steps) == 0 {
		add("at least one step is required")
	} else if s.Steps[0].Action.Kind != ActionNavigate {
		add("step 1 must be a navigate step, got %q", s.Steps[0].Action.Kind)
	}

	seen := make(map[string]int, len(s.Steps))
	for i, st := range s.Steps {
		n := i + 1
		switch {
		case st.Label == "":
			add("step %d: label is required", n)
		case !labelPattern.MatchString(st.Label):
			add("step %d: label %q may only contain letters, digits, '_' and '-'", n, st.Label)
		default:
			if prev, dup := seen[st.Label]; dup {
				add("step %d: label %q already used by step %d", n, st.Label, prev)
			}
			seen[st.Label] = n
		}
		if st.Timeout < 0 || st.Settle < 0 {
			add("step %d: timeout and settle must not be negative", n)
		}
		errs = append(errs, validateAction(n, st.Action)...)
		for j, e := range st.Expect {
			if err := validateLocator(e.Locator); err != nil {
				add("step %d: expect[%d]: %v", n, j, err)
			}
			if e.Timeout < 0 {
				add("step %d: expect[%d]: timeout must not be negative", n, j)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func validateAction(n int, a Action) []error {
	var errs []error
	switch a.Kind {
	case ActionNavigate:
		if a.URL == "" {
			errs = append(errs, fmt.Errorf("step %d: navigate requires url", n))
		}
	case ActionSetInput:
		if a.Selector == "" {
			errs = append(errs, fmt.Errorf("step %d: set-input requires selector", n))
		}
		if len(a.Files) == 0 {
			errs = append(errs, fmt.Errorf("step %d: set-input requires at least one file", n))
		}
	case ActionClick:
		if a.Target == nil {
			errs = append(errs, fmt.Errorf("step %d: click requires target", n))
		} else if err := validateLocator(*a.Target); err != nil {
			errs = append(errs, fmt.Errorf("step %d: click target: %v", n, err))
		}
	case "":
		errs = append(errs, fmt.Errorf("step %d: action kind is required", n))
	default:
		errs = append(errs, fmt.Errorf("step %d: unknown action kind %q (navigate, set-input, click)", n, a.Kind))
	}
	return errs
}

func validateLocator(l Locator) error {
	switch l.set() {
	case 0:
		return errors.New("locator needs one of role, text, selector")
	case 1:
	default:
		return fmt.Errorf("locator %s sets more than one of role, text, selector", l)
	}
	if l.Name != "" && l.Role == "" {
		return errors.New("locator name requires role")
	}
	return nil
}

// Problems lists the individual rule violations inside an error returned
// by Validate, however deeply it is wrapped. Any other error yields its
// message.
func Problems(err error) []string {
	if err == nil {
		return nil
	}
	if errs := violations(err); errs != nil {
		out := make([]string, 0, len(errs))
		for _, e := range errs {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// violations finds the "ErrInvalid: joined" node built by Validate.
func violations(err error) []error {
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		errs := e.Unwrap()
		if len(errs) == 2 && errs[0] == ErrInvalid {
			if joined, ok := errs[1].(interface{ Unwrap() []error }); ok {
				return joined.Unwrap()
			}
			return errs[1:]
		}
		for _, inner := range errs {
			if v := violations(inner); v != nil {
				return v
			}
		}
	case interface{ Unwrap() error }:
		if inner := e.Unwrap(); inner != nil {
			return violations(inner)
		}
	}
	return nil
}
