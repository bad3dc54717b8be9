// Package scenario holds the data-described form of a UI verification
// journey: an ordered list of steps, each with one action and the visible
// post-conditions that must hold before the next step begins.
package scenario

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a post-condition wait when neither the expectation,
// the step nor the scenario sets one.
const DefaultTimeout = 5 * time.Second

// ActionKind names what a step does to the page.
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionSetInput ActionKind = "set-input"
	ActionClick    ActionKind = "click"
)

// Action is the single interaction a step performs.
type Action struct {
	Kind ActionKind `json:"kind" yaml:"kind"`

	// navigate
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// set-input
	Selector string   `json:"selector,omitempty" yaml:"selector,omitempty"`
	Files    []string `json:"files,omitempty" yaml:"files,omitempty"`

	// click
	Target *Locator `json:"target,omitempty" yaml:"target,omitempty"`
}

// Expectation is a post-condition: the locator must become visible within
// Timeout (zero = inherit from the step).
type Expectation struct {
	Locator `yaml:",inline"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Step is one checkpoint of a scenario.
type Step struct {
	Label      string        `json:"label" yaml:"label"`
	Action     Action        `json:"action" yaml:"action"`
	Expect     []Expectation `json:"expect,omitempty" yaml:"expect,omitempty"`
	Timeout    Duration      `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Settle     Duration      `json:"settle,omitempty" yaml:"settle,omitempty"`
	Screenshot bool          `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
}

// Scenario is one user journey against an application under test.
type Scenario struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	BaseURL        string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DefaultTimeout Duration `json:"default_timeout,omitempty" yaml:"default_timeout,omitempty"`
	Steps          []Step   `json:"steps" yaml:"steps"`

	// Dir is the directory relative input files resolve against.
	// Set by LoadFromPath; empty means the working directory.
	Dir string `json:"-" yaml:"-"`
}

// ResolveURL joins a step URL with the scenario base URL. Absolute URLs
// are returned unchanged.
func (s *Scenario) ResolveURL(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.IsAbs() {
		return raw
	}
	if s.BaseURL == "" {
		return raw
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(raw, "/")
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(strings.TrimPrefix(raw, "/"))
	if err != nil {
		return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(raw, "/")
	}
	return base.ResolveReference(ref).String()
}

// ResolveFile returns an absolute path for an input file.
func (s *Scenario) ResolveFile(p string) (string, error) {
	if !filepath.IsAbs(p) && s.Dir != "" {
		p = filepath.Join(s.Dir, p)
	}
	return filepath.Abs(p)
}

// Timeout returns the bound for expectation e of step st.
func (s *Scenario) Timeout(st Step, e Expectation) time.Duration {
	if e.Timeout > 0 {
		return e.Timeout.Std()
	}
	return s.StepTimeout(st)
}

// StepTimeout returns the bound for a step's own waits (click targets and
// expectations without their own timeout).
func (s *Scenario) StepTimeout(st Step) time.Duration {
	if st.Timeout > 0 {
		return st.Timeout.Std()
	}
	if s.DefaultTimeout > 0 {
		return s.DefaultTimeout.Std()
	}
	return DefaultTimeout
}

// Labels returns the step labels in order.
func (s *Scenario) Labels() []string {
	out := make([]string, len(s.Steps))
	for i, st := range s.Steps {
		out[i] = st.Label
	}
	return out
}
