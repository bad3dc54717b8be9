package scenario

import (
	"strings"
)

// Locator picks an element on the page. Exactly one of Role, Text or
// Selector is set; Name narrows a Role by accessible name.
type Locator struct {
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
	Exact    bool   `json:"exact,omitempty" yaml:"exact,omitempty"`
}

// ByRole locates by accessible role and name.
func ByRole(role, name string) Locator { return Locator{Role: role, Name: name} }

// ByText locates by visible text.
func ByText(text string) Locator { return Locator{Text: text} }

// BySelector locates by CSS selector.
func BySelector(sel string) Locator { return Locator{Selector: sel} }

func (l Locator) String() string {
	switch {
	case l.Role != "":
		if l.Name == "" {
			return l.Role
		}
		return l.Role + " " + l.Name
	case l.Text != "":
		return "text " + l.Text
	case l.Selector != "":
		return "css " + l.Selector
	}
	return "<empty locator>"
}

// Condition is the human-readable post-condition used in failures.
func (l Locator) Condition() string { return l.String() + " visible" }

// MatchRole reports whether an accessibility node with the given role and
// name satisfies a role locator.
func (l Locator) MatchRole(role, name string) bool {
	if l.Role == "" || !strings.EqualFold(l.Role, role) {
		return false
	}
	if l.Name == "" {
		return true
	}
	return l.matchText(l.Name, name)
}

// MatchText reports whether visible text satisfies a text locator.
func (l Locator) MatchText(text string) bool {
	if l.Text == "" {
		return false
	}
	return l.matchText(l.Text, text)
}

// Without Exact, matching is case-insensitive substring after whitespace
// normalisation.
func (l Locator) matchText(want, got string) bool {
	want, got = NormalizeSpace(want), NormalizeSpace(got)
	if l.Exact {
		return want == got
	}
	return strings.Contains(strings.ToLower(got), strings.ToLower(want))
}

// NormalizeSpace collapses runs of whitespace and trims the ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (l Locator) set() int {
	n := 0
	for _, v := range []string{l.Role, l.Text, l.Selector} {
		if v != "" {
			n++
		}
	}
	return n
}
