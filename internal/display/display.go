// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output and reports. Keep raw codes for JSON
// fields, metric labels and equality comparisons.
package display

import "strings"

// --- Failure kinds ---

var errorKinds = map[string]string{
	"navigation_failure":   "Navigation failure",
	"assertion_timeout":    "Assertion timeout",
	"resource_unavailable": "Resource unavailable",
	"action_failed":        "Action failed",
	"aborted":              "Aborted",
	"invalid_scenario":     "Invalid scenario",
}

// ErrorKind returns the human-readable name for a failure kind code.
// Unknown codes are returned as-is.
func ErrorKind(code string) string {
	if name, ok := errorKinds[code]; ok {
		return name
	}
	return code
}

// ErrorKindWithCode returns "Assertion timeout (assertion_timeout)" format.
func ErrorKindWithCode(code string) string {
	if name, ok := errorKinds[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Actions ---

var actions = map[string]string{
	"navigate":  "Navigate",
	"set-input": "Upload",
	"click":     "Click",
}

// Action returns the human-readable name for a step action kind.
func Action(kind string) string {
	if name, ok := actions[kind]; ok {
		return name
	}
	return kind
}

// --- Step labels ---

// Label turns a step label into words: "review_page" -> "Review page".
func Label(label string) string {
	s := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(label))
	if s == "" {
		return label
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// LabelPath converts step labels to a human-readable path.
// ["upload_page", "review_page"] -> "Upload page → Review page"
func LabelPath(labels []string) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = Label(l)
	}
	return strings.Join(names, " → ")
}
