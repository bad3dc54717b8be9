// Package catalog ships the built-in scenarios compiled into the binary.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"uicheck/internal/scenario"
)

//go:embed *.yaml
var scenarioFS embed.FS

// Default is the scenario `uicheck run` uses when none is named.
const Default = "picking-list"

// Load reads a built-in scenario by name and validates it.
func Load(name string) (*scenario.Scenario, error) {
	data, err := scenarioFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("scenario %q not found (available: %s): %w",
			name, strings.Join(List(), ", "), err)
	}
	s, err := scenario.Load(data, ".yaml")
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", name, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", name, err)
	}
	return s, nil
}

// List returns the names of all built-in scenarios, sorted.
func List() []string {
	entries, _ := scenarioFS.ReadDir(".")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}
