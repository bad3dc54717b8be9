// Package mcp exposes scenario listing, validation, runs and run history as
// Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"uicheck/internal/logging"
	"uicheck/internal/runner"
	"uicheck/internal/scenario"
	"uicheck/internal/scenario/catalog"
	"uicheck/internal/store"
	"uicheck/internal/suite"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultListLimit caps list_runs when the caller gives no limit.
const DefaultListLimit = 20

// Config wires the server to a browser and, optionally, run history.
type Config struct {
	Opener suite.PageOpener
	// Store is optional; without it runs are not recorded and list_runs
	// fails.
	Store store.Store
	// OutDir receives screenshots, one subdirectory per scenario.
	OutDir string
	// Runner options applied to every run (observers, poll interval).
	Runner []runner.Option
}

// Server wraps the MCP SDK server.
type Server struct {
	MCPServer *sdkmcp.Server

	cfg Config
	// runs are serialised: one browser, one scenario at a time.
	mu sync.Mutex
}

// NewServer creates an MCP server with the uicheck tools registered.
func NewServer(cfg Config) *Server {
	if cfg.OutDir == "" {
		cfg.OutDir = "verification"
	}
	s := &Server{cfg: cfg}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "uicheck", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_scenarios",
		Description: "List the built-in scenarios with their step labels.",
	}, s.handleListScenarios)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate_scenario",
		Description: "Parse and validate a scenario given as YAML or JSON text. Returns every problem found.",
	}, s.handleValidateScenario)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_scenario",
		Description: "Run a built-in scenario (by name) or an inline one against the application and return per-step outcomes. A failed verification is reported in the result, not as a tool error.",
	}, s.handleRunScenario)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List recorded runs, newest first, and whether their step outcomes agree.",
	}, s.handleListRuns)
}

// --- Tool input/output types ---

type listScenariosInput struct{}

type scenarioInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	BaseURL     string   `json:"base_url,omitempty"`
	Steps       []string `json:"steps"`
}

type listScenariosOutput struct {
	Scenarios []scenarioInfo `json:"scenarios"`
}

type validateScenarioInput struct {
	Text   string `json:"text" jsonschema:"scenario document (YAML or JSON)"`
	Format string `json:"format,omitempty" jsonschema:"yaml or json; detected from content when empty"`
}

type validateScenarioOutput struct {
	Valid    bool     `json:"valid"`
	Name     string   `json:"name,omitempty"`
	Steps    []string `json:"steps,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

type runScenarioInput struct {
	Scenario string `json:"scenario,omitempty" jsonschema:"built-in scenario name (see list_scenarios)"`
	Text     string `json:"text,omitempty" jsonschema:"inline scenario document, used instead of scenario"`
	BaseURL  string `json:"base_url,omitempty" jsonschema:"application base URL, overrides the scenario's"`
}

type stepOutput struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	Status    string `json:"status"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Artifact  string `json:"artifact,omitempty"`
	Condition string `json:"condition,omitempty"`
}

type runOutput struct {
	RunID      string       `json:"run_id"`
	Scenario   string       `json:"scenario"`
	State      string       `json:"state"`
	FailedStep int          `json:"failed_step,omitempty"`
	Condition  string       `json:"condition,omitempty"`
	ErrorKind  string       `json:"error_kind,omitempty"`
	Error      string       `json:"error,omitempty"`
	Summary    string       `json:"summary"`
	Steps      []stepOutput `json:"steps"`
}

type listRunsInput struct {
	Scenario string `json:"scenario,omitempty" jsonschema:"only runs of this scenario"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum runs to return (default 20)"`
}

type listRunsOutput struct {
	Runs       []runOutput `json:"runs"`
	Consistent bool        `json:"consistent"`
}

// --- Tool handlers ---

func (s *Server) handleListScenarios(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listScenariosInput) (*sdkmcp.CallToolResult, listScenariosOutput, error) {
	var out listScenariosOutput
	for _, name := range catalog.List() {
		sc, err := catalog.Load(name)
		if err != nil {
			return nil, listScenariosOutput{}, err
		}
		out.Scenarios = append(out.Scenarios, scenarioInfo{
			Name:        sc.Name,
			Description: sc.Description,
			BaseURL:     sc.BaseURL,
			Steps:       sc.Labels(),
		})
	}
	return nil, out, nil
}

func (s *Server) handleValidateScenario(ctx context.Context, _ *sdkmcp.CallToolRequest, input validateScenarioInput) (*sdkmcp.CallToolResult, validateScenarioOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, validateScenarioOutput{}, errors.New("text is required")
	}
	sc, err := scenario.Load([]byte(input.Text), formatExt(input.Format))
	if err != nil {
		return nil, validateScenarioOutput{Valid: false, Problems: []string{err.Error()}}, nil
	}
	out := validateScenarioOutput{Name: sc.Name, Steps: sc.Labels()}
	if err := sc.Validate(); err != nil {
		out.Problems = scenario.Problems(err)
		return nil, out, nil
	}
	out.Valid = true
	return nil, out, nil
}

func (s *Server) handleRunScenario(ctx context.Context, _ *sdkmcp.CallToolRequest, input runScenarioInput) (*sdkmcp.CallToolResult, runOutput, error) {
	logger := logging.New("mcp")
	if s.cfg.Opener == nil {
		return nil, runOutput{}, errors.New("no browser configured")
	}
	sc, err := s.resolveScenario(input)
	if err != nil {
		return nil, runOutput{}, err
	}
	if input.BaseURL != "" {
		sc.BaseURL = input.BaseURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Info("run requested", "scenario", sc.Name, "base_url", sc.BaseURL)
	outcomes := suite.Run(ctx, s.cfg.Opener, []*scenario.Scenario{sc}, suite.Options{
		OutDir: filepath.Join(s.cfg.OutDir, suite.DirName(sc.Name, 0)),
		Runner: s.cfg.Runner,
	})
	o := outcomes[0]
	if o.Result == nil {
		return nil, runOutput{}, o.Err
	}
	if s.cfg.Store != nil {
		if err := s.cfg.Store.SaveRun(ctx, o.Result); err != nil {
			logger.Warn("record run failed", "run", o.Result.ID, "error", err)
		}
	}
	out := toRunOutput(o.Result)
	out.ErrorKind = runner.Kind(o.Err)
	return nil, out, nil
}

func (s *Server) handleListRuns(ctx context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	if s.cfg.Store == nil {
		return nil, listRunsOutput{}, errors.New("run history is disabled")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	runs, err := s.cfg.Store.ListRuns(ctx, input.Scenario, limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("list_runs: %w", err)
	}
	out := listRunsOutput{Runs: make([]runOutput, 0, len(runs))}
	outcomes := make([]store.RunOutcome, 0, len(runs))
	for _, r := range runs {
		out.Runs = append(out.Runs, toRunOutput(r))
		outcomes = append(outcomes, store.RunOutcome{RunID: r.ID, State: r.State, Steps: r.Outcomes()})
	}
	out.Consistent = store.Consistent(outcomes)
	return nil, out, nil
}

func (s *Server) resolveScenario(input runScenarioInput) (*scenario.Scenario, error) {
	switch {
	case input.Text != "":
		sc, err := scenario.Load([]byte(input.Text), "")
		if err != nil {
			return nil, err
		}
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s", runner.ErrInvalidScenario, strings.Join(scenario.Problems(err), "; "))
		}
		return sc, nil
	case input.Scenario != "":
		return catalog.Load(input.Scenario)
	}
	return catalog.Load(catalog.Default)
}

func toRunOutput(r *runner.Result) runOutput {
	out := runOutput{
		RunID:      r.ID,
		Scenario:   r.Scenario,
		State:      r.State.String(),
		FailedStep: r.FailedStep,
		Error:      r.Error,
		Summary:    r.Summary(),
		Steps:      make([]stepOutput, 0, len(r.Steps)),
	}
	for _, st := range r.Steps {
		out.Steps = append(out.Steps, stepOutput{
			Index:     st.Index,
			Label:     st.Label,
			Status:    string(st.Status),
			ElapsedMS: st.Elapsed.Milliseconds(),
			Artifact:  st.Artifact,
			Condition: st.Condition,
		})
		if st.Status == runner.StepFailed {
			out.Condition = st.Condition
		}
	}
	return out
}

func formatExt(format string) string {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return ".yaml"
	case "json":
		return ".json"
	}
	return ""
}
