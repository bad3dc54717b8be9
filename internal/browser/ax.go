package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"uicheck/internal/scenario"
)

// Raw accessibility tree types; decoded by hand because only a few fields
// matter and cdproto's typed values are stricter than Chrome's output.
type rawAXNode struct {
	NodeID           string      `json:"nodeId"`
	Ignored          bool        `json:"ignored"`
	Role             *rawAXValue `json:"role"`
	Name             *rawAXValue `json:"name"`
	Properties       []rawAXProp `json:"properties"`
	BackendDOMNodeID int64       `json:"backendDOMNodeId"`
}

type rawAXValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawAXProp struct {
	Name  string      `json:"name"`
	Value *rawAXValue `json:"value"`
}

func (v *rawAXValue) String() string {
	if v == nil || v.Value == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	return strings.Trim(string(v.Value), `"`)
}

// axNode is a non-ignored accessibility node.
type axNode struct {
	Role          string
	Name          string
	BackendNodeID int64
}

// parseAXTree decodes an Accessibility.getFullAXTree response, dropping
// ignored and hidden nodes.
func parseAXTree(raw []byte) ([]axNode, error) {
	var resp struct {
		Nodes []rawAXNode `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse a11y tree: %w", err)
	}
	out := make([]axNode, 0, len(resp.Nodes))
	for _, n := range resp.Nodes {
		if n.Ignored || hidden(n) {
			continue
		}
		role := n.Role.String()
		if role == "" || role == "none" || role == "InlineTextBox" {
			continue
		}
		out = append(out, axNode{
			Role:          role,
			Name:          n.Name.String(),
			BackendNodeID: n.BackendDOMNodeID,
		})
	}
	return out, nil
}

func hidden(n rawAXNode) bool {
	for _, p := range n.Properties {
		if p.Name == "hidden" && p.Value.String() == "true" {
			return true
		}
	}
	return false
}

// findAXNode returns the first node in document order matching a role
// locator.
func findAXNode(nodes []axNode, loc scenario.Locator) (axNode, bool) {
	for _, n := range nodes {
		if loc.MatchRole(n.Role, n.Name) {
			return n, true
		}
	}
	return axNode{}, false
}
