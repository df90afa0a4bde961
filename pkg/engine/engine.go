// Package engine exposes the configuration builder as whole-document
// operations: parse, analyze, generate and apply.
package engine

import (
	"log/slog"
	"strings"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/change"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/simplify"
)

// DomainSummary describes one bridge-domain of an analyzed config.
type DomainSummary struct {
	VLANTag     int      `json:"vlanTag"`
	Interfaces  []string `json:"interfaces"`
	Routed      []string `json:"routed,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Analysis is the result of AnalyzeConfig.
type Analysis struct {
	Domains          []DomainSummary    `json:"domains"`
	LintOutput       string             `json:"lintOutput"`
	Findings         []simplify.Finding `json:"findings"`
	SimplifiedConfig string             `json:"simplifiedConfig"`
}

// Change is the result of GenerateChangeConfig.
type Change struct {
	ChangeOutput string `json:"changeOutput"`
	// Lines counts non-blank command lines.
	Lines int `json:"lines"`
}

// ParseConfig parses text into its top-level nodes.
func ParseConfig(text string) []*config.Node {
	return config.Parse(text).Children
}

// AnalyzeConfig extracts the base model of text and renders its
// domain summary, lint report and simplified form.
func AnalyzeConfig(text string) *Analysis {
	m := config.Extract(config.Parse(text))
	res := simplify.Render(m)

	a := &Analysis{
		Domains:          make([]DomainSummary, 0, len(m.Domains)),
		LintOutput:       res.LintText(),
		Findings:         res.Findings,
		SimplifiedConfig: res.Text,
	}
	for _, d := range m.Domains {
		s := DomainSummary{VLANTag: d.VLAN, Interfaces: []string{}, Description: d.Description}
		for _, mem := range d.Members {
			if mem.Routed {
				s.Routed = append(s.Routed, mem.Name)
			} else {
				s.Interfaces = append(s.Interfaces, mem.Name)
			}
		}
		a.Domains = append(a.Domains, s)
	}
	slog.Debug("config analyzed",
		"interfaces", len(m.Interfaces), "domains", len(m.Domains), "findings", len(res.Findings))
	return a
}

// GenerateChangeConfig returns the commands that move base to the state
// described by changeInput. A rejected input yields a
// *change.ValidationError.
func GenerateChangeConfig(base, changeInput string) (*Change, error) {
	out, err := change.Generate(base, changeInput)
	if err != nil {
		logRejected(err)
		return nil, err
	}
	c := &Change{ChangeOutput: out, Lines: countLines(out)}
	slog.Debug("change generated", "lines", c.Lines)
	return c, nil
}

// ApplyChangeConfig generates the commands for changeInput and returns the
// base config as it would look after they are committed.
func ApplyChangeConfig(base, changeInput string) (newBase, output string, err error) {
	tree := config.Parse(base)
	model := config.Extract(tree)
	set, err := change.Interpret(change.ParseInput(changeInput), model)
	if err != nil {
		logRejected(err)
		return "", "", err
	}
	plan := change.NewPlan(model, set)
	output = plan.Render()
	if plan.Empty() {
		return base, output, nil
	}
	newBase = strings.TrimSuffix(change.Apply(tree, plan).Format(), "\n")
	slog.Debug("change applied",
		"removals", len(plan.Removals), "additions", len(plan.Additions), "domains", len(plan.Domains))
	return newBase, output, nil
}

func logRejected(err error) {
	if ve, ok := change.AsValidationError(err); ok {
		slog.Warn("change input rejected", "kind", ve.Kind.String(), "line", ve.Line, "err", err)
		return
	}
	slog.Warn("change input rejected", "err", err)
}

func countLines(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
