// Package simplify renders a base model as a condensed switch-style
// configuration and reports structural lint findings.
package simplify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// Result is the output of Render.
type Result struct {
	Text     string
	Findings []Finding
}

// Render produces the simplified text and lint findings for m. It never
// fails.
func Render(m *config.BaseModel) Result {
	return Result{
		Text:     renderText(m),
		Findings: Lint(m),
	}
}

func renderText(m *config.BaseModel) string {
	var lines []string

	// Bundle members whose owner is declared are rendered after it.
	members := make(map[string][]*config.Interface)
	grouped := make(map[string]bool)
	for _, ifc := range m.Interfaces {
		if ifc.Bundle == nil {
			continue
		}
		owner := m.Interface(ifc.Bundle.Owner())
		if owner == nil || !owner.Declared {
			continue
		}
		members[owner.Name] = append(members[owner.Name], ifc)
		grouped[ifc.Name] = true
	}

	for _, ifc := range m.Interfaces {
		if grouped[ifc.Name] {
			continue
		}
		vlans := m.AttachedVLANs(ifc.Name)
		if !ifc.Declared && len(vlans) == 0 {
			continue
		}
		lines = append(lines, "interface "+ifc.Name)
		lines = appendStatements(lines, ifc.Statements, 1)
		if len(vlans) > 0 {
			lines = append(lines, "  switchport mode trunk")
			lines = append(lines, lo.Map(vlans, func(v int, _ int) string {
				return fmt.Sprintf("  switchport trunk allowed vlan add %d", v)
			})...)
		}
		lines = append(lines, "")

		for _, mem := range members[ifc.Name] {
			lines = append(lines, "interface "+mem.Name)
			lines = appendStatements(lines, mem.Statements, 1)
			lines = append(lines, "")
		}
	}

	if len(m.Domains) > 0 {
		lines = append(lines, "vlan database")
		for _, d := range sortedDomains(m.Domains) {
			if d.HasDescription {
				lines = append(lines, fmt.Sprintf("  vlan %d name %s", d.VLAN, d.Description))
			} else {
				lines = append(lines, fmt.Sprintf("  vlan %d", d.VLAN))
			}
		}
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func appendStatements(lines []string, nodes []*config.Node, depth int) []string {
	for _, n := range nodes {
		lines = append(lines, strings.Repeat("  ", depth)+n.Text)
		if n.IsBlock() {
			lines = appendStatements(lines, n.Children, depth+1)
		}
	}
	return lines
}

func sortedDomains(domains []*config.BridgeDomain) []*config.BridgeDomain {
	out := append([]*config.BridgeDomain(nil), domains...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].VLAN < out[j].VLAN })
	return out
}
