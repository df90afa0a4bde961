package change

import (
	"fmt"
	"strings"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// Generate parses both documents, interprets the change input and renders
// the resulting commands. Nothing changed yields "".
func Generate(baseInput, changeInput string) (string, error) {
	base := config.Extract(config.Parse(baseInput))
	set, err := Interpret(ParseInput(changeInput), base)
	if err != nil {
		return "", err
	}
	return NewPlan(base, set).Render(), nil
}

// Render emits the plan as device commands: interface blocks, removals,
// additions and finally the l2vpn tree.
func (p *Plan) Render() string {
	w := &cmdWriter{}

	for _, b := range p.Blocks {
		w.line(0, "interface "+b.Name)
		for _, st := range b.Statements {
			w.line(1, st.Text)
			w.nodes(2, st.Children)
		}
		w.line(0, "exit")
		w.blank()
	}

	removed := false
	for _, r := range p.Removals {
		if !r.SubInterface {
			continue
		}
		w.line(0, fmt.Sprintf("no interface %s l2transport", r.Name()))
		removed = true
	}
	if removed {
		w.blank()
	}

	for _, a := range p.Additions {
		w.line(0, fmt.Sprintf("interface %s l2transport", a.Name()))
		w.line(1, "description "+a.Description)
		w.line(1, fmt.Sprintf("encapsulation dot1q %d", a.VLAN))
		w.line(1, config.RewritePopSymmetric)
		w.line(0, "exit")
		w.blank()
	}

	if len(p.Domains) > 0 {
		w.line(0, config.L2VPNHeader)
		w.line(1, config.BridgeGroupHeader)
		for _, dc := range p.Domains {
			w.line(2, fmt.Sprintf("bridge-domain %s%d", config.BridgeGroupName, dc.VLAN))
			if dc.HasDescription {
				w.line(3, "description "+dc.Description)
			}
			for _, name := range dc.Removed {
				w.line(3, "no interface "+name)
			}
			for _, name := range dc.Added {
				w.line(3, "interface "+name)
				w.line(3, "exit")
			}
			for _, name := range dc.AddedRouted {
				w.line(3, "routed interface "+name)
				w.line(3, "exit")
			}
			w.line(2, "exit")
		}
		w.line(1, "exit")
		w.line(0, "exit")
	}

	return w.String()
}

type cmdWriter struct {
	lines []string
}

func (w *cmdWriter) line(depth int, text string) {
	w.lines = append(w.lines, strings.Repeat("  ", depth)+text)
}

func (w *cmdWriter) blank() {
	w.lines = append(w.lines, "")
}

func (w *cmdWriter) nodes(depth int, nodes []*config.Node) {
	for _, n := range nodes {
		w.line(depth, n.Text)
		if !n.IsLeaf {
			w.nodes(depth+1, n.Children)
		}
	}
}

func (w *cmdWriter) String() string {
	lines := w.lines
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
