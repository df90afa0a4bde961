package change

import (
	"fmt"
	"strings"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// Apply returns a copy of the base tree with the plan applied, as the
// device would hold it after the generated commands were committed.
// The input tree is not modified.
func Apply(tree *config.ConfigTree, p *Plan) *config.ConfigTree {
	out := tree.Clone()
	if out == nil {
		out = &config.ConfigTree{}
	}

	for _, b := range p.Blocks {
		node := out.FindChild("interface " + b.Name)
		if node == nil {
			node = &config.Node{Text: "interface " + b.Name}
			insertInterface(out, node)
		}
		node.IsLeaf = false
		for _, st := range b.Statements {
			applyStatement(node, st)
		}
	}

	for _, r := range p.Removals {
		// Membership-only removals have no sub-interface to drop.
		_ = out.DeletePath([]string{fmt.Sprintf("interface %s l2transport", r.Name())})
	}

	for _, a := range p.Additions {
		insertInterface(out, &config.Node{
			Text: fmt.Sprintf("interface %s l2transport", a.Name()),
			Children: []*config.Node{
				{Text: "description " + a.Description, IsLeaf: true},
				{Text: fmt.Sprintf("encapsulation dot1q %d", a.VLAN), IsLeaf: true},
				{Text: config.RewritePopSymmetric, IsLeaf: true},
			},
		})
	}

	for _, dc := range p.Domains {
		path := []string{config.L2VPNHeader, config.BridgeGroupHeader,
			fmt.Sprintf("bridge-domain %s%d", config.BridgeGroupName, dc.VLAN)}
		for _, name := range dc.Removed {
			removeMember(out, path[2], "interface "+name)
		}
		// SetPath fails only on an empty path.
		for _, name := range dc.Added {
			_ = out.SetPath(append(path[:3:3], "interface "+name))
		}
		for _, name := range dc.AddedRouted {
			_ = out.SetPath(append(path[:3:3], "routed interface "+name))
		}
		if dc.HasDescription {
			bd := out.Lookup(path...)
			if bd == nil {
				// A domain whose only change was a removal of a stale member.
				continue
			}
			bd.IsLeaf = false
			replaceDescription(bd, "description "+dc.Description)
		}
	}
	return out
}

// removeMember drops member from every block headed domain. Extract merges
// repeated bridge-domain blocks, so the member may sit in any of them.
func removeMember(t *config.ConfigTree, domain, member string) {
	for _, l2 := range t.Children {
		if l2.Text != config.L2VPNHeader {
			continue
		}
		for _, group := range l2.Children {
			if group.Text != config.BridgeGroupHeader {
				continue
			}
			for _, bd := range group.Children {
				if bd.Text != domain {
					continue
				}
				sub := &config.ConfigTree{Children: bd.Children}
				for sub.DeletePath([]string{member}) == nil {
				}
				bd.Children = sub.Children
			}
		}
	}
}

// insertInterface places n before the l2vpn block so interfaces stay
// together, or at the end when there is none.
func insertInterface(t *config.ConfigTree, n *config.Node) {
	for i, child := range t.Children {
		if child.Text == n.Text {
			t.Children[i] = n
			return
		}
	}
	for i, child := range t.Children {
		if child.Text == config.L2VPNHeader {
			t.Children = append(t.Children[:i], append([]*config.Node{n}, t.Children[i:]...)...)
			return
		}
	}
	t.Children = append(t.Children, n)
}

func applyStatement(node *config.Node, st Statement) {
	if strings.HasPrefix(st.Text, "description ") && len(st.Children) == 0 {
		replaceDescription(node, st.Text)
		return
	}
	n := &config.Node{Text: st.Text, IsLeaf: len(st.Children) == 0}
	if len(st.Children) > 0 {
		n.Children = (&config.ConfigTree{Children: st.Children}).Clone().Children
	}
	for i, child := range node.Children {
		if child.Text == st.Text {
			node.Children[i] = n
			return
		}
	}
	node.Children = append(node.Children, n)
}

// replaceDescription replaces the first description statement of node, or
// prepends one.
func replaceDescription(node *config.Node, text string) {
	for _, child := range node.Children {
		if child.IsLeaf && strings.HasPrefix(child.Text, "description ") {
			child.Text = text
			return
		}
	}
	node.Children = append([]*config.Node{{Text: text, IsLeaf: true}}, node.Children...)
}
