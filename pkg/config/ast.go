package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node represents a node in the IOS-XR configuration tree.
// It is either a statement (a single line) or a block (a header line
// followed by more-indented children).
type Node struct {
	// Text is the trimmed source line, e.g. "interface TenGigE0/0/0/1"
	// or "encapsulation dot1q 300".
	Text string

	// Children are the nodes nested under a block header.
	// nil for statements.
	Children []*Node

	// IsLeaf is true for statements.
	IsLeaf bool

	// Line where this node starts (1-based, for error reporting).
	Line int
}

// IsBlock reports whether the node is a block header.
func (n *Node) IsBlock() bool { return !n.IsLeaf }

// FindChild returns the first child whose text equals text.
func (n *Node) FindChild(text string) *Node {
	return findChild(n.Children, text)
}

// MarshalJSON encodes blocks as {"type":"block","name":...,"stmts":[...]}
// and statements as {"type":"stmt","stmt":...}.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.IsLeaf {
		return json.Marshal(struct {
			Type string `json:"type"`
			Stmt string `json:"stmt"`
			Line int    `json:"line"`
		}{"stmt", n.Text, n.Line})
	}
	stmts := n.Children
	if stmts == nil {
		stmts = []*Node{}
	}
	return json.Marshal(struct {
		Type  string  `json:"type"`
		Name  string  `json:"name"`
		Line  int     `json:"line"`
		Stmts []*Node `json:"stmts"`
	}{"block", n.Text, n.Line, stmts})
}

// ConfigTree is the root of a parsed configuration.
type ConfigTree struct {
	Children []*Node
}

// FindChild returns the first top-level child whose text equals text.
func (t *ConfigTree) FindChild(text string) *Node {
	return findChild(t.Children, text)
}

// Lookup walks path from the root, matching each element against node text.
func (t *ConfigTree) Lookup(path ...string) *Node {
	nodes := t.Children
	var cur *Node
	for _, text := range path {
		cur = findChild(nodes, text)
		if cur == nil {
			return nil
		}
		nodes = cur.Children
	}
	return cur
}

func findChild(nodes []*Node, text string) *Node {
	for _, child := range nodes {
		if child.Text == text {
			return child
		}
	}
	return nil
}

// Clone creates a deep copy of the config tree.
func (t *ConfigTree) Clone() *ConfigTree {
	if t == nil {
		return nil
	}
	return &ConfigTree{
		Children: cloneNodes(t.Children),
	}
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{
			Text:     n.Text,
			Children: cloneNodes(n.Children),
			IsLeaf:   n.IsLeaf,
			Line:     n.Line,
		}
	}
	return result
}

// SetPath ensures the node at path exists. Every element but the last names
// a block that is found or created; the last element is appended as a
// statement unless a node with the same text is already present.
func (t *ConfigTree) SetPath(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}

	current := &t.Children
	for _, text := range path[:len(path)-1] {
		n := findChild(*current, text)
		if n == nil {
			n = &Node{Text: text}
			*current = append(*current, n)
		}
		// A statement gains children by becoming a block.
		n.IsLeaf = false
		current = &n.Children
	}

	last := path[len(path)-1]
	if findChild(*current, last) == nil {
		*current = append(*current, &Node{Text: last, IsLeaf: true})
	}
	return nil
}

// DeletePath removes the node at the given path from the tree.
func (t *ConfigTree) DeletePath(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	return deletePath(&t.Children, path)
}

func deletePath(current *[]*Node, path []string) error {
	if len(path) == 1 {
		return removeMatchingNode(current, path[0])
	}
	n := findChild(*current, path[0])
	if n == nil {
		return fmt.Errorf("path not found: container %q does not exist", path[0])
	}
	return deletePath(&n.Children, path[1:])
}

// removeMatchingNode removes the first node whose text equals text.
func removeMatchingNode(nodes *[]*Node, text string) error {
	for i, n := range *nodes {
		if n.Text == text {
			*nodes = append((*nodes)[:i], (*nodes)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("path not found: no node matching %q", text)
}

// Format renders the tree as indented configuration text, two spaces per
// level. Parse(t.Format()) reproduces t, except that a block without
// children comes back as a statement.
func (t *ConfigTree) Format() string {
	var b strings.Builder
	formatNodes(&b, t.Children, 0)
	return b.String()
}

func formatNodes(b *strings.Builder, nodes []*Node, indent int) {
	prefix := strings.Repeat("  ", indent)
	for _, n := range nodes {
		fmt.Fprintf(b, "%s%s\n", prefix, n.Text)
		if !n.IsLeaf {
			formatNodes(b, n.Children, indent+1)
		}
	}
}

// FormatFlat renders every statement as its full path, one per line,
// with path elements joined by " / ".
func (t *ConfigTree) FormatFlat() string {
	var b strings.Builder
	formatFlatNodes(&b, t.Children, nil)
	return b.String()
}

func formatFlatNodes(b *strings.Builder, nodes []*Node, prefix []string) {
	for _, n := range nodes {
		path := append(append([]string(nil), prefix...), n.Text)
		if n.IsLeaf || len(n.Children) == 0 {
			fmt.Fprintf(b, "%s\n", strings.Join(path, " / "))
		} else {
			formatFlatNodes(b, n.Children, path)
		}
	}
}
