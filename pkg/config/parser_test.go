package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLexer(t *testing.T) {
	input := "interface TenGigE0/0/0/1\n  description uplink\r\n!\n\n  mtu 9216"
	lex := NewLexer(input)
	expected := []struct {
		typ    TokenType
		val    string
		indent int
		line   int
	}{
		{TokenLine, "interface TenGigE0/0/0/1", 0, 1},
		{TokenLine, "description uplink", 2, 2},
		{TokenComment, "!", 0, 3},
		{TokenBlank, "", 0, 4},
		{TokenLine, "mtu 9216", 2, 5},
		{TokenEOF, "", 0, 6},
	}

	for i, exp := range expected {
		tok := lex.Next()
		if tok.Type != exp.typ {
			t.Errorf("token %d: expected type %s, got %s (value=%q)", i, exp.typ, tok.Type, tok.Value)
		}
		if tok.Value != exp.val {
			t.Errorf("token %d: expected value %q, got %q", i, exp.val, tok.Value)
		}
		if tok.Indent != exp.indent {
			t.Errorf("token %d: expected indent %d, got %d", i, exp.indent, tok.Indent)
		}
		if tok.Line != exp.line {
			t.Errorf("token %d: expected line %d, got %d", i, exp.line, tok.Line)
		}
	}
}

func leaf(text string, line int) *Node {
	return &Node{Text: text, IsLeaf: true, Line: line}
}

func block(text string, line int, children ...*Node) *Node {
	return &Node{Text: text, Line: line, Children: children}
}

func TestParse(t *testing.T) {
	input := `hostname edge1
interface TenGigE0/0/0/1
 description uplink
 mtu 9216
!
l2vpn
 bridge group VLAN
  bridge-domain VLAN300
   interface TenGigE0/0/0/1.300
   !
  !
 !
!
end`

	want := &ConfigTree{Children: []*Node{
		leaf("hostname edge1", 1),
		block("interface TenGigE0/0/0/1", 2,
			leaf("description uplink", 3),
			leaf("mtu 9216", 4),
		),
		block("l2vpn", 6,
			block("bridge group VLAN", 7,
				block("bridge-domain VLAN300", 8,
					leaf("interface TenGigE0/0/0/1.300", 9),
				),
			),
		),
		leaf("end", 14),
	}}

	got := Parse(input)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCommentsAndBlanks(t *testing.T) {
	input := "!! IOS XR Configuration\n\ninterface Bundle-Ether100\n\n  description core\n  ! inline note\n  mtu 9000\n"
	tree := Parse(input)
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 top-level node, got %d", len(tree.Children))
	}
	ifc := tree.Children[0]
	if ifc.IsLeaf {
		t.Fatal("interface should be a block")
	}
	var texts []string
	for _, c := range ifc.Children {
		texts = append(texts, c.Text)
	}
	if got := strings.Join(texts, "|"); got != "description core|mtu 9000" {
		t.Errorf("children = %q", got)
	}
}

func TestParseCommentHeaderHoistsChildren(t *testing.T) {
	input := "! note\n  hostname r1\nlogging console"
	tree := Parse(input)
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(tree.Children))
	}
	if tree.Children[0].Text != "hostname r1" || !tree.Children[0].IsLeaf {
		t.Errorf("unexpected first node %+v", tree.Children[0])
	}
}

func TestParseEndPolicy(t *testing.T) {
	input := `route-policy PASS
  if destination in DEFAULT then
    pass
  endif
end-policy
prefix-set DEFAULT
  0.0.0.0/0
end-set
hostname r1`

	tree := Parse(input)
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d: %s", len(tree.Children), tree.Format())
	}
	rp := tree.Children[0]
	last := rp.Children[len(rp.Children)-1]
	if last.Text != "end-policy" || last.Line != 5 {
		t.Errorf("route-policy should end with end-policy, got %q (line %d)", last.Text, last.Line)
	}
	ps := tree.Children[1]
	if got := ps.Children[len(ps.Children)-1].Text; got != "end-set" {
		t.Errorf("prefix-set should end with end-set, got %q", got)
	}
	if tree.Children[2].Text != "hostname r1" {
		t.Errorf("unexpected trailing node %q", tree.Children[2].Text)
	}
}

func TestParseDepthLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxDepth+10; i++ {
		b.WriteString(strings.Repeat(" ", i))
		b.WriteString("level\n")
	}
	tree := Parse(b.String())

	depth := 0
	count := 0
	var walk func(nodes []*Node, d int)
	walk = func(nodes []*Node, d int) {
		for _, n := range nodes {
			count++
			if d > depth {
				depth = d
			}
			walk(n.Children, d+1)
		}
	}
	walk(tree.Children, 0)

	if depth > MaxDepth {
		t.Errorf("depth %d exceeds MaxDepth %d", depth, MaxDepth)
	}
	if count != MaxDepth+10 {
		t.Errorf("expected %d nodes, got %d", MaxDepth+10, count)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	input := `interface HundredGigE0/0/0/10
 description uplink
 bundle id 100 mode active
l2vpn
 bridge group VLAN
  bridge-domain VLAN500
   description mgmt
   interface Bundle-Ether100.500`

	tree := Parse(input)
	again := Parse(tree.Format())

	opt := cmp.Comparer(func(a, b *Node) bool {
		return a.Text == b.Text && a.IsLeaf == b.IsLeaf && len(a.Children) == len(b.Children)
	})
	if diff := cmp.Diff(tree.Format(), again.Format()); diff != "" {
		t.Errorf("format not stable (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(tree.Children, again.Children, opt); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}
}

func TestSetPathDeletePath(t *testing.T) {
	tree := Parse("l2vpn\n bridge group VLAN\n  bridge-domain VLAN300\n   interface A.300")

	path := []string{"l2vpn", "bridge group VLAN", "bridge-domain VLAN400", "interface A.400"}
	if err := tree.SetPath(path); err != nil {
		t.Fatalf("SetPath: %v", err)
	}
	// second insert is a no-op
	if err := tree.SetPath(path); err != nil {
		t.Fatalf("SetPath: %v", err)
	}
	bd := tree.Lookup("l2vpn", "bridge group VLAN", "bridge-domain VLAN400")
	if bd == nil || len(bd.Children) != 1 {
		t.Fatalf("expected VLAN400 with one member, got %+v", bd)
	}

	if err := tree.DeletePath([]string{"l2vpn", "bridge group VLAN", "bridge-domain VLAN300", "interface A.300"}); err != nil {
		t.Fatalf("DeletePath: %v", err)
	}
	if n := tree.Lookup("l2vpn", "bridge group VLAN", "bridge-domain VLAN300"); n == nil || len(n.Children) != 0 {
		t.Errorf("VLAN300 should be empty, got %+v", n)
	}
	if err := tree.DeletePath([]string{"l2vpn", "nope", "x"}); err == nil {
		t.Error("expected error for missing container")
	}
	if err := tree.SetPath(nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tree := Parse("interface A\n description x")
	clone := tree.Clone()
	clone.Children[0].Children[0].Text = "description y"
	if tree.Children[0].Children[0].Text != "description x" {
		t.Error("clone shares nodes with original")
	}
}

func TestNodeMarshalJSON(t *testing.T) {
	tree := Parse("interface A\n mtu 9000\nhostname r1")
	data, err := json.Marshal(tree.Children)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"type":"block","name":"interface A","line":1,"stmts":[{"type":"stmt","stmt":"mtu 9000","line":2}]},{"type":"stmt","stmt":"hostname r1","line":3}]`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}

func TestNormalizeIndent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no indent", "a\n b", "a\n b"},
		{"shared indent", "    a\n      b\n\n    c", "a\n  b\n\nc"},
		{"blank lines ignored", "\n  a\n", "\na\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeIndent(tt.input); got != tt.want {
				t.Errorf("NormalizeIndent(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
