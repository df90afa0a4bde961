package config

// MaxDepth bounds block nesting. Lines nested deeper are kept as statements
// of the deepest allowed block.
const MaxDepth = 64

// Parser builds a ConfigTree from indentation-structured text.
type Parser struct {
	toks []Token
	pos  int
}

// NewParser creates a parser for the given input.
func NewParser(input string) *Parser {
	var toks []Token
	for _, tok := range NewLexer(input).Tokens() {
		// Blank lines carry no structure.
		if tok.Type == TokenBlank {
			continue
		}
		toks = append(toks, tok)
	}
	return &Parser{toks: toks}
}

// Parse never fails: every line becomes a node or is dropped as a comment.
func (p *Parser) Parse() *ConfigTree {
	tree := &ConfigTree{}
	for p.pos < len(p.toks) {
		tree.Children = append(tree.Children, p.parseLevel(0)...)
	}
	return tree
}

// Parse is shorthand for NewParser(input).Parse().
func Parse(input string) *ConfigTree {
	return NewParser(input).Parse()
}

func (p *Parser) peek() (Token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return Token{}, false
}

// parseLevel consumes sibling lines until indentation drops below the
// current line's indentation.
func (p *Parser) parseLevel(depth int) []*Node {
	var nodes []*Node
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		p.pos++

		next, ok := p.peek()
		nextIndent := 0
		if ok {
			nextIndent = next.Indent
		}

		if nextIndent > tok.Indent && depth < MaxDepth {
			children := p.parseLevel(depth + 1)
			if tok.Type == TokenComment {
				// A comment header owns nothing; hoist its children.
				nodes = append(nodes, children...)
				continue
			}
			nodes = append(nodes, &Node{
				Text:     tok.Value,
				Children: children,
				Line:     tok.Line,
			})
			continue
		}

		if tok.Type == TokenLine {
			nodes = append(nodes, &Node{Text: tok.Value, IsLeaf: true, Line: tok.Line})
		}

		if ok && nextIndent < tok.Indent {
			if next.Type == TokenLine && (next.Value == "end-set" || next.Value == "end-policy") {
				p.pos++
				nodes = append(nodes, &Node{Text: next.Value, IsLeaf: true, Line: next.Line})
			}
			return nodes
		}
	}
	return nodes
}
