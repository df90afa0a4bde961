// Package config implements the IOS-XR configuration parser and base model.
package config

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenLine    TokenType = iota // a configuration line
	TokenComment                  // line whose text starts with '!'
	TokenBlank                    // empty or whitespace-only line
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenLine:
		return "line"
	case TokenComment:
		return "comment"
	case TokenBlank:
		return "blank"
	case TokenEOF:
		return "EOF"
	default:
		return "unknown"
	}
}

// Token is a single source line.
type Token struct {
	Type   TokenType
	Value  string // trimmed text
	Indent int    // count of leading spaces
	Line   int    // 1-based
}

func (t Token) String() string {
	if t.Type == TokenLine || t.Type == TokenComment {
		return fmt.Sprintf("%s(%d,%q)", t.Type, t.Indent, t.Value)
	}
	return t.Type.String()
}

// Lexer splits configuration text into line tokens.
type Lexer struct {
	lines []string
	pos   int
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{lines: strings.Split(input, "\n")}
}

// Next returns the next token, advancing the position.
func (l *Lexer) Next() Token {
	if l.pos >= len(l.lines) {
		return Token{Type: TokenEOF, Line: l.pos + 1}
	}
	raw := strings.TrimSuffix(l.lines[l.pos], "\r")
	l.pos++

	tok := Token{Line: l.pos, Indent: leadingSpaces(raw)}
	tok.Value = strings.TrimSpace(raw)
	switch {
	case tok.Value == "":
		tok.Type = TokenBlank
		tok.Indent = 0
	case strings.HasPrefix(tok.Value, "!"):
		tok.Type = TokenComment
	default:
		tok.Type = TokenLine
	}
	return tok
}

// Tokens returns every remaining token up to, but not including, EOF.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		tok := l.Next()
		if tok.Type == TokenEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// NormalizeIndent removes the smallest indentation shared by all non-blank
// lines. Line count and order are preserved.
func NormalizeIndent(input string) string {
	lines := strings.Split(input, "\n")
	min := -1
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if n := leadingSpaces(line); min < 0 || n < min {
			min = n
		}
	}
	if min <= 0 {
		return input
	}
	for i, line := range lines {
		if len(line) >= min && leadingSpaces(line) >= min {
			lines[i] = line[min:]
		} else {
			lines[i] = strings.TrimLeft(line, " ")
		}
	}
	return strings.Join(lines, "\n")
}
