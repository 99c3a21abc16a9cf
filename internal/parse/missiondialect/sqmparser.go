package missiondialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/pboindex/internal/store"
)

// ParseTree decodes a mission.sqm-style class tree into a Node forest,
// returning a synthetic root node named "ROOT" holding every top-level
// class as a child, so query patterns can use a uniform leading-wildcard
// convention regardless of nesting depth.
func ParseTree(src string) (*Node, error) {
	p := &sqmParser{toks: lexSQM(stripSQMComments(src))}
	root := &Node{Name: "ROOT", Properties: store.NewProperties()}
	for !p.atEnd() {
		if p.peekKeyword("class") {
			child, err := p.parseClass()
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, child)
			continue
		}
		p.advance()
	}
	return root, nil
}

func stripSQMComments(src string) string {
	var b strings.Builder
	n := len(src)
	for i := 0; i < n; i++ {
		if i+1 < n && src[i] == '/' && src[i+1] == '/' {
			for i < n && src[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
			continue
		}
		if i+1 < n && src[i] == '/' && src[i+1] == '*' {
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i++
			continue
		}
		b.WriteByte(src[i])
	}
	return b.String()
}

type sqmTokKind int

const (
	sqmIdent sqmTokKind = iota
	sqmString
	sqmNumber
	sqmSymbol
	sqmEOF
)

type sqmTok struct {
	kind sqmTokKind
	text string
}

func lexSQM(src string) []sqmTok {
	var toks []sqmTok
	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"':
			i++
			var sb strings.Builder
			for i < n && src[i] != '"' {
				if src[i] == '\\' && i+1 < n {
					sb.WriteByte(src[i])
					sb.WriteByte(src[i+1])
					i += 2
					continue
				}
				sb.WriteByte(src[i])
				i++
			}
			i++
			toks = append(toks, sqmTok{kind: sqmString, text: sb.String()})
		case isSQMIdentStart(c):
			start := i
			for i < n && isSQMIdentPart(src[i]) {
				i++
			}
			toks = append(toks, sqmTok{kind: sqmIdent, text: src[start:i]})
		case isSQMDigit(c) || (c == '-' && i+1 < n && isSQMDigit(src[i+1])):
			start := i
			i++
			for i < n && (isSQMDigit(src[i]) || src[i] == '.' || src[i] == 'e' || src[i] == 'E') {
				i++
			}
			toks = append(toks, sqmTok{kind: sqmNumber, text: src[start:i]})
		default:
			toks = append(toks, sqmTok{kind: sqmSymbol, text: string(c)})
			i++
		}
	}
	toks = append(toks, sqmTok{kind: sqmEOF})
	return toks
}

func isSQMIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isSQMIdentPart(c byte) bool { return isSQMIdentStart(c) || isSQMDigit(c) }
func isSQMDigit(c byte) bool     { return c >= '0' && c <= '9' }

type sqmParser struct {
	toks []sqmTok
	pos  int
}

func (p *sqmParser) cur() sqmTok  { return p.toks[p.pos] }
func (p *sqmParser) atEnd() bool  { return p.cur().kind == sqmEOF }
func (p *sqmParser) advance() sqmTok {
	t := p.toks[p.pos]
	if t.kind != sqmEOF {
		p.pos++
	}
	return t
}
func (p *sqmParser) peekKeyword(kw string) bool {
	t := p.cur()
	return t.kind == sqmIdent && t.text == kw
}
func (p *sqmParser) peekSymbol(sym string) bool {
	t := p.cur()
	return t.kind == sqmSymbol && t.text == sym
}

func (p *sqmParser) parseClass() (*Node, error) {
	p.advance() // "class"
	if p.cur().kind != sqmIdent {
		return nil, fmt.Errorf("missiondialect: expected class name, found %q", p.cur().text)
	}
	name := p.advance().text
	node := &Node{Name: name, Properties: store.NewProperties()}

	if p.peekSymbol(";") {
		p.advance()
		return node, nil
	}
	if !p.peekSymbol("{") {
		return nil, fmt.Errorf("missiondialect: expected {, found %q", p.cur().text)
	}
	p.advance()

	for !p.peekSymbol("}") {
		if p.atEnd() {
			return nil, fmt.Errorf("missiondialect: unterminated class %s", name)
		}
		if p.peekKeyword("class") {
			child, err := p.parseClass()
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			continue
		}
		if err := p.parseAssignment(node); err != nil {
			return nil, err
		}
	}
	p.advance() // "}"
	for p.peekSymbol(";") {
		p.advance()
	}
	return node, nil
}

func (p *sqmParser) parseAssignment(node *Node) error {
	if p.cur().kind != sqmIdent {
		// Skip unexpected token defensively rather than failing the whole
		// mission parse over one stray symbol.
		p.advance()
		return nil
	}
	name := p.advance().text
	isArray := false
	if p.peekSymbol("[") {
		p.advance()
		if p.peekSymbol("]") {
			p.advance()
			isArray = true
		}
	}
	if !p.peekSymbol("=") {
		return nil
	}
	p.advance()

	if isArray || p.peekSymbol("{") {
		p.advance() // "{"
		var items []store.PropertyValue
		for !p.peekSymbol("}") {
			if p.atEnd() {
				return fmt.Errorf("missiondialect: unterminated array for %s", name)
			}
			items = append(items, p.parseScalar())
			if p.peekSymbol(",") {
				p.advance()
			}
		}
		p.advance()
		node.Properties.Set(name, store.ArrayValue(items))
	} else {
		node.Properties.Set(name, p.parseScalar())
	}
	for p.peekSymbol(";") {
		p.advance()
	}
	return nil
}

func (p *sqmParser) parseScalar() store.PropertyValue {
	t := p.cur()
	switch t.kind {
	case sqmString:
		p.advance()
		return store.StringValue(t.text)
	case sqmNumber:
		p.advance()
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return store.StringValue(t.text)
		}
		return store.NumberValue(n)
	case sqmIdent:
		p.advance()
		return store.StringValue(t.text)
	default:
		p.advance()
		return store.StringValue(t.text)
	}
}
