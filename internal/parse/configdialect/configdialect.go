// Package configdialect implements the configuration-tree dialect parser
// (C4 in spec.md §4.4): recovering nested class declarations, inheritance,
// forward declarations, and properties from brace-delimited source such as
// config.cpp/config.hpp. No tree-sitter grammar in the retrieval pack
// targets this dialect, so the parser is a hand-rolled recursive-descent
// lexer/parser, matching the dispatch-layer contract used by the other two
// dialects.
package configdialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/pboindex/internal/store"
)

// Mode selects parser strength (spec.md §4.4).
type Mode string

const (
	ModeSimple   Mode = "simple"
	ModeAdvanced Mode = "advanced"
)

// ClassRecord is one parsed class declaration, pre-store-index.
type ClassRecord struct {
	ID                   string
	ParentID             *string
	ContainerID          *string
	IsForwardDeclaration bool
	Properties           *store.Properties
}

// Warning describes a recovered syntax error (spec.md §4.4: "record a
// warning with the skipped region").
type Warning struct {
	Message string
	Region  string
}

// Result is the dialect parser's output for one file.
type Result struct {
	Classes  []ClassRecord
	Warnings []Warning
}

// ParseError is returned only for failures the recovery strategy could not
// step past (spec.md §4.4 failure kinds).
type ParseError struct {
	Kind     string // UnterminatedBlock | UnexpectedToken | DepthLimitExceeded
	Position int
	Found    string
	Expected string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case "UnexpectedToken":
		return fmt.Sprintf("configdialect: unexpected token at %d: found %q, expected %q", e.Position, e.Found, e.Expected)
	default:
		return fmt.Sprintf("configdialect: %s at %d", e.Kind, e.Position)
	}
}

// Extensions lists the file extensions this dialect claims (spec.md §4.3).
func Extensions() []string { return []string{"hpp", "cpp", "ext", "h"} }

// CanParse reports whether path's extension belongs to this dialect.
func CanParse(path string) bool {
	for _, ext := range Extensions() {
		if strings.HasSuffix(strings.ToLower(path), "."+ext) {
			return true
		}
	}
	return false
}

const maxDepth = 64

// Parse recovers the class forest from src under the given mode.
func Parse(src string, mode Mode) (Result, error) {
	p := &parser{toks: lex(stripComments(src))}
	var res Result
	for {
		p.skipSemicolons()
		if p.atEnd() {
			break
		}
		if !p.peekKeyword("class") {
			// Preprocessor directives and stray tokens outside class
			// declarations are tolerated; skip to the next "class".
			if p.skipToNextClass() {
				continue
			}
			break
		}
		classes, warn, err := p.parseClass(mode, nil, 0)
		if err != nil {
			var pe *ParseError
			if perr, ok := err.(*ParseError); ok {
				pe = perr
			}
			if pe != nil && pe.Kind == "UnterminatedBlock" {
				return res, err
			}
			start := p.pos
			more := p.skipToNextClass()
			var skipped []string
			for _, t := range p.toks[start:p.pos] {
				skipped = append(skipped, t.text)
			}
			res.Warnings = append(res.Warnings, Warning{Message: err.Error(), Region: strings.Join(skipped, " ")})
			if !more {
				break
			}
			continue
		}
		res.Classes = append(res.Classes, classes...)
		if warn != nil {
			res.Warnings = append(res.Warnings, *warn)
		}
	}
	return res, nil
}

// --- lexing ---

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokSymbol
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func stripComments(src string) string {
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
		if src[i] == '#' {
			for i < n && src[i] != '\n' {
				i++
			}
			continue
		}
		b.WriteByte(src[i])
	}
	return b.String()
}

func lex(src string) []token {
	var toks []token
	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"':
			start := i
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
			i++ // closing quote
			toks = append(toks, token{kind: tokString, text: sb.String(), pos: start})
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case isDigit(c) || (c == '-' && i+1 < n && isDigit(src[i+1])):
			start := i
			i++
			for i < n && (isDigit(src[i]) || src[i] == '.' || src[i] == 'e' || src[i] == 'E' || src[i] == '+' || src[i] == '-') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		default:
			toks = append(toks, token{kind: tokSymbol, text: string(c), pos: i})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, text: "", pos: n})
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// --- parsing ---

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) atEnd() bool { return p.cur().kind == tokEOF }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) peekKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.text == kw
}

func (p *parser) peekSymbol(sym string) bool {
	t := p.cur()
	return t.kind == tokSymbol && t.text == sym
}

func (p *parser) skipSemicolons() {
	for p.peekSymbol(";") {
		p.advance()
	}
}

func (p *parser) skipToNextClass() bool {
	for !p.atEnd() {
		if p.peekKeyword("class") {
			return true
		}
		p.advance()
	}
	return false
}

// parseClass parses one "class Name [: Parent] ( ; | { ... } ; )" and
// returns it plus any nested class records (spec.md §4.4: nested classes
// emit two records).
func (p *parser) parseClass(mode Mode, container *string, depth int) ([]ClassRecord, *Warning, error) {
	if depth > maxDepth {
		return nil, nil, &ParseError{Kind: "DepthLimitExceeded", Position: p.cur().pos}
	}
	p.advance() // consume "class"

	if p.cur().kind != tokIdent {
		return nil, nil, &ParseError{Kind: "UnexpectedToken", Position: p.cur().pos, Found: p.cur().text, Expected: "identifier"}
	}
	name := p.advance().text

	rec := ClassRecord{ID: name, ContainerID: container, Properties: store.NewProperties()}

	if p.peekSymbol(":") {
		p.advance()
		if p.cur().kind != tokIdent {
			return nil, nil, &ParseError{Kind: "UnexpectedToken", Position: p.cur().pos, Found: p.cur().text, Expected: "parent identifier"}
		}
		parent := p.advance().text
		rec.ParentID = &parent
	}

	if p.peekSymbol(";") {
		p.advance()
		rec.IsForwardDeclaration = true
		return []ClassRecord{rec}, nil, nil
	}

	if !p.peekSymbol("{") {
		return nil, nil, &ParseError{Kind: "UnexpectedToken", Position: p.cur().pos, Found: p.cur().text, Expected: "{ or ;"}
	}
	p.advance() // consume "{"

	var nested []ClassRecord
	var warn *Warning

	if mode == ModeAdvanced {
		for !p.peekSymbol("}") {
			if p.atEnd() {
				return nil, nil, &ParseError{Kind: "UnterminatedBlock", Position: p.cur().pos}
			}
			if p.peekKeyword("class") {
				children, w, err := p.parseClass(mode, &name, depth+1)
				if err != nil {
					return nil, nil, err
				}
				if w != nil {
					warn = w
				}
				if len(children) > 0 {
					head := children[0]
					if !head.IsForwardDeclaration {
						rec.Properties.Set(head.ID, store.ObjectValue(propertiesToMap(head.Properties)))
					}
					nested = append(nested, children...)
				}
				continue
			}
			if err := p.parseProperty(&rec); err != nil {
				return nil, nil, err
			}
		}
	} else {
		// simple mode: skip to matching close brace without recording
		// properties, tracking nested braces so the top-level "}" is found.
		if err := p.skipBalancedBody(); err != nil {
			return nil, nil, err
		}
	}

	if !p.peekSymbol("}") {
		return nil, nil, &ParseError{Kind: "UnterminatedBlock", Position: p.cur().pos}
	}
	p.advance() // consume "}"
	p.skipSemicolons()

	return append([]ClassRecord{rec}, nested...), warn, nil
}

func (p *parser) skipBalancedBody() error {
	depth := 1
	for depth > 0 {
		if p.atEnd() {
			return &ParseError{Kind: "UnterminatedBlock", Position: p.cur().pos}
		}
		if p.peekSymbol("{") {
			depth++
		} else if p.peekSymbol("}") {
			depth--
			if depth == 0 {
				return nil
			}
		}
		p.advance()
	}
	return nil
}

// parseProperty parses "ident [[]] = value ;" in advanced mode.
func (p *parser) parseProperty(rec *ClassRecord) error {
	if p.cur().kind != tokIdent {
		return &ParseError{Kind: "UnexpectedToken", Position: p.cur().pos, Found: p.cur().text, Expected: "property name"}
	}
	name := p.advance().text

	isArray := false
	if p.peekSymbol("[") {
		p.advance()
		if !p.peekSymbol("]") {
			return &ParseError{Kind: "UnexpectedToken", Position: p.cur().pos, Found: p.cur().text, Expected: "]"}
		}
		p.advance()
		isArray = true
	}

	if !p.peekSymbol("=") && !p.peekSymbol("+") {
		return &ParseError{Kind: "UnexpectedToken", Position: p.cur().pos, Found: p.cur().text, Expected: "="}
	}
	for p.peekSymbol("+") {
		p.advance()
	}
	if !p.peekSymbol("=") {
		return &ParseError{Kind: "UnexpectedToken", Position: p.cur().pos, Found: p.cur().text, Expected: "="}
	}
	p.advance()

	var val store.PropertyValue
	if isArray || p.peekSymbol("{") {
		p.advance() // consume "{"
		var items []store.PropertyValue
		for !p.peekSymbol("}") {
			if p.atEnd() {
				return &ParseError{Kind: "UnterminatedBlock", Position: p.cur().pos}
			}
			items = append(items, p.parseScalar())
			if p.peekSymbol(",") {
				p.advance()
			}
		}
		p.advance() // consume "}"
		val = store.ArrayValue(items)
	} else {
		val = p.parseScalar()
	}
	rec.Properties.Set(name, val)

	p.skipSemicolons()
	return nil
}

func (p *parser) parseScalar() store.PropertyValue {
	t := p.cur()
	switch t.kind {
	case tokString:
		p.advance()
		return store.StringValue(decodeEscapes(t.text))
	case tokNumber:
		p.advance()
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return store.StringValue(t.text)
		}
		return store.NumberValue(n)
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			p.advance()
			return store.BoolValue(true)
		case "false":
			p.advance()
			return store.BoolValue(false)
		}
		p.advance()
		return store.StringValue(t.text)
	default:
		// Unknown token kind: preserve verbatim as a string (spec.md §4.4:
		// "unknown kinds are preserved verbatim as strings").
		p.advance()
		return store.StringValue(t.text)
	}
}

func decodeEscapes(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

func propertiesToMap(p *store.Properties) map[string]store.PropertyValue {
	out := make(map[string]store.PropertyValue, p.Len())
	for _, k := range p.Keys {
		v, _ := p.Get(k)
		out[k] = v
	}
	return out
}
