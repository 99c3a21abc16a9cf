// Package scriptdialect implements the script dialect parser (C5 in
// spec.md §4.5): recovering class-name references from SQF-style verb
// calls of the form "subject VERB \"Identifier\"" or
// "subject VERB [\"Identifier\", …]".
package scriptdialect

import (
	"strings"
)

// Reference is one recovered script-level class reference.
type Reference struct {
	ClassName string
	Verb      string
	Line      int
}

// DefaultVerbs lists the equipment-addition verb family named in spec.md
// §4.5 as the default verb set.
var DefaultVerbs = []string{
	"addWeapon", "addMagazine", "addBackpack", "addUniform", "addVest",
	"addHeadgear", "addGoggles", "addItem", "forceAddUniform",
	"addWeaponGlobal", "addMagazineGlobal", "addBackpackGlobal",
}

// Extensions lists the file extensions this dialect claims.
func Extensions() []string { return []string{"sqf"} }

// CanParse reports whether path's extension belongs to this dialect.
func CanParse(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".sqf")
}

// Options configures one extraction pass.
type Options struct {
	// Verbs is the recognised verb set. Nil/empty falls back to DefaultVerbs
	// unless AllLiterals is set.
	Verbs []string
	// AllLiterals enables the diagnostic mode that reports every string
	// literal regardless of verb, with an empty verb field (spec.md §4.5).
	AllLiterals bool
}

// Extract scans src line by line for verb calls and literal arguments.
func Extract(src string, opts Options) []Reference {
	verbSet := make(map[string]struct{})
	verbs := opts.Verbs
	if len(verbs) == 0 && !opts.AllLiterals {
		verbs = DefaultVerbs
	}
	for _, v := range verbs {
		verbSet[strings.ToLower(v)] = struct{}{}
	}

	var refs []Reference
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lineNo := i + 1
		if opts.AllLiterals {
			for _, lit := range literalsIn(line) {
				refs = append(refs, Reference{ClassName: decodeEscapes(lit), Line: lineNo})
			}
			continue
		}
		refs = append(refs, verbCallsIn(line, lineNo, verbSet)...)
	}
	return refs
}

// verbCallsIn finds "IDENT VERB <arg>" patterns on one line, where <arg> is
// either a quoted string literal or a bracketed array of string literals.
func verbCallsIn(line string, lineNo int, verbSet map[string]struct{}) []Reference {
	var refs []Reference
	toks := tokenizeLine(line)
	for i := 1; i+1 < len(toks); i++ {
		verbTok := toks[i]
		if verbTok.kind != tokIdent {
			continue
		}
		if _, ok := verbSet[strings.ToLower(verbTok.text)]; !ok {
			continue
		}
		// Require an identifier or symbol token immediately before the verb
		// as its subject; a preceding string literal disqualifies the match.
		if toks[i-1].kind != tokIdent && toks[i-1].kind != tokSymbol {
			continue
		}
		arg := toks[i+1]
		switch arg.kind {
		case tokString:
			if i+2 < len(toks) && toks[i+2].kind == tokSymbol && toks[i+2].text == "+" {
				continue
			}
			refs = append(refs, Reference{ClassName: decodeEscapes(arg.text), Verb: verbTok.text, Line: lineNo})
		case tokSymbol:
			if arg.text == "[" {
				j := i + 2
				for j < len(toks) && !(toks[j].kind == tokSymbol && toks[j].text == "]") {
					if toks[j].kind == tokString {
						refs = append(refs, Reference{ClassName: decodeEscapes(toks[j].text), Verb: verbTok.text, Line: lineNo})
					}
					j++
				}
			}
		}
	}
	return refs
}

func literalsIn(line string) []string {
	var out []string
	for _, t := range tokenizeLine(line) {
		if t.kind == tokString {
			out = append(out, t.text)
		}
	}
	return out
}

type tokKind int

const (
	tokIdent tokKind = iota
	tokString
	tokSymbol
)

type tok struct {
	kind tokKind
	text string
}

// tokenizeLine is a lightweight lexer that ignores "//" comments and
// recognises identifiers, quoted strings (single or double), and symbols.
// verbCallsIn uses its output and does not treat a literal that starts a
// string concatenation ("a" + "b") as a verb argument, satisfying the
// "ignore literals that are not direct arguments" contract in spec.md §4.5.
func tokenizeLine(line string) []tok {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	var toks []tok
	i, n := 0, len(line)
	for i < n {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '"' || c == '\'':
			quote := c
			start := i + 1
			i++
			var sb strings.Builder
			for i < n && line[i] != quote {
				if line[i] == '\\' && i+1 < n {
					sb.WriteByte(line[i])
					sb.WriteByte(line[i+1])
					i += 2
					continue
				}
				sb.WriteByte(line[i])
				i++
			}
			i++ // closing quote
			_ = start
			toks = append(toks, tok{kind: tokString, text: sb.String()})
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(line[i]) {
				i++
			}
			toks = append(toks, tok{kind: tokIdent, text: line[start:i]})
		default:
			toks = append(toks, tok{kind: tokSymbol, text: string(c)})
			i++
		}
	}
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func decodeEscapes(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\'`, `'`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}
