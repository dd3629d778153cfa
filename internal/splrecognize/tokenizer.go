package splrecognize

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokEquals
	tokLt
	tokLte
	tokGt
	tokGte
	tokPipe
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var keywordTokens = map[string]tokenKind{
	"AND": tokAnd,
	"OR":  tokOr,
	"NOT": tokNot,
}

// tokenize turns restricted SPL text into a token stream. Quoted string
// literals are unescaped in the same pass (reverse of splemit.quote: first
// un-escape \" back to ", then \\ back to \, the opposite order from how
// quote() applied them).
func tokenize(spl string) ([]token, error) {
	var toks []token
	i := 0
	n := len(spl)
	for i < n {
		c := spl[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '|':
			toks = append(toks, token{kind: tokPipe, text: "|", pos: i})
			i++
		case c == '=':
			toks = append(toks, token{kind: tokEquals, text: "=", pos: i})
			i++
		case c == '<':
			if i+1 < n && spl[i+1] == '=' {
				toks = append(toks, token{kind: tokLte, text: "<=", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokLt, text: "<", pos: i})
				i++
			}
		case c == '>':
			if i+1 < n && spl[i+1] == '=' {
				toks = append(toks, token{kind: tokGte, text: ">=", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokGt, text: ">", pos: i})
				i++
			}
		case c == '"':
			start := i
			j := i + 1
			var b strings.Builder
			closed := false
			for j < n {
				if spl[j] == '\\' && j+1 < n {
					b.WriteByte(spl[j])
					b.WriteByte(spl[j+1])
					j += 2
					continue
				}
				if spl[j] == '"' {
					closed = true
					j++
					break
				}
				b.WriteByte(spl[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal at offset %d", start)
			}
			toks = append(toks, token{kind: tokString, text: unescapeSPL(b.String()), pos: start})
			i = j
		default:
			j := i
			for j < n && isIdentByte(spl[j]) {
				j++
			}
			if j == i {
				return nil, fmt.Errorf("unexpected character %q at offset %d", spl[i], i)
			}
			word := spl[i:j]
			upper := strings.ToUpper(word)
			if kind, ok := keywordTokens[upper]; ok {
				toks = append(toks, token{kind: kind, text: upper, pos: i})
			} else if isNumeric(word) {
				toks = append(toks, token{kind: tokNumber, text: word, pos: i})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word, pos: i})
			}
			i = j
		}
	}
	toks = append(toks, token{kind: tokEOF, text: "", pos: n})
	return toks, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c == '*' || c == ':' || c == '\\' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '-' && i == 0 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// unescapeSPL reverses splemit.quote: \" -> " first, then \\ -> \.
func unescapeSPL(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}
