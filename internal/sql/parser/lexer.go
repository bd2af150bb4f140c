package parser

import (
	"fmt"
	"unicode"
)

type tokKind uint8

const (
	tokWord tokKind = iota
	tokString
	tokSymbol
	tokEOF
)

type token struct {
	kind tokKind
	text string
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of statement"
	case tokString:
		return fmt.Sprintf("'%s'", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// lex splits a statement into whitespace/quote-aware tokens. Quoted text
// (single or double quotes) becomes a single string token with embedded
// whitespace preserved; unquoted runs are trimmed by the scan itself.
func lex(input string) ([]token, error) {
	rs := []rune(input)
	var toks []token

	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(rs) && rs[j] != quote {
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("%w: unterminated string literal", ErrSyntax)
			}
			toks = append(toks, token{kind: tokString, text: string(rs[i+1 : j])})
			i = j + 1

		case r == '(' || r == ')' || r == ',' || r == ';' || r == '*' || r == '.' || r == '=':
			toks = append(toks, token{kind: tokSymbol, text: string(r)})
			i++

		case r == '<' || r == '>':
			if i+1 < len(rs) && rs[i+1] == '=' {
				toks = append(toks, token{kind: tokSymbol, text: string(r) + "="})
				i += 2
			} else {
				toks = append(toks, token{kind: tokSymbol, text: string(r)})
				i++
			}

		case r == '!':
			if i+1 < len(rs) && rs[i+1] == '=' {
				toks = append(toks, token{kind: tokSymbol, text: "!="})
				i += 2
			} else {
				return nil, fmt.Errorf("%w: expected \"=\" after \"!\"", ErrSyntax)
			}

		case isWordRune(r):
			j := i
			for j < len(rs) && isWordRune(rs[j]) {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: string(rs[i:j])})
			i = j

		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrSyntax, string(r))
		}
	}

	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}
