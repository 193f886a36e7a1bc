package filter

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokBool
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '@'
}

// lex splits src into tokens. Keywords (AND, OR, NOT, contains, matches) are
// returned as identifiers and recognised by the parser.
func lex(src string) ([]token, error) {
	var out []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			out = append(out, token{tokLParen, "(", i})
			i++
		case r == ')':
			out = append(out, token{tokRParen, ")", i})
			i++
		case strings.ContainsRune("=!<>", r):
			if i+1 < len(rs) && rs[i+1] == '=' {
				out = append(out, token{tokOp, string(rs[i : i+2]), i})
				i += 2
				continue
			}
			if r == '=' || r == '!' {
				return nil, fmt.Errorf("unexpected %q at position %d", r, i)
			}
			out = append(out, token{tokOp, string(r), i})
			i++
		case r == '"' || r == '\'':
			var b strings.Builder
			j := i + 1
			for ; j < len(rs) && rs[j] != r; j++ {
				if rs[j] == '\\' && j+1 < len(rs) {
					j++
				}
				b.WriteRune(rs[j])
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("unterminated string at position %d", i)
			}
			out = append(out, token{tokString, b.String(), i})
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			out = append(out, token{tokNumber, string(rs[i:j]), i})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && isIdentRune(rs[j]) {
				j++
			}
			word := string(rs[i:j])
			if lw := strings.ToLower(word); lw == "true" || lw == "false" {
				out = append(out, token{tokBool, lw, i})
			} else {
				out = append(out, token{tokIdent, word, i})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}
	return append(out, token{tokEOF, "", len(rs)}), nil
}
