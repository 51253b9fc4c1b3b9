package rule

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNull
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of rule",
	tokEq:     "==",
	tokNeq:    "!=",
	tokLt:     "<",
	tokLte:    "<=",
	tokGt:     ">",
	tokGte:    ">=",
	tokAnd:    "&&",
	tokOr:     "||",
	tokNot:    "!",
	tokLParen: "(",
	tokRParen: ")",
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if name, ok := tokenNames[t.kind]; ok {
		return name
	}
	return fmt.Sprintf("%q", t.text)
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) all() ([]token, error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}
	start := l.pos
	if start >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	if kind, width := l.operator(); width > 0 {
		l.pos += width
		return token{kind: kind, text: l.src[start:l.pos], pos: start}, nil
	}

	c := l.src[start]
	switch {
	case c == '"' || c == '\'':
		return l.quoted(c)
	case isDigit(c) || (c == '-' && start+1 < len(l.src) && isDigit(l.src[start+1])):
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		switch strings.ToLower(text) {
		case "true":
			return token{kind: tokTrue, text: text, pos: start}, nil
		case "false":
			return token{kind: tokFalse, text: text, pos: start}, nil
		case "null", "nil":
			return token{kind: tokNull, text: text, pos: start}, nil
		case "and":
			return token{kind: tokAnd, text: text, pos: start}, nil
		case "or":
			return token{kind: tokOr, text: text, pos: start}, nil
		case "not":
			return token{kind: tokNot, text: text, pos: start}, nil
		}
		return token{kind: tokIdent, text: text, pos: start}, nil
	}
	return token{}, l.errorf(start, "unexpected character %q", c)
}

// operator returns the operator at the cursor and its width, or zero.
func (l *lexer) operator() (tokenKind, int) {
	rest := l.src[l.pos:]
	for _, op := range []struct {
		text string
		kind tokenKind
	}{
		{"==", tokEq}, {"!=", tokNeq}, {"<=", tokLte}, {">=", tokGte},
		{"&&", tokAnd}, {"||", tokOr},
		{"<", tokLt}, {">", tokGt}, {"!", tokNot}, {"(", tokLParen}, {")", tokRParen},
	} {
		if strings.HasPrefix(rest, op.text) {
			return op.kind, len(op.text)
		}
	}
	return tokEOF, 0
}

func (l *lexer) quoted(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case quote:
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case '\\':
			if l.pos >= len(l.src) {
				return token{}, l.errorf(start, "unterminated string")
			}
			esc := l.src[l.pos]
			l.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
		}
	}
	return token{}, l.errorf(start, "unterminated string")
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return fmt.Errorf("%w at %d: %s", ErrSyntax, pos, fmt.Sprintf(format, args...))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}
