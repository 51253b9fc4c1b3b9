// Package rule evaluates the small boolean expressions screens use to show
// form fields and row actions conditionally.
//
// A rule compares record values with literals or with each other:
//
//	status != "archived" && (owner == true || role == 'admin')
//	premium >= 100 and not locked
//	deleted_at == null
//
// Identifiers are dotted paths into the record. A bare identifier is true when
// its value is set and not false, zero or empty. null matches missing and
// empty values. Numbers compare numerically when both sides parse as numbers
// and as strings otherwise. An empty rule is always true.
package rule

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrSyntax wraps every compile error.
var ErrSyntax = errors.New("rule: syntax error")

// Rule is a compiled expression. It is immutable and safe for concurrent use.
type Rule struct {
	src  string
	root node
}

// Compile parses src.
func Compile(src string) (*Rule, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return &Rule{}, nil
	}
	tokens, err := (&lexer{src: src}).all()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("%w at %d: unexpected %s", ErrSyntax, tok.pos, tok)
	}
	return &Rule{src: src, root: root}, nil
}

// MustCompile is Compile for rules known to be valid. It panics on error.
func MustCompile(src string) *Rule {
	r, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the source of the rule.
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.src
}

// Match evaluates the rule against values. A nil or empty rule matches.
func (r *Rule) Match(values map[string]any) bool {
	if r == nil || r.root == nil {
		return true
	}
	return r.root.eval(values)
}

var compiled sync.Map

// Match compiles src once, caching the result, and evaluates it against
// values.
func Match(src string, values map[string]any) (bool, error) {
	if cached, ok := compiled.Load(src); ok {
		return cached.(*Rule).Match(values), nil
	}
	r, err := Compile(src)
	if err != nil {
		return false, err
	}
	compiled.Store(src, r)
	return r.Match(values), nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind != kind {
		return false
	}
	p.advance()
	return true
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (node, error) {
	if p.accept(tokLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if tok := p.advance(); tok.kind != tokRParen {
			return nil, fmt.Errorf("%w at %d: expected ) but found %s", ErrSyntax, tok.pos, tok)
		}
		return inner, nil
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	switch op := p.peek().kind; op {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		p.advance()
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		return compareNode{op: op, left: left, right: right}, nil
	}
	return truthyNode{left}, nil
}

func (p *parser) operand() (operand, error) {
	tok := p.advance()
	switch tok.kind {
	case tokIdent:
		return operand{path: tok.text}, nil
	case tokString:
		return operand{literal: true, value: tok.text}, nil
	case tokNumber:
		n, ok := toNumber(tok.text)
		if !ok {
			return operand{}, fmt.Errorf("%w at %d: invalid number %q", ErrSyntax, tok.pos, tok.text)
		}
		return operand{literal: true, value: n}, nil
	case tokTrue:
		return operand{literal: true, value: true}, nil
	case tokFalse:
		return operand{literal: true, value: false}, nil
	case tokNull:
		return operand{literal: true}, nil
	case tokEOF:
		return operand{}, fmt.Errorf("%w at %d: unexpected end of rule", ErrSyntax, tok.pos)
	}
	return operand{}, fmt.Errorf("%w at %d: expected a value but found %s", ErrSyntax, tok.pos, tok)
}
