// Package filter compiles drop rules: boolean expressions over event fields
// such as `severity == "debug" AND host matches "^lab-"`. Events matching any
// rule are discarded before delivery.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Resolver exposes event fields by dotted path.
type Resolver interface {
	Resolve(path []string) (interface{}, bool)
}

type node interface {
	eval(r Resolver) bool
}

type andNode struct{ left, right node }
type orNode struct{ left, right node }
type notNode struct{ inner node }

func (n *andNode) eval(r Resolver) bool { return n.left.eval(r) && n.right.eval(r) }
func (n *orNode) eval(r Resolver) bool  { return n.left.eval(r) || n.right.eval(r) }
func (n *notNode) eval(r Resolver) bool { return !n.inner.eval(r) }

// Rule is a compiled expression.
type Rule struct {
	src  string
	root node
}

// String returns the source expression.
func (r *Rule) String() string { return r.src }

// Match reports whether ev satisfies the rule. Comparisons against missing
// fields or mismatched types are false.
func (r *Rule) Match(ev Resolver) bool {
	return r.root.eval(ev)
}

// Compile parses src into a Rule.
func Compile(src string) (*Rule, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", src, err)
	}
	p := &parser{toks: toks}
	root, err := p.or()
	if err == nil && p.peek().kind != tokEOF {
		err = fmt.Errorf("unexpected %q at position %d", p.peek().text, p.peek().pos)
	}
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", src, err)
	}
	return &Rule{src: src, root: root}, nil
}

// Set is an ordered list of rules.
type Set struct {
	rules []*Rule
}

// NewSet compiles every expression. Invalid expressions are left out of the
// returned set and reported together in err.
func NewSet(exprs []string) (*Set, error) {
	s := &Set{rules: make([]*Rule, 0, len(exprs))}
	var errs []error
	for _, e := range exprs {
		r, err := Compile(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.rules = append(s.rules, r)
	}
	return s, errors.Join(errs...)
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Match returns the first rule matching ev. A nil Set matches nothing.
func (s *Set) Match(ev Resolver) (*Rule, bool) {
	if s == nil {
		return nil, false
	}
	for _, r := range s.rules {
		if r.Match(ev) {
			return r, true
		}
	}
	return nil, false
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &orNode{left, right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &andNode{left, right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.keyword("NOT") {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at position %d", t.pos)
		}
		return inner, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (node, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	t := p.next()
	var op string
	switch {
	case t.kind == tokOp:
		op = t.text
	case t.kind == tokIdent && (strings.EqualFold(t.text, opContains) || strings.EqualFold(t.text, opMatches)):
		op = strings.ToLower(t.text)
	default:
		return nil, fmt.Errorf("expected operator at position %d, got %q", t.pos, t.text)
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	c := &cmpNode{op: op, left: left, right: right}
	if op == opMatches {
		lit, ok := right.(literal)
		s, isStr := lit.v.(string)
		if !ok || !isStr {
			return nil, fmt.Errorf("matches requires a string pattern")
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", s, err)
		}
		c.re = re
	}
	return c, nil
}

func (p *parser) operand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return literal{t.text}, nil
	case tokBool:
		return literal{t.text == "true"}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return literal{f}, nil
	case tokIdent:
		return field(strings.Split(t.text, ".")), nil
	}
	return nil, fmt.Errorf("expected operand at position %d", t.pos)
}
