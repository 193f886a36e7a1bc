package filter

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	opContains = "contains"
	opMatches  = "matches"
)

type operand interface {
	value(r Resolver) (interface{}, bool)
}

type literal struct{ v interface{} }

func (l literal) value(Resolver) (interface{}, bool) { return l.v, true }

type field []string

func (f field) value(r Resolver) (interface{}, bool) { return r.Resolve(f) }

type cmpNode struct {
	op          string
	left, right operand
	re          *regexp.Regexp
}

func (c *cmpNode) eval(r Resolver) bool {
	lv, ok := c.left.value(r)
	if !ok {
		return false
	}
	rv, ok := c.right.value(r)
	if !ok {
		return false
	}
	switch c.op {
	case "==":
		return equal(lv, rv)
	case "!=":
		return !equal(lv, rv)
	case ">", ">=", "<", "<=":
		lf, lok := number(lv)
		rf, rok := number(rv)
		if !lok || !rok {
			return false
		}
		switch c.op {
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		case "<":
			return lf < rf
		default:
			return lf <= rf
		}
	case opContains:
		s, ok := lv.(string)
		return ok && strings.Contains(s, fmt.Sprint(rv))
	case opMatches:
		s, ok := lv.(string)
		return ok && c.re.MatchString(s)
	}
	return false
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func equal(a, b interface{}) bool {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		return af == bf
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
