package rule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
)

type node interface {
	eval(values map[string]any) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(values map[string]any) bool {
	return n.left.eval(values) || n.right.eval(values)
}

type andNode struct{ left, right node }

func (n andNode) eval(values map[string]any) bool {
	return n.left.eval(values) && n.right.eval(values)
}

type notNode struct{ inner node }

func (n notNode) eval(values map[string]any) bool {
	return !n.inner.eval(values)
}

type truthyNode struct{ operand operand }

func (n truthyNode) eval(values map[string]any) bool {
	return truthy(n.operand.resolve(values))
}

// operand is either a literal or a dotted path into the record.
type operand struct {
	literal bool
	path    string
	value   any
}

func (o operand) resolve(values map[string]any) any {
	if o.literal {
		return o.value
	}
	v, _ := valuepath.Get(values, o.path)
	return v
}

type compareNode struct {
	op          tokenKind
	left, right operand
}

func (n compareNode) eval(values map[string]any) bool {
	a, b := n.left.resolve(values), n.right.resolve(values)
	switch n.op {
	case tokEq:
		return equal(a, b)
	case tokNeq:
		return !equal(a, b)
	}

	if valuepath.IsEmpty(a) || valuepath.IsEmpty(b) {
		return false
	}
	c := order(a, b)
	switch n.op {
	case tokLt:
		return c < 0
	case tokLte:
		return c <= 0
	case tokGt:
		return c > 0
	default:
		return c >= 0
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return valuepath.IsEmpty(a) && valuepath.IsEmpty(b)
	}
	if want, ok := b.(bool); ok {
		got, _ := toBool(a)
		return got == want
	}
	if want, ok := a.(bool); ok {
		got, _ := toBool(b)
		return got == want
	}
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
	}
	return text(a) == text(b)
}

func order(a, b any) int {
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(text(a), text(b))
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return strings.TrimSpace(t) != ""
	}
	if n, ok := toNumber(v); ok {
		return n != 0
	}
	return !valuepath.IsEmpty(v)
}

func toBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if s, ok := v.(string); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		return b, err == nil
	}
	return truthy(v), false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
