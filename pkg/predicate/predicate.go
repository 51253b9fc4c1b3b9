// Package predicate holds the pure comparison functions used when the grid
// filters and sorts rows itself: matching a field value against a filter term
// under a match mode, and ordering two field values.
package predicate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Stringify renders a field value the way filters see it. Nil becomes the
// empty string; times use RFC3339; slices join their elements with ", ".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// Match reports whether value passes term under mode. The comparison is
// case-insensitive and an empty term always matches.
func Match(value any, term string, mode schema.MatchMode) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	haystack := strings.ToLower(Stringify(value))
	switch mode {
	case schema.MatchStartsWith:
		return strings.HasPrefix(haystack, needle)
	case schema.MatchEndsWith:
		return strings.HasSuffix(haystack, needle)
	case schema.MatchEquals:
		return haystack == needle
	default:
		return strings.Contains(haystack, needle)
	}
}

// Compare orders two field values. Values are ranked by kind first: blanks,
// then numbers (numeric strings included), times, booleans, and finally
// everything else. Within a kind numbers compare numerically, times
// chronologically, false before true, and the rest by case-insensitive
// string comparison. Ranking by kind keeps the order total when a column
// mixes numeric and non-numeric text.
func Compare(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	switch ka {
	case kindBlank:
		return 0
	case kindNumber:
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		return compareFloat(x, y)
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time))
	case kindBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(strings.ToLower(Stringify(a)), strings.ToLower(Stringify(b)))
}

type valueKind int

const (
	kindBlank valueKind = iota
	kindNumber
	kindTime
	kindBool
	kindText
)

func kindOf(value any) valueKind {
	if isBlank(value) {
		return kindBlank
	}
	if _, ok := toFloat(value); ok {
		return kindNumber
	}
	switch value.(type) {
	case time.Time:
		return kindTime
	case bool:
		return kindBool
	}
	return kindText
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}

func compareFloat(x, y float64) int {
	switch {
	case math.IsNaN(x) && math.IsNaN(y):
		return 0
	case math.IsNaN(x) || x < y:
		return -1
	case math.IsNaN(y) || x > y:
		return 1
	default:
		return 0
	}
}

// toFloat accepts Go numeric kinds plus numeric strings so JSON-decoded rows
// ("12", 12.0) sort the same way typed rows do.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
