package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/rule"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// DateLayout is the plain date format accepted next to RFC3339.
const DateLayout = "2006-01-02"

// rules is the compiled validation state of one field.
type rules struct {
	field   schema.Field
	pattern *regexp.Regexp
	visible *rule.Rule
}

func compileRules(field schema.Field) rules {
	r := rules{field: field}
	if field.Pattern != "" {
		if re, err := regexp.Compile(field.Pattern); err == nil {
			r.pattern = re
		}
	}
	if field.VisibleWhen != "" {
		if compiled, err := rule.Compile(field.VisibleWhen); err == nil {
			r.visible = compiled
		}
	}
	return r
}

// check returns the messages for value. choices is nil when the option set
// is unknown, in which case membership is not enforced.
func (r rules) check(value any, choices []schema.Option) []string {
	field := r.field
	if valuepath.IsEmpty(value) {
		if field.Required {
			return []string{"is required"}
		}
		return nil
	}

	switch field.InputKind() {
	case schema.KindNumber:
		return r.checkNumber(value)
	case schema.KindDate:
		return r.checkDate(value)
	case schema.KindSelect:
		if choices != nil && !options.Contains(choices, predicate.Stringify(value)) {
			return []string{"is not one of the available options"}
		}
		return nil
	case schema.KindMultiSelect:
		return r.checkMulti(value, choices)
	case schema.KindFile:
		return nil
	default:
		return r.checkText(value)
	}
}

func (r rules) checkText(value any) []string {
	field := r.field
	text, ok := value.(string)
	if !ok {
		text = predicate.Stringify(value)
	}

	var msgs []string
	length := utf8.RuneCountInString(text)
	if field.Min != nil && float64(length) < *field.Min {
		msgs = append(msgs, fmt.Sprintf("must be at least %s characters", formatBound(*field.Min)))
	}
	if field.Max != nil && float64(length) > *field.Max {
		msgs = append(msgs, fmt.Sprintf("must be at most %s characters", formatBound(*field.Max)))
	}
	if r.pattern != nil && !r.pattern.MatchString(text) {
		msgs = append(msgs, "does not match the required pattern")
	}
	if field.InputKind() == schema.KindEmail {
		if err := schema.Validator().Var(text, "email"); err != nil {
			msgs = append(msgs, "must be a valid email address")
		}
	}
	return msgs
}

func (r rules) checkNumber(value any) []string {
	field := r.field
	n, ok := ParseNumber(value)
	if !ok {
		return []string{"must be a number"}
	}
	var msgs []string
	if field.Min != nil && n < *field.Min {
		msgs = append(msgs, fmt.Sprintf("must be at least %s", formatBound(*field.Min)))
	}
	if field.Max != nil && n > *field.Max {
		msgs = append(msgs, fmt.Sprintf("must be at most %s", formatBound(*field.Max)))
	}
	return msgs
}

// checkDate treats Min and Max as Unix seconds.
func (r rules) checkDate(value any) []string {
	field := r.field
	when, ok := ParseDate(value)
	if !ok {
		return []string{"must be a date (YYYY-MM-DD)"}
	}
	var msgs []string
	if field.Min != nil && when.Before(time.Unix(int64(*field.Min), 0)) {
		msgs = append(msgs, "must not be before "+time.Unix(int64(*field.Min), 0).UTC().Format(DateLayout))
	}
	if field.Max != nil && when.After(time.Unix(int64(*field.Max), 0)) {
		msgs = append(msgs, "must not be after "+time.Unix(int64(*field.Max), 0).UTC().Format(DateLayout))
	}
	return msgs
}

func (r rules) checkMulti(value any, choices []schema.Option) []string {
	field := r.field
	selected := Selection(value)
	var msgs []string
	if field.Min != nil && float64(len(selected)) < *field.Min {
		msgs = append(msgs, fmt.Sprintf("select at least %s", formatBound(*field.Min)))
	}
	if field.Max != nil && float64(len(selected)) > *field.Max {
		msgs = append(msgs, fmt.Sprintf("select at most %s", formatBound(*field.Max)))
	}
	if choices != nil {
		for _, item := range selected {
			if !options.Contains(choices, item) {
				msgs = append(msgs, fmt.Sprintf("%q is not one of the available options", item))
			}
		}
	}
	return msgs
}

// ParseNumber accepts Go numeric kinds and numeric strings.
func ParseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ParseDate accepts time.Time, RFC3339 strings and DateLayout strings.
func ParseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		raw := strings.TrimSpace(v)
		if when, err := time.Parse(time.RFC3339, raw); err == nil {
			return when, true
		}
		if when, err := time.Parse(DateLayout, raw); err == nil {
			return when, true
		}
	}
	return time.Time{}, false
}

// Selection normalizes a multi-select value into option values.
func Selection(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, predicate.Stringify(item))
		}
		return out
	default:
		s := predicate.Stringify(v)
		if s == "" {
			return nil
		}
		return []string{s}
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
