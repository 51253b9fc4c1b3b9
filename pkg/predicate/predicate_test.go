package predicate

import (
	"testing"
	"time"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

var allModes = []schema.MatchMode{
	schema.MatchContains,
	schema.MatchStartsWith,
	schema.MatchEndsWith,
	schema.MatchEquals,
	"",
}

func TestMatchEmptyTermAlwaysMatches(t *testing.T) {
	t.Parallel()

	values := []any{nil, "", "Acme", 42, 3.5, true, time.Now(), []any{"x"}}
	for _, mode := range allModes {
		for _, value := range values {
			if !Match(value, "", mode) {
				t.Fatalf("Match(%#v, \"\", %q) = false", value, mode)
			}
		}
	}
}

func TestMatchModes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value any
		term  string
		mode  schema.MatchMode
		want  bool
	}{
		{"Acme Insurance", "ACME", schema.MatchContains, true},
		{"Acme Insurance", "insur", schema.MatchContains, true},
		{"Acme Insurance", "insur", schema.MatchStartsWith, false},
		{"Acme Insurance", "acme", schema.MatchStartsWith, true},
		{"Acme Insurance", "ANCE", schema.MatchEndsWith, true},
		{"Acme Insurance", "acme", schema.MatchEndsWith, false},
		{"Acme", "acme", schema.MatchEquals, true},
		{"Acme Ltd", "acme", schema.MatchEquals, false},
		{1200, "12", schema.MatchStartsWith, true},
		{nil, "x", schema.MatchContains, false},
		{[]any{"gold", "silver"}, "silver", schema.MatchContains, true},
		{"Acme", "cm", "", true},
	}
	for _, tc := range cases {
		if got := Match(tc.value, tc.term, tc.mode); got != tc.want {
			t.Fatalf("Match(%#v, %q, %q) = %v, want %v", tc.value, tc.term, tc.mode, got, tc.want)
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	cases := []struct {
		a, b any
		want int
	}{
		{1, 2, -1},
		{2.5, 2, 1},
		{"10", 9, 1},
		{"10", "9", 1},
		{"apple", "Banana", -1},
		{"b", "B", 0},
		{nil, "a", -1},
		{"a", nil, 1},
		{nil, nil, 0},
		{"", 0, -1},
		{false, true, -1},
		{true, true, 0},
		{late, early, 1},
		{"10a", "2", 1},
		{7, "abc", -1},
		{true, "abc", -1},
	}
	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Fatalf("Compare(%#v, %#v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCompareIsTransitiveOnMixedText(t *testing.T) {
	t.Parallel()

	values := []any{"10a", "2", "10", "b", 3, "", nil, "Apple"}
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				if Compare(a, b) <= 0 && Compare(b, c) <= 0 && Compare(a, c) > 0 {
					t.Fatalf("order not transitive: %#v <= %#v <= %#v but %#v > %#v", a, b, c, a, c)
				}
			}
		}
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{12, "12"},
		{when, "2024-05-06T07:08:09Z"},
		{time.Time{}, ""},
		{[]string{"a", "b"}, "a, b"},
	}
	for _, tc := range cases {
		if got := Stringify(tc.in); got != tc.want {
			t.Fatalf("Stringify(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
