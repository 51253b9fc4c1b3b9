package rule

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"status":  "active",
		"premium": 120.5,
		"count":   json.Number("3"),
		"locked":  false,
		"owner":   "true",
		"role":    "admin",
		"notes":   "",
		"company": map[string]any{"name": "Contoso", "size": 40},
		"tags":    []any{"vip"},
		"start":   "2024-03-01",
	}

	cases := []struct {
		rule string
		want bool
	}{
		{"", true},
		{"status == 'active'", true},
		{`status != "archived"`, true},
		{"status == active", false},
		{"premium >= 100", true},
		{"premium < 100", false},
		{"count == 3", true},
		{"count > 2 && count <= 3", true},
		{"locked", false},
		{"!locked", true},
		{"not locked and owner", true},
		{"owner == true", true},
		{"locked == false", true},
		{"notes == null", true},
		{"missing == null", true},
		{"missing", false},
		{"missing > 1", false},
		{"tags", true},
		{"company.name == 'Contoso' && company.size > 10", true},
		{"(role == 'viewer' || role == 'admin') && status == 'active'", true},
		{"role == 'viewer' || role == 'admin' && status == 'archived'", false},
		{"start >= '2024-01-01'", true},
		{"premium == company.size", false},
		{"-1 < premium", true},
		{`role == "ad\"min"`, false},
	}
	for _, tc := range cases {
		got, err := Match(tc.rule, record)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.rule, tc.want, got)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"status = 'active'",
		"status == ",
		"(status == 'active'",
		"status == 'active')",
		"'unterminated",
		"status & other",
		"status == 'a' 'b'",
		"#tag",
	} {
		if _, err := Compile(src); !errors.Is(err, ErrSyntax) {
			t.Fatalf("%q: expected ErrSyntax, got %v", src, err)
		}
		if _, err := Match(src, nil); err == nil {
			t.Fatalf("%q: expected Match to fail", src)
		}
	}
}

func TestRuleString(t *testing.T) {
	t.Parallel()

	r := MustCompile("  status == 'active'  ")
	if r.String() != "status == 'active'" {
		t.Fatalf("unexpected source %q", r.String())
	}
	var nilRule *Rule
	if !nilRule.Match(nil) || nilRule.String() != "" {
		t.Fatalf("nil rule should match and be empty")
	}
}
