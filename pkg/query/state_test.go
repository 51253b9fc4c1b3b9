package query

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

func TestDescriptorDropsBlankFiltersAndInactiveSort(t *testing.T) {
	t.Parallel()

	state := State{
		PageIndex: 1,
		PageSize:  20,
		Sort:      Sort{Field: "name"},
		Filters: map[string]Filter{
			"name": {Text: "acme", Match: schema.MatchContains},
			"city": {Text: ""},
		},
		Global: "x",
		Mode:   ModeServer,
	}

	want := Descriptor{
		Page:          1,
		PageSize:      20,
		ColumnFilters: map[string]Filter{"name": {Text: "acme", Match: schema.MatchContains}},
		GlobalFilter:  "x",
	}
	if diff := cmp.Diff(want, state.Descriptor()); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorQueryParameters(t *testing.T) {
	t.Parallel()

	d := Descriptor{
		Page:          2,
		PageSize:      10,
		SortField:     "name",
		SortDirection: DirectionDesc,
		GlobalFilter:  "acme",
		ColumnFilters: map[string]Filter{"city": {Text: "Ber", Match: schema.MatchStartsWith}},
	}

	values := d.Values()
	want := url.Values{
		"page":         {"2"},
		"pageSize":     {"10"},
		"sort":         {"name"},
		"order":        {"desc"},
		"q":            {"acme"},
		"filter[city]": {"Ber"},
		"match[city]":  {"startsWith"},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(d, ParseDescriptor(values, 25)); diff != "" {
		t.Fatalf("parsed descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDescriptorRejectsBadInput(t *testing.T) {
	t.Parallel()

	values := url.Values{
		"page":     {"-3"},
		"pageSize": {"abc"},
		"sort":     {"name"},
		"order":    {"sideways"},
		"filter[]": {"x"},
	}
	want := Descriptor{PageSize: 25}
	if diff := cmp.Diff(want, ParseDescriptor(values, 25)); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestStateCloneIsIndependent(t *testing.T) {
	t.Parallel()

	s := State{Filters: map[string]Filter{"name": {Text: "a"}}}
	clone := s.Clone()
	clone.Filters["name"] = Filter{Text: "b"}
	if s.Filters["name"].Text != "a" {
		t.Fatalf("clone shares filter map with original")
	}
}
