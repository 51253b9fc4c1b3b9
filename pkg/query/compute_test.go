package query

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

func companyRows() []schema.Row {
	rows := make([]schema.Row, 0, 23)
	for i := 0; i < 23; i++ {
		name := fmt.Sprintf("Globex %02d", i)
		if i < 15 {
			name = fmt.Sprintf("Acme %02d", i)
		}
		rows = append(rows, schema.Row{"id": i, "name": name, "city": "Berlin"})
	}
	return rows
}

var computeColumns = []schema.Column{
	{Field: "name"},
	{Field: "city"},
	{Field: "score"},
}

func TestComputeGlobalSearchPages(t *testing.T) {
	t.Parallel()

	rows := companyRows()
	state := State{PageSize: 10, Global: "acme"}

	first := Compute(rows, computeColumns, state, schema.ListPaged)
	if first.TotalRows != 15 || first.PageCount != 2 || len(first.Rows) != 10 || !first.HasMore {
		t.Fatalf("first page: total=%d pages=%d rows=%d more=%v", first.TotalRows, first.PageCount, len(first.Rows), first.HasMore)
	}

	state.PageIndex = 1
	second := Compute(rows, computeColumns, state, schema.ListPaged)
	if second.TotalRows != 15 || len(second.Rows) != 5 || second.HasMore {
		t.Fatalf("second page: total=%d rows=%d more=%v", second.TotalRows, len(second.Rows), second.HasMore)
	}
	if got := second.Rows[0]["name"]; got != "Acme 10" {
		t.Fatalf("second page starts at %v, want Acme 10", got)
	}
}

func TestComputeInfiniteWindowsFromStart(t *testing.T) {
	t.Parallel()

	state := State{PageSize: 10, PageIndex: 1}
	result := Compute(companyRows(), computeColumns, state, schema.ListInfinite)
	if len(result.Rows) != 20 || !result.HasMore || result.TotalRows != 23 {
		t.Fatalf("infinite window: rows=%d more=%v total=%d", len(result.Rows), result.HasMore, result.TotalRows)
	}

	state.PageIndex = 2
	result = Compute(companyRows(), computeColumns, state, schema.ListInfinite)
	if len(result.Rows) != 23 || result.HasMore {
		t.Fatalf("infinite window: rows=%d more=%v", len(result.Rows), result.HasMore)
	}
}

func TestComputeIsIdempotentAndDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rows := companyRows()
	before := companyRows()
	state := State{PageSize: 7, Global: "0", Sort: Sort{Field: "name", Direction: DirectionDesc}}

	a := Compute(rows, computeColumns, state, schema.ListPaged)
	b := Compute(rows, computeColumns, state, schema.ListPaged)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("compute not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, rows); diff != "" {
		t.Fatalf("input rows mutated (-want +got):\n%s", diff)
	}
}

func TestComputeColumnFiltersAreConjunctive(t *testing.T) {
	t.Parallel()

	rows := []schema.Row{
		{"id": 1, "name": "Acme", "city": "Berlin"},
		{"id": 2, "name": "Acme", "city": "Paris"},
		{"id": 3, "name": "Initech", "city": "Berlin"},
	}
	state := State{PageSize: 10, Filters: map[string]Filter{
		"name": {Text: "acme"},
		"city": {Text: "ber", Match: schema.MatchStartsWith},
	}}

	result := Compute(rows, computeColumns, state, schema.ListPaged)
	if len(result.Rows) != 1 || result.Rows[0]["id"] != 1 {
		t.Fatalf("unexpected rows: %+v", result.Rows)
	}
}

func TestComputeGlobalSearchSkipsUnsearchableColumns(t *testing.T) {
	t.Parallel()

	columns := []schema.Column{
		{Field: "name"},
		{Field: "secret", Searchable: schema.Bool(false)},
	}
	rows := []schema.Row{
		{"id": 1, "name": "Acme", "secret": "needle"},
		{"id": 2, "name": "needle corp", "secret": ""},
	}
	result := Compute(rows, columns, State{PageSize: 10, Global: "needle"}, schema.ListPaged)
	if len(result.Rows) != 1 || result.Rows[0]["id"] != 2 {
		t.Fatalf("unexpected rows: %+v", result.Rows)
	}
}

func TestSortRowsIsStableInBothDirections(t *testing.T) {
	t.Parallel()

	rows := []schema.Row{
		{"id": 1, "score": 2},
		{"id": 2, "score": 1},
		{"id": 3, "score": 2},
		{"id": 4, "score": nil},
		{"id": 5, "score": 1},
	}
	ids := func(in []schema.Row) []int {
		out := make([]int, 0, len(in))
		for _, row := range in {
			out = append(out, row["id"].(int))
		}
		return out
	}

	asc := SortRows(rows, computeColumns, Sort{Field: "score", Direction: DirectionAsc})
	if diff := cmp.Diff([]int{4, 2, 5, 1, 3}, ids(asc)); diff != "" {
		t.Fatalf("ascending order mismatch (-want +got):\n%s", diff)
	}

	desc := SortRows(rows, computeColumns, Sort{Field: "score", Direction: DirectionDesc})
	if diff := cmp.Diff([]int{1, 3, 2, 5, 4}, ids(desc)); diff != "" {
		t.Fatalf("descending order mismatch (-want +got):\n%s", diff)
	}

	none := SortRows(rows, computeColumns, Sort{})
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, ids(none)); diff != "" {
		t.Fatalf("unsorted order mismatch (-want +got):\n%s", diff)
	}
}

func TestSortRowsUsesAccessor(t *testing.T) {
	t.Parallel()

	columns := []schema.Column{{
		Field:    "company",
		Accessor: func(row schema.Row) any { return row["company"].(map[string]any)["name"] },
	}}
	rows := []schema.Row{
		{"id": 1, "company": map[string]any{"name": "Zeta"}},
		{"id": 2, "company": map[string]any{"name": "alpha"}},
	}
	sorted := SortRows(rows, columns, Sort{Field: "company", Direction: DirectionAsc})
	if sorted[0]["id"] != 2 {
		t.Fatalf("accessor not used for sorting: %+v", sorted)
	}
}

func TestWindowOutOfRange(t *testing.T) {
	t.Parallel()

	rows, more := Window(companyRows(), 9, 10, schema.ListPaged)
	if len(rows) != 0 || more {
		t.Fatalf("out of range page: rows=%d more=%v", len(rows), more)
	}
	if got := PageCount(0, 10); got != 0 {
		t.Fatalf("PageCount(0, 10) = %d", got)
	}
	if got := PageCount(21, 10); got != 3 {
		t.Fatalf("PageCount(21, 10) = %d", got)
	}
}

func TestComputeIgnoresCriteriaOutsideColumns(t *testing.T) {
	t.Parallel()

	columns := []schema.Column{
		{Field: "name"},
		{Field: "insurer", Sortable: schema.Bool(false), Filterable: schema.Bool(false)},
	}
	rows := []schema.Row{
		{"id": 1, "name": "Beta", "insurer": "acme", "secret": "token"},
		{"id": 2, "name": "Alpha", "insurer": "globex", "secret": "other"},
	}
	state := State{
		PageSize: 10,
		Sort:     Sort{Field: "insurer", Direction: DirectionDesc},
		Filters: map[string]Filter{
			"insurer": {Text: "globex"},
			"secret":  {Text: "token"},
		},
	}

	result := Compute(rows, columns, state, schema.ListPaged)
	var ids []int
	for _, row := range result.Rows {
		ids = append(ids, row["id"].(int))
	}
	if diff := cmp.Diff([]int{1, 2}, ids); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}
