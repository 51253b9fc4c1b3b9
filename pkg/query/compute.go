package query

import (
	"slices"

	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Result is the visible slice of a locally computed query.
type Result struct {
	Rows      []schema.Row
	TotalRows int
	PageCount int
	// HasMore is true while rows beyond the visible window remain.
	HasMore bool
}

// Compute filters, sorts and windows rows according to state. It never
// mutates rows and returns the same result for the same inputs.
func Compute(rows []schema.Row, columns []schema.Column, state State, behavior schema.ListBehavior) Result {
	filtered := FilterRows(rows, columns, state)
	sorted := SortRows(filtered, columns, state.Sort)
	window, hasMore := Window(sorted, state.PageIndex, state.PageSize, behavior)
	return Result{
		Rows:      window,
		TotalRows: len(sorted),
		PageCount: PageCount(len(sorted), state.PageSize),
		HasMore:   hasMore,
	}
}

// FilterRows keeps rows that pass every active column filter and, when a
// global term is set, contain the term in at least one searchable column.
// Filters on fields that are not filterable columns are ignored.
func FilterRows(rows []schema.Row, columns []schema.Column, state State) []schema.Row {
	byField := make(map[string]schema.Column, len(columns))
	for _, column := range columns {
		byField[column.Field] = column
	}

	out := make([]schema.Row, 0, len(rows))
	for _, row := range rows {
		if matchesRow(row, columns, byField, state) {
			out = append(out, row)
		}
	}
	return out
}

func matchesRow(row schema.Row, columns []schema.Column, byField map[string]schema.Column, state State) bool {
	for field, filter := range state.Filters {
		if filter.Text == "" {
			continue
		}
		column, ok := byField[field]
		if !ok || !column.IsFilterable() {
			continue
		}
		mode := filter.Match
		if mode == "" {
			mode = column.MatchMode()
		}
		if !predicate.Match(column.Value(row), filter.Text, mode) {
			return false
		}
	}

	if state.Global == "" {
		return true
	}
	for _, column := range columns {
		if !column.IsSearchable() {
			continue
		}
		if predicate.Match(column.Value(row), state.Global, schema.MatchContains) {
			return true
		}
	}
	return false
}

// SortRows returns a stably sorted copy. Ties keep their input order in both
// directions. A sort on a field that is not a sortable column leaves the
// input order.
func SortRows(rows []schema.Row, columns []schema.Column, sort Sort) []schema.Row {
	out := slices.Clone(rows)
	if !sort.Active() {
		return out
	}

	var value func(schema.Row) any
	for _, column := range columns {
		if column.Field == sort.Field && column.IsSortable() {
			value = column.Value
			break
		}
	}
	if value == nil {
		return out
	}

	slices.SortStableFunc(out, func(a, b schema.Row) int {
		if sort.Direction == DirectionDesc {
			return predicate.Compare(value(b), value(a))
		}
		return predicate.Compare(value(a), value(b))
	})
	return out
}

// Window cuts the visible rows. Paged lists show [page*size, page*size+size);
// infinite lists show everything loaded so far, [0, (page+1)*size).
func Window(rows []schema.Row, pageIndex, pageSize int, behavior schema.ListBehavior) ([]schema.Row, bool) {
	if pageSize <= 0 {
		pageSize = schema.DefaultPageSize
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	start := pageIndex * pageSize
	if behavior == schema.ListInfinite {
		start = 0
	}
	end := (pageIndex + 1) * pageSize
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	return slices.Clone(rows[start:end]), end < len(rows)
}

// PageCount returns the number of pages needed for total rows.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
