package lookup

import (
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Search filters records by params and the search term, ranks prefix matches
// first and truncates to the clamped limit. The search and limit parameters
// are read from params; every other parameter must equal the record value of
// the same key when the record has that key.
func Search(records []schema.Row, params url.Values, opts Options) []schema.Row {
	limit := opts.limit(params)
	if limit == 0 {
		return nil
	}

	candidates := make([]schema.Row, 0, len(records))
	for _, record := range records {
		if matchesParams(record, params, opts) {
			candidates = append(candidates, record)
		}
	}

	query := strings.TrimSpace(params.Get(opts.SearchParam))
	if query == "" {
		if opts.EmptySearchMode != EmptySearchTop {
			return nil
		}
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		return cloneRows(candidates)
	}

	matches := make([]matchedRecord, 0, 32)
	for i, record := range candidates {
		prefix, ok := matchRecord(record, query, opts.searchFields())
		if !ok {
			continue
		}
		matches = append(matches, matchedRecord{record: record, isPrefix: prefix, order: i})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].order < matches[j].order
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]schema.Row, 0, len(matches))
	for _, match := range matches {
		out = append(out, valuepath.Clone(match.record))
	}
	return out
}

// SearchOptions is Search mapped through the label and value keys.
func SearchOptions(records []schema.Row, params url.Values, opts Options) []schema.Option {
	results := Search(records, params, opts)
	if len(results) == 0 {
		return nil
	}

	out := make([]schema.Option, 0, len(results))
	for _, record := range results {
		value, _ := valuepath.Get(record, opts.ValueKey)
		label, _ := valuepath.Get(record, opts.LabelKey)
		out = append(out, schema.Option{Value: predicate.Stringify(value), Label: predicate.Stringify(label)})
	}
	return out
}

type matchedRecord struct {
	record   schema.Row
	isPrefix bool
	order    int
}

func matchRecord(record schema.Row, query string, fields []string) (prefix, ok bool) {
	for _, field := range fields {
		value, found := valuepath.Get(record, field)
		if !found {
			continue
		}
		if predicate.Match(value, query, schema.MatchStartsWith) {
			return true, true
		}
		if predicate.Match(value, query, schema.MatchContains) {
			ok = true
		}
	}
	return false, ok
}

func matchesParams(record schema.Row, params url.Values, opts Options) bool {
	for key, values := range params {
		if key == opts.SearchParam || key == opts.LimitParam || len(values) == 0 {
			continue
		}
		value, found := valuepath.Get(record, key)
		if !found {
			continue
		}
		if !predicate.Match(value, values[0], schema.MatchEquals) {
			return false
		}
	}
	return true
}

func cloneRows(rows []schema.Row) []schema.Row {
	out := make([]schema.Row, len(rows))
	for i, row := range rows {
		out[i] = valuepath.Clone(row)
	}
	return out
}
