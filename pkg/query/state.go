package query

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Mode says who executes the query.
type Mode string

const (
	// ModeLocal filters, sorts and pages the supplied rows in memory.
	ModeLocal Mode = "local"
	// ModeServer emits a Descriptor and trusts the caller's rows as already
	// windowed.
	ModeServer Mode = "server"
)

// Direction is a sort direction. The zero value means unsorted.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Sort is the single-column sort spec.
type Sort struct {
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Active reports whether a sort is set.
func (s Sort) Active() bool {
	return s.Field != "" && s.Direction != DirectionNone
}

// Filter is the raw text typed into a column filter plus its match mode.
type Filter struct {
	Text  string           `json:"value"`
	Match schema.MatchMode `json:"matchMode"`
}

// State is what the user is currently asking to see.
type State struct {
	PageIndex int               `json:"pageIndex"`
	PageSize  int               `json:"pageSize"`
	Sort      Sort              `json:"sort"`
	Filters   map[string]Filter `json:"filters,omitempty"`
	Global    string            `json:"global,omitempty"`
	Mode      Mode              `json:"mode"`
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	out := s
	if len(s.Filters) > 0 {
		out.Filters = make(map[string]Filter, len(s.Filters))
		for k, v := range s.Filters {
			out.Filters[k] = v
		}
	} else {
		out.Filters = nil
	}
	return out
}

// Descriptor is the normalized query handed to a server-delegating caller.
type Descriptor struct {
	Page          int               `json:"page"`
	PageSize      int               `json:"pageSize"`
	SortField     string            `json:"sortField,omitempty"`
	SortDirection Direction         `json:"sortDirection,omitempty"`
	ColumnFilters map[string]Filter `json:"columnFilters,omitempty"`
	GlobalFilter  string            `json:"globalFilter,omitempty"`
}

// Descriptor normalizes s: blank filters are dropped and an inactive sort is
// reported as empty.
func (s State) Descriptor() Descriptor {
	d := Descriptor{
		Page:         s.PageIndex,
		PageSize:     s.PageSize,
		GlobalFilter: s.Global,
	}
	if s.Sort.Active() {
		d.SortField = s.Sort.Field
		d.SortDirection = s.Sort.Direction
	}
	for field, filter := range s.Filters {
		if filter.Text == "" {
			continue
		}
		if d.ColumnFilters == nil {
			d.ColumnFilters = make(map[string]Filter, len(s.Filters))
		}
		d.ColumnFilters[field] = filter
	}
	return d
}

// Values encodes the descriptor as listing-endpoint query parameters:
// page, pageSize, sort, order, q, filter[<field>] and match[<field>].
func (d Descriptor) Values() url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(d.Page))
	values.Set("pageSize", strconv.Itoa(d.PageSize))
	if d.SortField != "" {
		values.Set("sort", d.SortField)
		values.Set("order", string(d.SortDirection))
	}
	if d.GlobalFilter != "" {
		values.Set("q", d.GlobalFilter)
	}
	fields := make([]string, 0, len(d.ColumnFilters))
	for field := range d.ColumnFilters {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		filter := d.ColumnFilters[field]
		values.Set("filter["+field+"]", filter.Text)
		if filter.Match != "" {
			values.Set("match["+field+"]", string(filter.Match))
		}
	}
	return values
}

// ParseDescriptor is the inverse of Descriptor.Values, for handlers that serve
// a grid in server mode.
func ParseDescriptor(values url.Values, defaultPageSize int) Descriptor {
	d := Descriptor{
		PageSize:      defaultPageSize,
		SortField:     values.Get("sort"),
		SortDirection: Direction(values.Get("order")),
		GlobalFilter:  values.Get("q"),
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page >= 0 {
		d.Page = page
	}
	if size, err := strconv.Atoi(values.Get("pageSize")); err == nil && size > 0 {
		d.PageSize = size
	}
	if d.SortField == "" || (d.SortDirection != DirectionAsc && d.SortDirection != DirectionDesc) {
		d.SortField, d.SortDirection = "", DirectionNone
	}
	for key, raw := range values {
		if len(raw) == 0 || len(key) < len("filter[]") || key[:7] != "filter[" || key[len(key)-1] != ']' {
			continue
		}
		field := key[7 : len(key)-1]
		if field == "" || raw[0] == "" {
			continue
		}
		if d.ColumnFilters == nil {
			d.ColumnFilters = make(map[string]Filter)
		}
		d.ColumnFilters[field] = Filter{Text: raw[0], Match: schema.MatchMode(values.Get("match[" + field + "]"))}
	}
	return d
}

// State converts a descriptor back into a local query state.
func (d Descriptor) State() State {
	s := State{
		PageIndex: d.Page,
		PageSize:  d.PageSize,
		Global:    d.GlobalFilter,
		Mode:      ModeLocal,
		Sort:      Sort{Field: d.SortField, Direction: d.SortDirection},
	}
	if len(d.ColumnFilters) > 0 {
		s.Filters = make(map[string]Filter, len(d.ColumnFilters))
		for k, v := range d.ColumnFilters {
			s.Filters[k] = v
		}
	}
	return s
}
