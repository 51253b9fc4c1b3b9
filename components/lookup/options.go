package lookup

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
)

// EmptySearchMode decides what an empty search term returns.
type EmptySearchMode string

const (
	// EmptySearchNone answers an empty term with no records.
	EmptySearchNone EmptySearchMode = "none"
	// EmptySearchTop answers an empty term with the first limit records.
	EmptySearchTop EmptySearchMode = "top"
)

// GuardFunc vets a request before the collection is read. A StatusError
// picks the response status; any other error answers 403.
type GuardFunc func(r *http.Request) error

// Options configures a lookup endpoint. The zero value of every field falls
// back to its default.
type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc

	// SearchFields are matched against the search term. Empty means LabelKey.
	SearchFields []string
	LabelKey     string
	ValueKey     string
}

// OptionFn mutates Options.
type OptionFn func(*Options)

// DefaultOptions mounts at /api/lookup, searches "name" with q and returns at
// most 50 records per request (200 when the caller asks for more).
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// NewOptions applies fns over DefaultOptions and fills any field they cleared.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	o.RoutePath = or(o.RoutePath, "/api/lookup")
	o.SearchParam = or(o.SearchParam, "q")
	o.LimitParam = or(o.LimitParam, "limit")
	o.LabelKey = or(o.LabelKey, "name")
	o.ValueKey = or(o.ValueKey, "id")
	o.EmptySearchMode = or(o.EmptySearchMode, EmptySearchTop)
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 50
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 200
	}
	o.SearchFields = slices.Clone(o.SearchFields)
	return o
}

func or[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) { o.RoutePath = path }
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) { o.SearchParam = name }
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) { o.LimitParam = name }
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) { o.DefaultLimit = limit }
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) { o.MaxLimit = limit }
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) { o.EmptySearchMode = mode }
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

func WithSearchFields(fields ...string) OptionFn {
	return func(o *Options) { o.SearchFields = slices.Clone(fields) }
}

// WithKeys sets the record keys a binding reads labels and values from.
func WithKeys(labelKey, valueKey string) OptionFn {
	return func(o *Options) {
		o.LabelKey = labelKey
		o.ValueKey = valueKey
	}
}

func (o Options) searchFields() []string {
	if len(o.SearchFields) > 0 {
		return o.SearchFields
	}
	return []string{o.LabelKey}
}

// limit reads the limit parameter: missing or malformed means DefaultLimit,
// negative means none, anything above MaxLimit is capped.
func (o Options) limit(params url.Values) int {
	n, err := strconv.Atoi(params.Get(o.LimitParam))
	switch {
	case err != nil || n == 0:
		n = o.DefaultLimit
	case n < 0:
		return 0
	}
	return min(n, o.MaxLimit)
}
