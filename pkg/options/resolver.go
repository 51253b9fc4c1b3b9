package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Default record keys used when a binding leaves LabelKey or ValueKey empty.
const (
	DefaultLabelKey = "name"
	DefaultValueKey = "id"
)

// ErrNoFetcher is returned when a remote field is resolved without a fetcher.
var ErrNoFetcher = errors.New("options: no fetcher configured")

// Outcome classifies a resolution for observers.
type Outcome string

const (
	OutcomeStatic   Outcome = "static"
	OutcomeDisabled Outcome = "disabled"
	OutcomeCached   Outcome = "cached"
	OutcomeFetched  Outcome = "fetched"
	OutcomeFailed   Outcome = "failed"
)

// Observer is notified after every resolution.
type Observer interface {
	ObserveResolution(field string, outcome Outcome)
}

// Resolution is the option state of one field.
type Resolution struct {
	Options  []schema.Option
	Disabled bool
	// Err is non-fatal: the field stays usable as disabled and Err is shown as
	// a hint.
	Err error
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithFetcher sets the candidate loader.
func WithFetcher(f Fetcher) Option {
	return func(r *Resolver) {
		r.fetcher = f
	}
}

// WithCache replaces the default freecache store.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers a resolution observer.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// Resolver turns field descriptors plus current form values into option
// lists. It is safe for concurrent use.
type Resolver struct {
	fetcher  Fetcher
	cache    Cache
	logger   *slog.Logger
	observer Observer

	mu      sync.Mutex
	lastKey map[string]string
}

// NewResolver builds a resolver. Without WithFetcher, remote fields resolve to
// a disabled state carrying ErrNoFetcher.
func NewResolver(options ...Option) *Resolver {
	r := &Resolver{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		lastKey: make(map[string]string),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewFreeCache(DefaultCacheSize, DefaultTTL)
	}
	return r
}

// Resolve returns the option list for field given the current form values.
func (r *Resolver) Resolve(ctx context.Context, field schema.Field, values map[string]any) Resolution {
	binding := field.Remote
	if binding == nil {
		r.observe(field.Name, OutcomeStatic)
		return Resolution{Options: append([]schema.Option(nil), field.Options...)}
	}

	query, ready := dependencyQuery(binding, values)
	slot := binding.Endpoint + "#" + field.Name
	if !ready {
		r.forget(slot)
		r.observe(field.Name, OutcomeDisabled)
		return Resolution{Disabled: true}
	}

	key := CacheKey(binding.Endpoint, query)
	r.remember(slot, key)

	if cached, ok := r.cache.Get(key); ok {
		r.observe(field.Name, OutcomeCached)
		return Resolution{Options: cached}
	}

	if r.fetcher == nil {
		r.observe(field.Name, OutcomeFailed)
		return Resolution{Disabled: true, Err: fmt.Errorf("options: resolve %s: %w", field.Name, ErrNoFetcher)}
	}

	records, err := r.fetcher.Fetch(ctx, Request{
		Endpoint:    binding.Endpoint,
		Query:       query,
		ResultsPath: binding.ResultsPath,
	})
	if err != nil {
		r.logger.Warn("options: fetch failed", "field", field.Name, "endpoint", binding.Endpoint, "error", err)
		r.observe(field.Name, OutcomeFailed)
		return Resolution{Disabled: true, Err: fmt.Errorf("options: resolve %s: %w", field.Name, err)}
	}

	options := Transform(binding, records)
	if err := r.cache.Set(key, options); err != nil {
		r.logger.Debug("options: cache store failed", "key", key, "error", err)
	}
	r.logger.Debug("options: resolved", "field", field.Name, "endpoint", binding.Endpoint, "count", len(options))
	r.observe(field.Name, OutcomeFetched)
	return Resolution{Options: options}
}

// Invalidate drops the cached list for endpoint and the given dependency
// values.
func (r *Resolver) Invalidate(endpoint string, values map[string]any, dependsOn []string) {
	binding := &schema.RemoteBinding{Endpoint: endpoint, DependsOn: dependsOn}
	query, _ := dependencyQuery(binding, values)
	r.cache.Del(CacheKey(endpoint, query))
}

// remember records key as the current entry for slot and evicts the previous
// entry when the dependency values changed.
func (r *Resolver) remember(slot, key string) {
	r.mu.Lock()
	previous, ok := r.lastKey[slot]
	r.lastKey[slot] = key
	r.mu.Unlock()
	if ok && previous != key {
		r.cache.Del(previous)
	}
}

func (r *Resolver) forget(slot string) {
	r.mu.Lock()
	previous, ok := r.lastKey[slot]
	delete(r.lastKey, slot)
	r.mu.Unlock()
	if ok {
		r.cache.Del(previous)
	}
}

func (r *Resolver) observe(field string, outcome Outcome) {
	if r.observer != nil {
		r.observer.ObserveResolution(field, outcome)
	}
}

// dependencyQuery builds the listing filters from the binding's dependencies
// and static params. ready is false when any dependency is unset.
func dependencyQuery(binding *schema.RemoteBinding, values map[string]any) (url.Values, bool) {
	query := url.Values{}
	for key, value := range binding.Params {
		query.Set(key, value)
	}
	ready := true
	for _, dep := range binding.DependsOn {
		value, ok := valuepath.Get(values, dep)
		if !ok || valuepath.IsEmpty(value) {
			ready = false
			continue
		}
		query.Set(dep, predicate.Stringify(value))
	}
	return query, ready
}

// CacheKey serializes an endpoint and its filters. url.Values.Encode sorts by
// key so equal filters always produce the same key.
func CacheKey(endpoint string, query url.Values) string {
	if len(query) == 0 {
		return endpoint
	}
	return endpoint + "?" + query.Encode()
}

// Transform maps candidate records to options, using the binding's transform
// when set. The default reads LabelKey and ValueKey; records without a value
// are skipped and a missing label falls back to the value.
func Transform(binding *schema.RemoteBinding, records []map[string]any) []schema.Option {
	if binding.Transform != nil {
		return binding.Transform(records)
	}
	labelKey := binding.LabelKey
	if labelKey == "" {
		labelKey = DefaultLabelKey
	}
	valueKey := binding.ValueKey
	if valueKey == "" {
		valueKey = DefaultValueKey
	}

	options := make([]schema.Option, 0, len(records))
	for _, record := range records {
		value := pick(record, valueKey)
		if value == "" {
			continue
		}
		label := pick(record, labelKey)
		if label == "" {
			label = value
		}
		options = append(options, schema.Option{Label: label, Value: value})
	}
	return options
}

func pick(record map[string]any, path string) string {
	value, ok := valuepath.Get(record, path)
	if !ok {
		return ""
	}
	return predicate.Stringify(value)
}

// Contains reports whether value is one of options.
func Contains(options []schema.Option, value string) bool {
	for _, option := range options {
		if option.Value == value {
			return true
		}
	}
	return false
}
