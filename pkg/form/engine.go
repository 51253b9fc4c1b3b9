package form

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// State is the lifecycle position of a form instance.
type State string

const (
	StateClean      State = "clean"
	StateDirty      State = "dirty"
	StateSubmitting State = "submitting"
	StateInvalid    State = "invalid"
	StateFailed     State = "failed"
	StateClosed     State = "closed"
)

// OptionResolver produces the option set of a choice field.
type OptionResolver interface {
	Resolve(ctx context.Context, field schema.Field, values map[string]any) options.Resolution
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithID pins the instance id. Tests use it for stable output.
func WithID(id uuid.UUID) Option {
	return func(e *Engine) {
		e.id = id
	}
}

// Engine is one create/edit form instance. It is created when a form opens
// and discarded when it closes; every instance has a unique id.
type Engine struct {
	mu sync.Mutex

	id       uuid.UUID
	cfg      schema.Configuration
	original schema.Row
	creating bool
	resolver OptionResolver
	logger   *slog.Logger

	values      map[string]any
	state       State
	errors      FieldErrors
	rules       map[string]rules
	resolutions map[string]options.Resolution
	generations map[string]uint64
	// dependents maps a field to the remote fields scoped by its value.
	dependents map[string][]string
}

// New opens a form over record. A nil record opens a create form seeded with
// field defaults; otherwise the record is copied and edited. resolver may be
// nil when no field has a remote binding.
func New(cfg schema.Configuration, record schema.Row, resolver OptionResolver, opts ...Option) *Engine {
	e := &Engine{
		id:          uuid.New(),
		cfg:         cfg,
		creating:    record == nil,
		original:    valuepath.Clone(record),
		resolver:    resolver,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		values:      make(map[string]any, len(cfg.Form.Fields)),
		state:       StateClean,
		errors:      FieldErrors{},
		rules:       make(map[string]rules, len(cfg.Form.Fields)),
		resolutions: make(map[string]options.Resolution),
		generations: make(map[string]uint64),
		dependents:  make(map[string][]string),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}

	for _, field := range cfg.Form.Fields {
		e.rules[field.Name] = compileRules(field)
		for _, dep := range field.RemoteDependencies() {
			e.dependents[dep] = append(e.dependents[dep], field.Name)
		}
		if field.HasChoices() && field.Remote == nil {
			e.resolutions[field.Name] = options.Resolution{Options: slices.Clone(field.Options)}
		}

		if e.creating {
			if field.Default != nil {
				e.values[field.Name] = valuepath.DeepCopy(field.Default)
			}
			continue
		}
		if value, ok := valuepath.Get(record, field.Name); ok {
			e.values[field.Name] = valuepath.DeepCopy(value)
		}
	}
	return e
}

// ID returns the instance identity.
func (e *Engine) ID() uuid.UUID { return e.id }

// Creating reports whether the form creates a new record.
func (e *Engine) Creating() bool { return e.creating }

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Values returns a copy of the current field values.
func (e *Engine) Values() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return valuepath.Clone(e.values)
}

// Value returns the current value of name.
func (e *Engine) Value(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return valuepath.DeepCopy(e.values[name])
}

// Errors returns the messages from the last validation.
func (e *Engine) Errors() FieldErrors {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyErrors(e.errors)
}

// Set writes a field value. Fields whose remote options depend on name must be
// re-resolved afterwards; Dependents lists them.
func (e *Engine) Set(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateClosed:
		return ErrClosed
	case StateSubmitting:
		return ErrSubmitting
	}
	if _, ok := e.rules[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	e.values[name] = value
	delete(e.errors, name)
	e.state = StateDirty
	return nil
}

// Dependents lists the remote fields scoped by name, in declaration order.
func (e *Engine) Dependents(name string) []string {
	return slices.Clone(e.dependents[name])
}

// Visible reports whether every presence dependency of name has a value and
// its visibleWhen rule matches the current values.
func (e *Engine) Visible(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibleLocked(name)
}

func (e *Engine) visibleLocked(name string) bool {
	r, ok := e.rules[name]
	if !ok {
		return false
	}
	for _, dep := range r.field.DependsOn {
		if valuepath.IsEmpty(e.values[dep]) {
			return false
		}
	}
	return r.visible.Match(e.values)
}

// Options returns the last applied resolution of name.
func (e *Engine) Options(name string) options.Resolution {
	e.mu.Lock()
	defer e.mu.Unlock()
	res := e.resolutions[name]
	res.Options = slices.Clone(res.Options)
	return res
}

// ResolveField resolves the options of name against a snapshot of the current
// values. The result is applied only if the form is still open and no newer
// resolution of the same field started meanwhile; applied reports which. When
// an applied resolution no longer offers the selected value, the selection is
// cleared and fields depending on it are resolved in turn.
func (e *Engine) ResolveField(ctx context.Context, name string) (options.Resolution, bool) {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return options.Resolution{}, false
	}
	r, ok := e.rules[name]
	if !ok || !r.field.HasChoices() {
		e.mu.Unlock()
		return options.Resolution{}, false
	}
	e.generations[name]++
	gen := e.generations[name]
	snapshot := valuepath.Clone(e.values)
	e.mu.Unlock()

	var res options.Resolution
	if e.resolver != nil {
		res = e.resolver.Resolve(ctx, r.field, snapshot)
	} else {
		res = options.Resolution{Options: slices.Clone(r.field.Options)}
	}

	e.mu.Lock()
	if e.state == StateClosed || e.generations[name] != gen {
		e.mu.Unlock()
		e.logger.Debug("form: discarded stale option resolution", "form", e.id, "field", name, "generation", gen)
		return res, false
	}
	e.resolutions[name] = res
	cleared := false
	if res.Err == nil && e.state != StateSubmitting {
		cleared = e.pruneSelectionLocked(r.field, res.Options)
	}
	e.mu.Unlock()

	if cleared {
		e.logger.Debug("form: cleared selection missing from options", "form", e.id, "field", name)
		e.ResolveDependents(ctx, name)
	}
	return res, true
}

// ResolveDependents re-resolves every remote field scoped by name.
func (e *Engine) ResolveDependents(ctx context.Context, name string) {
	for _, dependent := range e.Dependents(name) {
		e.ResolveField(ctx, dependent)
	}
}

// Refresh resolves every choice field in declaration order.
func (e *Engine) Refresh(ctx context.Context) {
	for _, field := range e.cfg.Form.Fields {
		if !field.HasChoices() {
			continue
		}
		e.ResolveField(ctx, field.Name)
	}
}

func (e *Engine) pruneSelectionLocked(field schema.Field, available []schema.Option) bool {
	current, ok := e.values[field.Name]
	if !ok || valuepath.IsEmpty(current) {
		return false
	}
	if field.InputKind() == schema.KindMultiSelect {
		selected := Selection(current)
		kept := make([]any, 0, len(selected))
		for _, value := range selected {
			if options.Contains(available, value) {
				kept = append(kept, value)
			}
		}
		if len(kept) == len(selected) {
			return false
		}
		if len(kept) == 0 {
			delete(e.values, field.Name)
		} else {
			e.values[field.Name] = kept
		}
		return true
	}
	if options.Contains(available, predicate.Stringify(current)) {
		return false
	}
	delete(e.values, field.Name)
	return true
}

// Validate checks every visible field and records the result.
func (e *Engine) Validate() FieldErrors {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = e.validateLocked()
	return copyErrors(e.errors)
}

func (e *Engine) validateLocked() FieldErrors {
	errs := FieldErrors{}
	for _, field := range e.cfg.Form.Fields {
		if !e.visibleLocked(field.Name) {
			continue
		}
		var choices []schema.Option
		if field.HasChoices() {
			if res, ok := e.resolutions[field.Name]; ok && !res.Disabled && res.Err == nil {
				choices = res.Options
				if choices == nil {
					choices = []schema.Option{}
				}
			}
		}
		for _, msg := range e.rules[field.Name].check(e.values[field.Name], choices) {
			errs.Add(field.Name, msg)
		}
	}
	return errs
}

// BeginSubmit validates and, when every visible field passes, moves the form
// to submitting and returns the record to save: the original record merged
// with the form values. Create records carry no primary key; edit records keep
// the original key.
func (e *Engine) BeginSubmit() (schema.Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateClosed:
		return nil, ErrClosed
	case StateSubmitting:
		return nil, ErrSubmitting
	}

	e.errors = e.validateLocked()
	if !e.errors.Empty() {
		e.state = StateInvalid
		return nil, copyErrors(e.errors)
	}

	patch := make(map[string]any, len(e.values))
	for _, field := range e.cfg.Form.Fields {
		if !e.visibleLocked(field.Name) {
			continue
		}
		value, ok := e.values[field.Name]
		if !ok {
			// A selection pruned after a dependency change must not fall
			// back to the original record's value.
			if _, had := valuepath.Get(e.original, field.Name); !had {
				continue
			}
			value = nil
		}
		if err := valuepath.Set(patch, field.Name, valuepath.DeepCopy(value)); err != nil {
			return nil, fmt.Errorf("form: build record: %w", err)
		}
	}
	record := valuepath.Merge(e.original, patch)

	if e.creating {
		delete(record, e.cfg.PrimaryKey)
	} else if key, ok := valuepath.Get(e.original, e.cfg.PrimaryKey); ok {
		if err := valuepath.Set(record, e.cfg.PrimaryKey, key); err != nil {
			return nil, fmt.Errorf("form: keep primary key: %w", err)
		}
	}

	e.state = StateSubmitting
	return record, nil
}

// CompleteSubmit records the save outcome. Success closes the form; a
// rejection leaves it open with its values in the failed state.
func (e *Engine) CompleteSubmit(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSubmitting {
		return ErrNotSubmitting
	}
	if err != nil {
		e.state = StateFailed
		return nil
	}
	e.closeLocked()
	return nil
}

// Close discards the instance. Later option results are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

func (e *Engine) closeLocked() {
	e.state = StateClosed
	for name := range e.generations {
		e.generations[name]++
	}
}

// Snapshot is a read-only view of the form for renderers.
type Snapshot struct {
	ID       string
	State    State
	Creating bool
	Fields   []FieldSnapshot
}

// FieldSnapshot is the render state of one field.
type FieldSnapshot struct {
	Field    schema.Field
	Value    any
	Visible  bool
	Options  []schema.Option
	Disabled bool
	Hint     string
	Errors   []string
}

// Snapshot captures the current state of every field.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{ID: e.id.String(), State: e.state, Creating: e.creating}
	for _, field := range e.cfg.Form.Fields {
		fs := FieldSnapshot{
			Field:   field,
			Value:   valuepath.DeepCopy(e.values[field.Name]),
			Visible: e.visibleLocked(field.Name),
			Errors:  slices.Clone(e.errors[field.Name]),
		}
		if res, ok := e.resolutions[field.Name]; ok {
			fs.Options = slices.Clone(res.Options)
			fs.Disabled = res.Disabled
			if res.Err != nil {
				fs.Hint = res.Err.Error()
			}
		}
		snap.Fields = append(snap.Fields, fs)
	}
	return snap
}

func copyErrors(src FieldErrors) FieldErrors {
	out := make(FieldErrors, len(src))
	for k, v := range src {
		out[k] = slices.Clone(v)
	}
	return out
}
