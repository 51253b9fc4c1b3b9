// Package tui fills a form instance from terminal prompts. Field visibility,
// option resolution and validation stay in the form engine; the filler only
// asks questions and hands the answers back.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/goliatone/go-crudgrid/pkg/form"
	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// DefaultAttempts is how many times invalid fields are asked again.
const DefaultAttempts = 3

const noneOption = "(none)"

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithAttempts overrides DefaultAttempts.
func WithAttempts(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Filler walks the fields of a form and prompts for each visible one.
type Filler struct {
	driver   PromptDriver
	attempts int
	logger   *slog.Logger
}

// NewFiller builds a Filler. Without WithPromptDriver it prompts on the
// process terminal through survey.
func NewFiller(opts ...Option) *Filler {
	f := &Filler{
		attempts: DefaultAttempts,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	return f
}

// Fill prompts for every visible field in declaration order, re-resolving
// dependent options after each answer, then re-asks fields that fail
// validation. It returns form.FieldErrors when fields are still invalid after
// the configured attempts.
func (f *Filler) Fill(ctx context.Context, engine *form.Engine) error {
	if engine == nil {
		return ErrNoForm
	}
	engine.Refresh(ctx)

	names := fieldNames(engine.Snapshot())
	for _, name := range names {
		if err := f.askField(ctx, engine, name); err != nil {
			return err
		}
	}

	for attempt := 0; attempt < f.attempts; attempt++ {
		errs := engine.Validate()
		if errs.Empty() {
			return nil
		}
		f.logger.Debug("form invalid, asking again", "attempt", attempt+1, "fields", len(errs))
		for _, name := range names {
			if !errs.Has(name) {
				continue
			}
			if err := f.driver.Notify(ctx, fmt.Sprintf("%s: %s", labelOf(engine, name), strings.Join(errs[name], "; "))); err != nil {
				return err
			}
			if err := f.askField(ctx, engine, name); err != nil {
				return err
			}
		}
	}
	if errs := engine.Validate(); !errs.Empty() {
		return errs
	}
	return nil
}

// ConfirmDelete asks whether the record named label should be deleted.
func (f *Filler) ConfirmDelete(ctx context.Context, label string) (bool, error) {
	answer, err := f.driver.Ask(ctx, Question{
		Kind:    AskConfirm,
		Message: fmt.Sprintf("Delete %s?", label),
	})
	return answer.Yes, err
}

func (f *Filler) askField(ctx context.Context, engine *form.Engine, name string) error {
	fs, ok := fieldSnapshot(engine.Snapshot(), name)
	if !ok || !fs.Visible {
		return nil
	}
	if fs.Disabled {
		msg := fmt.Sprintf("%s: unavailable", fs.Field.DisplayLabel())
		if fs.Hint != "" {
			msg += " (" + fs.Hint + ")"
		}
		return f.driver.Notify(ctx, msg)
	}

	value, err := f.ask(ctx, fs)
	if err != nil {
		return fmt.Errorf("tui: ask %q: %w", name, err)
	}
	if err := engine.Set(name, value); err != nil {
		return err
	}
	engine.ResolveDependents(ctx, name)
	return nil
}

func (f *Filler) ask(ctx context.Context, fs form.FieldSnapshot) (any, error) {
	q := questionFor(fs)
	answer, err := f.driver.Ask(ctx, q)
	if err != nil {
		return nil, err
	}

	switch q.Kind {
	case AskChoice:
		idx := -1
		if len(answer.Picked) > 0 {
			idx = answer.Picked[0]
		}
		if !fs.Field.Required {
			idx--
		}
		if idx < 0 || idx >= len(fs.Options) {
			return nil, nil
		}
		return fs.Options[idx].Value, nil
	case AskChoices:
		values := make([]string, 0, len(answer.Picked))
		for _, idx := range answer.Picked {
			if idx >= 0 && idx < len(fs.Options) {
				values = append(values, fs.Options[idx].Value)
			}
		}
		return values, nil
	}

	switch fs.Field.InputKind() {
	case schema.KindNumber:
		if strings.TrimSpace(answer.Text) == "" {
			return nil, nil
		}
		n, _ := form.ParseNumber(answer.Text)
		return n, nil
	case schema.KindDate:
		return strings.TrimSpace(answer.Text), nil
	}
	return answer.Text, nil
}

// questionFor builds the prompt for a field. Optional selects get a leading
// "(none)" choice so the current value can be cleared.
func questionFor(fs form.FieldSnapshot) Question {
	field := fs.Field
	q := Question{
		Kind:    AskText,
		Message: field.DisplayLabel(),
		Help:    field.Help,
		Default: predicate.Stringify(fs.Value),
	}
	if field.Required {
		q.Message += " *"
	}

	switch field.InputKind() {
	case schema.KindSelect:
		q.Kind, q.Default = AskChoice, ""
		q.Choices = optionLabels(fs.Options)
		offset := 0
		if !field.Required {
			q.Choices = append([]string{noneOption}, q.Choices...)
			offset = 1
		}
		current := predicate.Stringify(fs.Value)
		q.Picked = []int{0}
		for i, opt := range fs.Options {
			if opt.Value == current {
				q.Picked = []int{i + offset}
			}
		}
	case schema.KindMultiSelect:
		q.Kind, q.Default = AskChoices, ""
		q.Choices = optionLabels(fs.Options)
		selected := form.Selection(fs.Value)
		for i, opt := range fs.Options {
			if slices.Contains(selected, opt.Value) {
				q.Picked = append(q.Picked, i)
			}
		}
	case schema.KindTextArea:
		q.Kind = AskLongText
	case schema.KindNumber:
		q.Check = validateNumber
	case schema.KindDate:
		if q.Help == "" {
			q.Help = "YYYY-MM-DD"
		}
		q.Check = validateDate
	}
	return q
}

func validateNumber(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, ok := form.ParseNumber(s); !ok {
		return errors.New("must be a number")
	}
	return nil
}

func validateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, ok := form.ParseDate(s); !ok {
		return errors.New("must be a date (YYYY-MM-DD)")
	}
	return nil
}

func fieldNames(snap form.Snapshot) []string {
	names := make([]string, 0, len(snap.Fields))
	for _, fs := range snap.Fields {
		names = append(names, fs.Field.Name)
	}
	return names
}

func fieldSnapshot(snap form.Snapshot, name string) (form.FieldSnapshot, bool) {
	for _, fs := range snap.Fields {
		if fs.Field.Name == name {
			return fs, true
		}
	}
	return form.FieldSnapshot{}, false
}

func labelOf(engine *form.Engine, name string) string {
	if fs, ok := fieldSnapshot(engine.Snapshot(), name); ok {
		return fs.Field.DisplayLabel()
	}
	return name
}

func optionLabels(options []schema.Option) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		out = append(out, opt.Label)
	}
	return out
}
