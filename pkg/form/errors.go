package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSubmitting rejects edits while a submission is in flight.
	ErrSubmitting = errors.New("form: submission in progress")
	// ErrClosed rejects calls on a closed form instance.
	ErrClosed = errors.New("form: instance closed")
	// ErrUnknownField is returned for names not declared in the form spec.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrNotSubmitting is returned by CompleteSubmit without a pending submit.
	ErrNotSubmitting = errors.New("form: no submission in progress")
	// ErrInvalid marks a submission blocked by field errors.
	ErrInvalid = errors.New("form: validation failed")
)

// FieldErrors maps field names to their validation messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether field has at least one message.
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Empty reports whether no field failed.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Error implements error, listing fields in name order.
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return ErrInvalid.Error()
	}
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e[name], "; ")))
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, ", ")
}

// Unwrap lets errors.Is match ErrInvalid.
func (e FieldErrors) Unwrap() error { return ErrInvalid }
