package crud

import (
	"errors"
	"log/slog"
)

var (
	// ErrInFlight rejects a second save or delete while one is pending.
	ErrInFlight = errors.New("crud: operation already in progress")
	// ErrOverlayOpen rejects opening a form while a delete confirmation is
	// open, and the reverse.
	ErrOverlayOpen = errors.New("crud: another dialog is open")
	// ErrNoForm is returned by form operations when no form is open.
	ErrNoForm = errors.New("crud: no form open")
	// ErrNoConfirmation is returned by ConfirmDelete without a pending request.
	ErrNoConfirmation = errors.New("crud: no delete pending confirmation")
	// ErrActionDisabled is returned when the actions spec hides an action for
	// the row.
	ErrActionDisabled = errors.New("crud: action not available for row")
	// ErrNoHandler is returned when the matching callback is missing.
	ErrNoHandler = errors.New("crud: callback not configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("crud: orchestrator closed")
)

// Operation names the write being reported.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Outcome is the success/failure contract consumed by toast-style feedback.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Signal reports the end of a write.
type Signal struct {
	Outcome Outcome
	Op      Operation
	Message string
	Err     error
}

// Notifier receives write signals.
type Notifier interface {
	Notify(Signal)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(Signal)

// Notify implements Notifier.
func (f NotifierFunc) Notify(s Signal) { f(s) }

// LogNotifier writes signals to a structured logger. It is the default when no
// notifier is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(s Signal) {
	if n.Logger == nil {
		return
	}
	if s.Outcome == OutcomeFailure {
		n.Logger.Warn(s.Message, "op", s.Op, "error", s.Err)
		return
	}
	n.Logger.Info(s.Message, "op", s.Op)
}

func successMessage(op Operation) string {
	switch op {
	case OpCreate:
		return "Record created"
	case OpUpdate:
		return "Record updated"
	default:
		return "Record deleted"
	}
}

func failureMessage(op Operation, err error) string {
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	switch op {
	case OpCreate:
		return "Could not create record"
	case OpUpdate:
		return "Could not update record"
	default:
		return "Could not delete record"
	}
}
