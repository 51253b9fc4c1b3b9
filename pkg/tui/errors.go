package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoForm is returned when there is no open form to fill.
	ErrNoForm = errors.New("tui: no form to fill")
)
