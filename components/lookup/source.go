package lookup

import (
	"context"
	"net/http"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Source supplies the records of one collection.
type Source interface {
	Records(ctx context.Context) ([]schema.Row, error)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(ctx context.Context) ([]schema.Row, error)

func (f SourceFunc) Records(ctx context.Context) ([]schema.Row, error) { return f(ctx) }

// Static serves a fixed slice.
type Static []schema.Row

func (s Static) Records(context.Context) ([]schema.Row, error) { return s, nil }

// StatusError carries the HTTP status a guard or source failure answers with.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode())
}

func (e StatusError) Unwrap() error { return e.Err }

// StatusCode is Code, or 500 when unset.
func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}
