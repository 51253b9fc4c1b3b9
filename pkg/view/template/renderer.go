// Package template is the seam between the HTML view and a template engine.
// Any engine that renders named templates and inline content can back it.
package template

import "io"

// Renderer executes templates. When writers are passed the output is also
// copied to each of them.
type Renderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(content string, data any, out ...io.Writer) (string, error)
}

// Filter is an engine-neutral template filter.
type Filter func(input, param any) (any, error)
