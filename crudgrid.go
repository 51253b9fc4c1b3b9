// Package crudgrid re-exports the entry points of the grid engine so simple
// callers can build a screen from one import.
package crudgrid

import (
	"context"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/view"
	"github.com/goliatone/go-crudgrid/pkg/view/html"
)

// Configuration is the declarative screen description.
type Configuration = schema.Configuration

// Row is one caller-owned record.
type Row = schema.Row

// Callbacks connect a screen to the caller's data layer.
type Callbacks = crud.Callbacks

// Screen is the orchestrator behind one grid.
type Screen = crud.Orchestrator

// ViewModel is the renderer input.
type ViewModel = crud.ViewModel

// New builds a screen for cfg. It mirrors crud.New.
func New(cfg Configuration, callbacks Callbacks, options ...crud.Option) (*Screen, error) {
	return crud.New(cfg, callbacks, options...)
}

// RenderHTML paints the current view of screen with the HTML renderer.
func RenderHTML(ctx context.Context, screen *Screen, options ...html.Option) ([]byte, error) {
	renderer, err := html.New(options...)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, screen.View())
}

// BuildPage maps the current view of screen into the renderer-neutral page.
func BuildPage(screen *Screen, options ...view.BuildOption) (view.Page, error) {
	return view.BuildPage(screen.View(), options...)
}
