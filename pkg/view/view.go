package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// ErrUnknownLayout is returned for a presentation or list mode outside the
// closed set.
var ErrUnknownLayout = errors.New("view: unknown layout")

// Layout is the pair of orthogonal display axes: the chrome around the form
// and the way each row is painted.
type Layout struct {
	Presentation schema.Presentation `json:"presentation"`
	ListMode     schema.ListMode     `json:"listMode"`
}

// Presentations lists the supported form containers.
func Presentations() []schema.Presentation {
	return []schema.Presentation{
		schema.PresentationOverlay,
		schema.PresentationPanel,
		schema.PresentationPage,
	}
}

// ListModes lists the supported row layouts.
func ListModes() []schema.ListMode {
	return []schema.ListMode{schema.ListTable, schema.ListCards}
}

// SelectLayout resolves the layout for cfg. Non-empty fields of override win
// over the configuration; anything left unset falls back to the defaults.
func SelectLayout(cfg schema.Configuration, override Layout) (Layout, error) {
	cfg = cfg.WithDefaults()
	out := Layout{Presentation: cfg.Presentation, ListMode: cfg.ListMode}
	if override.Presentation != "" {
		out.Presentation = override.Presentation
	}
	if override.ListMode != "" {
		out.ListMode = override.ListMode
	}
	if !slices.Contains(Presentations(), out.Presentation) {
		return Layout{}, fmt.Errorf("%w: presentation %q", ErrUnknownLayout, out.Presentation)
	}
	if !slices.Contains(ListModes(), out.ListMode) {
		return Layout{}, fmt.Errorf("%w: list mode %q", ErrUnknownLayout, out.ListMode)
	}
	return out, nil
}

// Renderer paints a view model into a byte representation (HTML, text...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, vm crud.ViewModel) ([]byte, error)
}

// Registry stores renderers by name.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
	}
}

// Register adds a renderer by its Name(). Duplicate names return an error.
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return fmt.Errorf("view: renderer is required")
	}
	name := renderer.Name()
	if name == "" {
		return fmt.Errorf("view: renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.renderers[name]; exists {
		return fmt.Errorf("view: renderer %q already registered", name)
	}
	r.renderers[name] = renderer
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(renderer Renderer) {
	if err := r.Register(renderer); err != nil {
		panic(err)
	}
}

// Get returns the renderer registered under name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.renderers[name]
	if !ok {
		return nil, fmt.Errorf("view: renderer %q not found", name)
	}
	return renderer, nil
}

// List returns the registered names in alphabetical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.renderers[name]
	return ok
}
