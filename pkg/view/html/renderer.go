package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/view"
	"github.com/goliatone/go-crudgrid/pkg/view/template"
	"github.com/goliatone/go-crudgrid/pkg/view/template/pongo"
)

// Name is the registry key of the HTML renderer.
const Name = "html"

const screenTemplate = "templates/screen"

type Option func(*config)

type config struct {
	templateFS   fs.FS
	templates    template.Renderer
	policy       *bluemonday.Policy
	selector     theme.ThemeSelector
	themeName    string
	themeVariant string
	themeConfig  *theme.RendererConfig
	buildOptions []view.BuildOption
}

// WithTemplatesFS replaces the embedded template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a template engine. The engine must resolve the
// template names used by the embedded bundle.
func WithTemplateRenderer(renderer template.Renderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templates = renderer
		}
	}
}

// WithPolicy replaces the sanitiser applied to custom cell and card markup.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// WithThemeSelector selects a go-theme manifest on every render. Its tokens,
// overlaid with the variant's tokens, become CSS custom properties.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(cfg *config) {
		cfg.selector = selector
		cfg.themeName = name
		cfg.themeVariant = variant
	}
}

// WithThemeConfig uses an already resolved renderer config instead of a
// selector.
func WithThemeConfig(themeCfg *theme.RendererConfig) Option {
	return func(cfg *config) {
		cfg.themeConfig = themeCfg
	}
}

// WithBuildOptions forwards options to view.BuildPage.
func WithBuildOptions(opts ...view.BuildOption) Option {
	return func(cfg *config) {
		cfg.buildOptions = append(cfg.buildOptions, opts...)
	}
}

// Renderer paints a view model as an HTML fragment.
type Renderer struct {
	templates template.Renderer
	policy    *bluemonday.Policy
	selector  theme.ThemeSelector
	name      string
	variant   string
	static    *theme.RendererConfig
	build     []view.BuildOption
}

var _ view.Renderer = (*Renderer)(nil)

// New constructs the HTML renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.policy == nil {
		cfg.policy = bluemonday.UGCPolicy()
	}

	engine := cfg.templates
	if engine == nil {
		built, err := pongo.New(pongo.WithFS(cfg.templateFS))
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		engine = built
	}

	return &Renderer{
		templates: engine,
		policy:    cfg.policy,
		selector:  cfg.selector,
		name:      cfg.themeName,
		variant:   cfg.themeVariant,
		static:    cfg.themeConfig,
		build:     cfg.buildOptions,
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render builds the page, sanitises caller-supplied markup and executes the
// screen template.
func (r *Renderer) Render(_ context.Context, vm crud.ViewModel) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	page, err := view.BuildPage(vm, r.build...)
	if err != nil {
		return nil, fmt.Errorf("html renderer: build page: %w", err)
	}

	for i := range page.Rows {
		row := &page.Rows[i]
		for j := range row.Cells {
			if row.Cells[j].Markup != "" {
				row.Cells[j].Markup = r.sanitize(row.Cells[j].Markup)
			}
		}
		card, err := r.card(vm, page.Layout, row.Card, i)
		if err != nil {
			return nil, err
		}
		row.Card = card
	}

	themeCtx, err := r.theme()
	if err != nil {
		return nil, fmt.Errorf("html renderer: select theme: %w", err)
	}

	out, err := r.templates.RenderTemplate(screenTemplate, map[string]any{
		"page":  page,
		"theme": themeCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return []byte(out), nil
}

// card resolves the card markup of one row: the card renderer output when it
// produced a string, else the configured card template.
func (r *Renderer) card(vm crud.ViewModel, layout view.Layout, rendered any, index int) (string, error) {
	if rendered != nil {
		return r.sanitize(predicate.Stringify(rendered)), nil
	}
	cards := vm.Config.Cards
	if layout.ListMode != schema.ListCards || cards == nil || cards.Render != nil {
		return "", nil
	}
	if strings.TrimSpace(cards.Template) == "" {
		return "", nil
	}
	out, err := r.templates.RenderString(cards.Template, map[string]any{
		"row":   vm.Rows[index],
		"index": index,
	})
	if err != nil {
		return "", fmt.Errorf("html renderer: render card %d: %w", index, err)
	}
	return r.sanitize(out), nil
}

func (r *Renderer) sanitize(markup string) string {
	return strings.TrimSpace(r.policy.Sanitize(markup))
}

type themeContext struct {
	Name    string            `json:"name,omitempty"`
	Variant string            `json:"variant,omitempty"`
	CSSVars map[string]string `json:"cssVars,omitempty"`
	Style   string            `json:"style,omitempty"`
}

func (r *Renderer) theme() (themeContext, error) {
	if r.static != nil {
		vars := r.static.CSSVars
		if len(vars) == 0 {
			vars = cssVars(r.static.Tokens)
		}
		return newThemeContext(r.static.Theme, r.static.Variant, vars), nil
	}
	if r.selector == nil {
		return themeContext{}, nil
	}
	selection, err := r.selector.Select(r.name, r.variant)
	if err != nil {
		return themeContext{}, err
	}
	if selection == nil || selection.Manifest == nil {
		return themeContext{}, nil
	}

	tokens := make(map[string]string, len(selection.Manifest.Tokens))
	for key, value := range selection.Manifest.Tokens {
		tokens[key] = value
	}
	if variant, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for key, value := range variant.Tokens {
			tokens[key] = value
		}
	}
	return newThemeContext(selection.Theme, selection.Variant, cssVars(tokens)), nil
}

func newThemeContext(name, variant string, vars map[string]string) themeContext {
	return themeContext{
		Name:    name,
		Variant: variant,
		CSSVars: vars,
		Style:   cssVarsStyle(vars),
	}
}

// cssVars maps design tokens to custom property names: "color.brand" becomes
// "--color-brand".
func cssVars(tokens map[string]string) map[string]string {
	if len(tokens) == 0 {
		return nil
	}
	out := make(map[string]string, len(tokens))
	for key, value := range tokens {
		name := strings.NewReplacer(".", "-", "_", "-", " ", "-").Replace(strings.TrimSpace(key))
		if name == "" {
			continue
		}
		out["--"+strings.TrimPrefix(name, "--")] = value
	}
	return out
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(".crudgrid {\n")
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}
