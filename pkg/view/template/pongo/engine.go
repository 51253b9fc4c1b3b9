// Package pongo backs the view template seam with flosch/pongo2.
package pongo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-crudgrid/pkg/view/template"
)

// Extension is appended to template names that carry none.
const Extension = ".tmpl"

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	dir     string
	files   fs.FS
	globals map[string]any
	filters map[string]template.Filter
}

// WithDir loads templates from a directory on disk. It takes precedence over
// WithFS for names present in both.
func WithDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from files.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.files = files
	}
}

// WithGlobal exposes value as name to every template.
func WithGlobal(name string, value any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any)
		}
		cfg.globals[strings.TrimSpace(name)] = value
	}
}

// WithFilter registers fn as a pongo2 filter. pongo2 filters are process
// wide: a name that is already registered keeps its first definition.
func WithFilter(name string, fn template.Filter) Option {
	return func(cfg *config) {
		name = strings.TrimSpace(name)
		if name == "" || fn == nil {
			return
		}
		if cfg.filters == nil {
			cfg.filters = make(map[string]template.Filter)
		}
		cfg.filters[name] = fn
	}
}

// Engine renders templates from one pongo2 template set. Parsed templates are
// cached by path.
type Engine struct {
	set *pongo2.TemplateSet

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

var _ template.Renderer = (*Engine)(nil)

// New builds an Engine over a directory, an fs.FS or both.
func New(options ...Option) (*Engine, error) {
	var cfg config
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.dir == "" && cfg.files == nil {
		return nil, errors.New("pongo: a template dir or fs.FS is required")
	}

	var loaders []pongo2.TemplateLoader
	if cfg.dir != "" {
		info, err := os.Stat(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("pongo: template dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("pongo: template dir: %s is not a directory", cfg.dir)
		}
		loaders = append(loaders, rootedLoader{files: os.DirFS(cfg.dir)})
	}
	if cfg.files != nil {
		loaders = append(loaders, rootedLoader{files: cfg.files})
	}

	set := pongo2.NewSet("crudgrid", loaders...)
	if len(cfg.globals) > 0 {
		globals, err := normalize(cfg.globals)
		if err != nil {
			return nil, fmt.Errorf("pongo: globals: %w", err)
		}
		set.Globals.Update(globals)
	}

	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", trimFilter)
	}
	for name, fn := range cfg.filters {
		if pongo2.FilterExists(name) {
			continue
		}
		if err := pongo2.RegisterFilter(name, adapt(name, fn)); err != nil {
			return nil, fmt.Errorf("pongo: filter %q: %w", name, err)
		}
	}

	return &Engine{set: set, cache: make(map[string]*pongo2.Template)}, nil
}

// RenderTemplate renders the template at name, appending Extension when the
// name has no extension.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	file := name
	if !strings.Contains(file[strings.LastIndex(file, "/")+1:], ".") {
		file += Extension
	}
	tmpl, err := e.load(file)
	if err != nil {
		return "", err
	}
	rendered, err := execute(tmpl, data, out)
	if err != nil {
		return "", fmt.Errorf("pongo: render %q: %w", file, err)
	}
	return rendered, nil
}

// RenderString parses and renders inline template content.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	tmpl, err := e.set.FromString(content)
	if err != nil {
		return "", fmt.Errorf("pongo: parse inline template: %w", err)
	}
	rendered, err := execute(tmpl, data, out)
	if err != nil {
		return "", fmt.Errorf("pongo: render inline template: %w", err)
	}
	return rendered, nil
}

// rootedLoader resolves every template name, including include and extends
// targets, from the root of files rather than from the including template's
// directory.
type rootedLoader struct {
	files fs.FS
}

func (l rootedLoader) Abs(_, name string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
}

func (l rootedLoader) Get(name string) (io.Reader, error) {
	data, err := fs.ReadFile(l.files, name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func (e *Engine) load(file string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.cache[file]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := e.set.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("pongo: load %q: %w", file, err)
	}
	e.mu.Lock()
	e.cache[file] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}

func execute(tmpl *pongo2.Template, data any, out []io.Writer) (string, error) {
	ctx, err := contextOf(data)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(ctx, &buf); err != nil {
		return "", err
	}
	for _, w := range out {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// contextOf turns data into a pongo2 context whose values are plain maps,
// slices and scalars, so templates address struct fields by their JSON
// names. Numbers decode as json.Number and print without a fraction.
func contextOf(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return normalize(v)
	case map[string]any:
		return normalize(v)
	}
	decoded, err := plain(data)
	if err != nil {
		return nil, err
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("pongo: template data must be an object, got %T", data)
	}
	return pongo2.Context(m), nil
}

func normalize(in map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		if key = strings.TrimSpace(key); key == "" {
			continue
		}
		if value == nil || reflect.ValueOf(value).Kind() == reflect.Func {
			out[key] = value
			continue
		}
		converted, err := plain(value)
		if err != nil {
			return nil, fmt.Errorf("pongo: %q: %w", key, err)
		}
		out[key] = converted
	}
	return out, nil
}

func plain(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func adapt(name string, fn template.Filter) pongo2.FilterFunction {
	return func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var p any
		if param != nil {
			p = param.Interface()
		}
		result, err := fn(in.Interface(), p)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}
}

func trimFilter(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}
