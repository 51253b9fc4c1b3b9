package pongo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestRenderTemplateFromFS(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"row.tmpl": {Data: []byte(`{{ site }}: {{ row.name|trim }} ({{ row.age }})`)},
	}
	engine, err := New(WithFS(files), WithGlobal("site", "crm"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var out bytes.Buffer
	got, err := engine.RenderTemplate("row", map[string]any{
		"row": map[string]any{"name": "  Ada ", "age": 36},
	}, &out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "crm: Ada (36)" {
		t.Fatalf("unexpected output %q", got)
	}
	if out.String() != got {
		t.Fatalf("writer received %q", out.String())
	}
}

func TestRenderTemplateKeepsExplicitExtension(t *testing.T) {
	t.Parallel()

	engine, err := New(WithFS(fstest.MapFS{"list/row.html": {Data: []byte(`<td>{{ v }}</td>`)}}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := engine.RenderTemplate("list/row.html", map[string]any{"v": 1.5})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "<td>1.5</td>" {
		t.Fatalf("unexpected output %q", got)
	}
	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected error for a missing template")
	}
}

func TestRenderStringUsesJSONNames(t *testing.T) {
	t.Parallel()

	type pager struct {
		Page      int `json:"page"`
		PageCount int `json:"pageCount"`
	}
	engine, err := New(WithFS(fstest.MapFS{}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := engine.RenderString("page {{ pager.page }} of {{ pager.pageCount }}", map[string]any{
		"pager": pager{Page: 2, PageCount: 5},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "page 2 of 5" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRegisterFilter(t *testing.T) {
	t.Parallel()

	engine, err := New(WithFS(fstest.MapFS{}), WithFilter("pongo_test_shout", func(in any, _ any) (any, error) {
		s, _ := in.(string)
		return strings.ToUpper(s) + "!", nil
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := engine.RenderString(`{{ word|pongo_test_shout }}`, map[string]any{"word": "save"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "SAVE!" {
		t.Fatalf("unexpected output %q", got)
	}

	again, err := New(WithFS(fstest.MapFS{}), WithFilter("pongo_test_shout", func(any, any) (any, error) {
		return "replaced", nil
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got, _ := again.RenderString(`{{ word|pongo_test_shout }}`, map[string]any{"word": "save"}); got != "SAVE!" {
		t.Fatalf("expected the first filter definition to win, got %q", got)
	}
}

func TestNewRequiresSource(t *testing.T) {
	t.Parallel()

	if _, err := New(); err == nil {
		t.Fatalf("expected error without a template source")
	}
}

func TestIncludeResolvesFromRoot(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"templates/screen.tmpl":      {Data: []byte(`[{% include "templates/chrome/page.tmpl" %}]`)},
		"templates/chrome/page.tmpl": {Data: []byte(`<{% include "templates/form.tmpl" %}>`)},
		"templates/form.tmpl":        {Data: []byte(`form {{ name }}`)},
	}
	engine, err := New(WithFS(files))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := engine.RenderTemplate("templates/screen", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "[<form Ada>]" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestWithDirRendersFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "list"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "list", "row.tmpl"), []byte(`row {% include "cell.tmpl" %}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cell.tmpl"), []byte(`{{ v }}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	engine, err := New(WithDir(dir))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := engine.RenderTemplate("list/row", map[string]any{"v": "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "row x" {
		t.Fatalf("unexpected output %q", got)
	}
	if _, err := New(WithDir(filepath.Join(dir, "missing"))); err == nil {
		t.Fatalf("expected error for a missing dir")
	}
}
