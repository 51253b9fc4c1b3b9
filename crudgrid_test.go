package crudgrid

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-crudgrid/pkg/schema/openapi"
)

const screens = `{"screens": {"teams": {
  "title": "Teams",
  "primaryKey": "id",
  "table": {"columns": [{"field": "id"}, {"field": "name"}]},
  "form": {"fields": [{"name": "name", "required": true}]}
}}}`

const document = `openapi: 3.0.3
info: {title: Teams, version: "1.0"}
paths: {}
components:
  schemas:
    Team:
      type: object
      properties:
        id: {type: integer, readOnly: true}
        name: {type: string}
`

func TestEmbeddedTemplatesContainsList(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "templates/list/table.tmpl"); err != nil {
		t.Fatalf("expected table template to be readable: %v", err)
	}
}

func TestLoadScreenAndRenderHTML(t *testing.T) {
	files := fstest.MapFS{"screens/teams.json": {Data: []byte(screens)}}

	cfg, err := LoadScreen(files, "teams")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := LoadScreen(files, "people"); err == nil {
		t.Fatalf("expected error for unknown screen")
	}

	screen, err := New(cfg, Callbacks{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer screen.Close()
	screen.SetRows([]Row{{"id": 1, "name": "Platform"}, {"id": 2, "name": "Research"}}, -1)

	out, err := RenderHTML(context.Background(), screen)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "Research") {
		t.Fatalf("expected rows in html:\n%s", out)
	}

	page, err := BuildPage(screen)
	if err != nil {
		t.Fatalf("build page: %v", err)
	}
	if page.Title != "Teams" || len(page.Rows) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestFromOpenAPI(t *testing.T) {
	files := fstest.MapFS{"team.yaml": {Data: []byte(document)}}
	loader := openapi.NewLoader(openapi.WithFileSystem(files))

	cfg, err := FromOpenAPI(context.Background(), loader, openapi.SourceFromFS("team.yaml"), "Team")
	if err != nil {
		t.Fatalf("from openapi: %v", err)
	}
	if cfg.PrimaryKey != "id" || len(cfg.Table.Columns) != 2 || len(cfg.Form.Fields) != 1 {
		t.Fatalf("unexpected configuration %+v", cfg)
	}
}
