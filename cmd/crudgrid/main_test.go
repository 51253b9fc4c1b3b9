package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-crudgrid/pkg/tui"
	"github.com/goliatone/go-crudgrid/pkg/view"
)

const employeesScreen = `screens:
  employees:
    title: Employees
    primaryKey: id
    table:
      globalSearch: true
      pageSize: 2
      columns:
        - field: id
        - field: name
          header: Name
        - field: team
          header: Team
    form:
      fields:
        - name: name
          label: Name
          required: true
        - name: team
          label: Team
          kind: select
          required: true
          remote:
            endpoint: /api/teams
            labelKey: name
            valueKey: id
`

const employeesData = `{
  "records": [
    {"id": 1, "name": "Ada Lovelace", "team": "2"},
    {"id": 2, "name": "Grace Hopper", "team": "1"},
    {"id": 3, "name": "Alan Turing", "team": "2"},
    {"id": 4, "name": "Edsger Dijkstra", "team": "1"}
  ],
  "lookups": {
    "teams": [
      {"id": 1, "name": "Platform"},
      {"id": 2, "name": "Research"}
    ]
  }
}`

type fixture struct {
	configDir string
	dataFile  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	configDir := filepath.Join(dir, "screens")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "employees.yaml"), []byte(employeesScreen), 0o644); err != nil {
		t.Fatalf("write screen: %v", err)
	}
	dataFile := filepath.Join(dir, "people.json")
	if err := os.WriteFile(dataFile, []byte(employeesData), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	return fixture{configDir: configDir, dataFile: dataFile}
}

func (f fixture) args(extra ...string) []string {
	return append([]string{"--config", f.configDir, "--data", f.dataFile, "--no-color"}, extra...)
}

type scriptedDriver struct {
	inputs   []string
	selects  []int
	confirms []bool
	infos    []string
	asked    []string
}

func (d *scriptedDriver) Ask(_ context.Context, q tui.Question) (tui.Answer, error) {
	switch q.Kind {
	case tui.AskChoice:
		d.asked = append(d.asked, q.Message+" "+strings.Join(q.Choices, "|"))
		if len(d.selects) == 0 {
			return tui.Answer{}, tui.ErrAborted
		}
		idx := d.selects[0]
		d.selects = d.selects[1:]
		return tui.Answer{Picked: []int{idx}}, nil
	case tui.AskConfirm:
		d.asked = append(d.asked, q.Message)
		if len(d.confirms) == 0 {
			return tui.Answer{}, tui.ErrAborted
		}
		yes := d.confirms[0]
		d.confirms = d.confirms[1:]
		return tui.Answer{Yes: yes}, nil
	case tui.AskText:
		d.asked = append(d.asked, q.Message)
		if len(d.inputs) == 0 {
			return tui.Answer{}, tui.ErrAborted
		}
		text := d.inputs[0]
		d.inputs = d.inputs[1:]
		return tui.Answer{Text: text}, nil
	}
	return tui.Answer{}, tui.ErrAborted
}

func (d *scriptedDriver) Notify(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func execute(t *testing.T, driver tui.PromptDriver, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{stdout: &stdout, stderr: &stderr, driver: driver}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := readDataFile(path)
	if err != nil {
		t.Fatalf("read data: %v", err)
	}
	return data.Records
}

func TestListSortsAndPages(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, nil, f.args("list", "--sort", "name:desc", "--page", "2")...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"Employees", "Name v", "Alan Turing", "Ada Lovelace", "page 2 of 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Grace Hopper") {
		t.Fatalf("first page row leaked into page 2:\n%s", out)
	}
}

func TestListSearchAsJSON(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, nil, f.args("list", "--search", "grace", "--format", "json")...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var page view.Page
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode page: %v\n%s", err, out)
	}
	keys := make([]string, 0, len(page.Rows))
	for _, row := range page.Rows {
		keys = append(keys, row.Key)
	}
	if diff := cmp.Diff([]string{"2"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if page.Global != "grace" || page.Pager.TotalRows != 1 {
		t.Fatalf("unexpected page state %+v", page.Pager)
	}
}

func TestListFilterAndCards(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, nil, f.args("list", "--filter", "team=1", "--layout", "cards")...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "#2") || !strings.Contains(out, "#4") || strings.Contains(out, "#1\n") {
		t.Fatalf("unexpected cards:\n%s", out)
	}
}

func TestListRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	cases := map[string][]string{
		"filter syntax":  {"list", "--filter", "team"},
		"unknown column": {"list", "--filter", "salary=1"},
		"sort direction": {"list", "--sort", "name:sideways"},
		"page":           {"list", "--page", "0"},
		"layout":         {"list", "--layout", "grid"},
		"format":         {"list", "--format", "pdf"},
	}
	for name, args := range cases {
		if _, _, err := execute(t, nil, f.args(args...)...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, _, err := execute(t, nil, "list"); err == nil {
		t.Fatalf("expected error without a screen source")
	}
}

func TestListHTML(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, nil, f.args("list", "--format", "html")...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "<table") || !strings.Contains(out, "Ada Lovelace") {
		t.Fatalf("unexpected html:\n%s", out)
	}
}

func TestEnvironmentFallback(t *testing.T) {
	f := newFixture(t)

	envFile := filepath.Join(t.TempDir(), "crudgrid.env")
	if err := os.WriteFile(envFile, []byte("CRUDGRID_DATA="+f.dataFile+"\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CRUDGRID_CONFIG", f.configDir)
	t.Setenv("CRUDGRID_DATA", "")
	if err := os.Unsetenv("CRUDGRID_DATA"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}

	out, _, err := execute(t, nil, "--env-file", envFile, "--no-color", "list", "--search", "turing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Alan Turing") {
		t.Fatalf("expected records from env configured data file:\n%s", out)
	}

	if _, _, err := execute(t, nil, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "list"); err == nil {
		t.Fatalf("expected error for an explicit missing env file")
	}
}

func TestEditCreatesRecordWithLookupOptions(t *testing.T) {
	f := newFixture(t)
	driver := &scriptedDriver{inputs: []string{"Linus Torvalds"}, selects: []int{1}}

	out, _, err := execute(t, driver, f.args("edit", "--write")...)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if diff := cmp.Diff([]string{"Name *", "Team * Platform|Research"}, driver.asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "Record created") || !strings.Contains(out, `"name": "Linus Torvalds"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	records := readRecords(t, f.dataFile)
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	want := map[string]any{"id": float64(5), "name": "Linus Torvalds", "team": "2"}
	if diff := cmp.Diff(want, records[4]); diff != "" {
		t.Fatalf("created record mismatch (-want +got):\n%s", diff)
	}
}

func TestEditUpdatesExistingRecord(t *testing.T) {
	f := newFixture(t)
	driver := &scriptedDriver{inputs: []string{"Grace B. Hopper"}, selects: []int{1}}

	out, _, err := execute(t, driver, f.args("edit", "2")...)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(out, "Record updated") || !strings.Contains(out, `"name": "Grace B. Hopper"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if records := readRecords(t, f.dataFile); records[1]["name"] != "Grace Hopper" {
		t.Fatalf("data file changed without --write: %v", records[1])
	}

	if _, _, err := execute(t, driver, f.args("edit", "99")...); !errors.Is(err, errRecordNotFound) {
		t.Fatalf("expected errRecordNotFound, got %v", err)
	}
}

func TestEditDelete(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, &scriptedDriver{confirms: []bool{false}}, f.args("edit", "3", "--delete", "--write")...)
	if err != nil {
		t.Fatalf("cancelled delete: %v", err)
	}
	if !strings.Contains(out, "Delete cancelled") || len(readRecords(t, f.dataFile)) != 4 {
		t.Fatalf("cancelled delete changed data:\n%s", out)
	}

	driver := &scriptedDriver{confirms: []bool{true}}
	out, _, err = execute(t, driver, f.args("edit", "3", "--delete", "--write")...)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Record deleted") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if diff := cmp.Diff([]string{"Delete id 3 from Employees?"}, driver.asked); diff != "" {
		t.Fatalf("prompt mismatch (-want +got):\n%s", diff)
	}
	for _, record := range readRecords(t, f.dataFile) {
		if record["id"] == float64(3) {
			t.Fatalf("record 3 still present")
		}
	}

	if _, _, err := execute(t, driver, f.args("edit", "--delete")...); err == nil {
		t.Fatalf("expected error for delete without key")
	}
}

func TestServeRoutes(t *testing.T) {
	f := newFixture(t)
	a := &app{
		stdout:   io.Discard,
		stderr:   io.Discard,
		settings: settings{configDir: f.configDir, dataFile: f.dataFile},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	ws, err := a.openWorkspace(context.Background())
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	handler, err := newServer(ws, prometheus.NewRegistry(), a.logger)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		return resp.StatusCode, string(body)
	}

	status, body := get("/?q=turing")
	if status != http.StatusOK || !strings.Contains(body, "Alan Turing") || strings.Contains(body, "Ada Lovelace") {
		t.Fatalf("unexpected grid %d:\n%s", status, body)
	}

	status, body = get("/?sort=name&order=desc&page=1")
	if status != http.StatusOK || !strings.Contains(body, "Alan Turing") || strings.Contains(body, "Grace Hopper") {
		t.Fatalf("unexpected second page %d:\n%s", status, body)
	}

	if status, _ := get("/?layout=grid"); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown layout, got %d", status)
	}

	status, body = get("/api/config")
	var cfg configResponse
	if status != http.StatusOK {
		t.Fatalf("config status %d", status)
	}
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Configuration.ID != "employees" || len(cfg.Configuration.Table.Columns) != 3 {
		t.Fatalf("unexpected config %+v", cfg.Configuration)
	}
	if diff := cmp.Diff([]string{"/api/teams"}, cfg.Lookups); diff != "" {
		t.Fatalf("lookups mismatch (-want +got):\n%s", diff)
	}

	status, body = get("/api/teams?q=res")
	if status != http.StatusOK || !strings.Contains(body, "Research") || strings.Contains(body, "Platform") {
		t.Fatalf("unexpected lookup %d:\n%s", status, body)
	}

	if status, _ := get("/metrics"); status != http.StatusOK {
		t.Fatalf("metrics status %d", status)
	}
}
