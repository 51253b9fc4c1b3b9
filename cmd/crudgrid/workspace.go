package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-crudgrid/components/lookup"
	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/query"
	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/schema/openapi"
)

var errRecordNotFound = errors.New("record not found")

// dataFile is the on-disk shape of --data.
type dataFile struct {
	Records []schema.Row            `json:"records" yaml:"records"`
	Lookups map[string][]schema.Row `json:"lookups,omitempty" yaml:"lookups,omitempty"`
}

// workspace is one screen plus the records it lists, held in memory.
type workspace struct {
	mu       sync.Mutex
	cfg      schema.Configuration
	records  []schema.Row
	lookups  map[string]lookup.Static
	dataPath string
	saved    schema.Row
	logger   *slog.Logger
}

func (a *app) openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := a.loadConfiguration(ctx)
	if err != nil {
		return nil, err
	}
	ws := &workspace{cfg: cfg, lookups: map[string]lookup.Static{}, logger: a.logger}
	if path := strings.TrimSpace(a.settings.dataFile); path != "" {
		data, err := readDataFile(path)
		if err != nil {
			return nil, err
		}
		ws.dataPath = path
		ws.records = data.Records
		for name, rows := range data.Lookups {
			ws.lookups[name] = lookup.Static(rows)
		}
	}
	a.logger.Debug("workspace ready", "screen", cfg.ID, "records", len(ws.records), "lookups", len(ws.lookups))
	return ws, nil
}

func (a *app) loadConfiguration(ctx context.Context) (schema.Configuration, error) {
	s := a.settings
	switch {
	case s.openapi != "":
		if s.component == "" {
			return schema.Configuration{}, errors.New("--component is required with --openapi")
		}
		src, err := openapi.ParseSource(s.openapi)
		if err != nil {
			return schema.Configuration{}, err
		}
		loader := openapi.NewLoader(
			openapi.WithHTTPClient(http.DefaultClient),
			openapi.WithTimeout(30*time.Second),
		)
		doc, err := loader.Load(ctx, src)
		if err != nil {
			return schema.Configuration{}, err
		}
		return openapi.Build(doc, s.component)
	case s.configDir != "":
		store, err := schema.LoadFS(os.DirFS(s.configDir))
		if err != nil {
			return schema.Configuration{}, err
		}
		return pickScreen(store, s.screen)
	default:
		return schema.Configuration{}, errors.New("either --config or --openapi is required")
	}
}

// pickScreen returns the named screen, or the only one when id is empty.
func pickScreen(store *schema.Store, id string) (schema.Configuration, error) {
	ids := store.IDs()
	if id == "" {
		if len(ids) != 1 {
			return schema.Configuration{}, fmt.Errorf("--screen is required, available: %s", strings.Join(ids, ", "))
		}
		id = ids[0]
	}
	cfg, ok := store.Screen(id)
	if !ok {
		return schema.Configuration{}, fmt.Errorf("unknown screen %q, available: %s", id, strings.Join(ids, ", "))
	}
	return cfg, nil
}

func readDataFile(path string) (dataFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dataFile{}, fmt.Errorf("read data %s: %w", path, err)
	}
	var data dataFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return dataFile{}, fmt.Errorf("parse data %s: %w", path, err)
	}
	return data, nil
}

// persist writes the records back to the data file in its own format.
func (w *workspace) persist() error {
	if w.dataPath == "" {
		return errors.New("no --data file to write")
	}
	w.mu.Lock()
	data := dataFile{Records: w.records, Lookups: make(map[string][]schema.Row, len(w.lookups))}
	for name, rows := range w.lookups {
		data.Lookups[name] = rows
	}
	var (
		raw []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(w.dataPath)) {
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(data)
	default:
		raw, err = json.MarshalIndent(data, "", "  ")
	}
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	return os.WriteFile(w.dataPath, raw, 0o644)
}

// orchestrator binds the screen to the in-memory records. In server mode the
// listing callback answers descriptors from the same records.
func (w *workspace) orchestrator(opts ...crud.Option) (*crud.Orchestrator, error) {
	var orch *crud.Orchestrator
	callbacks := crud.Callbacks{
		Save:   w.save,
		Delete: w.delete,
		QueryChanged: func(d query.Descriptor) {
			rows := w.snapshot()
			result := query.Compute(rows, w.cfg.Table.Columns, d.State(), w.cfg.ListBehavior)
			orch.SetRows(result.Rows, result.TotalRows)
		},
		Refetch: func() {
			orch.SetRows(w.snapshot(), -1)
		},
	}
	orch, err := crud.New(w.cfg, callbacks, opts...)
	if err != nil {
		return nil, err
	}
	w.feed(orch)
	return orch, nil
}

// feed loads the first snapshot into orch.
func (w *workspace) feed(orch *crud.Orchestrator) {
	if orch.Query().Settled().Mode == query.ModeServer {
		orch.Query().Resettle()
		return
	}
	orch.SetRows(w.snapshot(), -1)
}

func (w *workspace) snapshot() []schema.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]schema.Row(nil), w.records...)
}

func (w *workspace) find(key string) (schema.Row, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range w.records {
		if w.cfg.KeyString(row) == key {
			return valuepath.Clone(row), nil
		}
	}
	return nil, fmt.Errorf("%w: %s=%s", errRecordNotFound, w.cfg.PrimaryKey, key)
}

func (w *workspace) save(_ context.Context, record schema.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.cfg.KeyString(record)
	if key == "" {
		if err := valuepath.Set(record, w.cfg.PrimaryKey, w.nextKeyLocked()); err != nil {
			return err
		}
		w.records = append(w.records, record)
		w.saved = record
		w.logger.Debug("record created", "key", w.cfg.KeyString(record))
		return nil
	}
	for i, row := range w.records {
		if w.cfg.KeyString(row) == key {
			w.records[i] = record
			w.saved = record
			w.logger.Debug("record updated", "key", key)
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%s", errRecordNotFound, w.cfg.PrimaryKey, key)
}

func (w *workspace) delete(_ context.Context, record schema.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.cfg.KeyString(record)
	for i, row := range w.records {
		if w.cfg.KeyString(row) == key {
			w.records = append(w.records[:i], w.records[i+1:]...)
			w.logger.Debug("record deleted", "key", key)
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%s", errRecordNotFound, w.cfg.PrimaryKey, key)
}

// nextKeyLocked continues numeric keys and falls back to a UUID when any
// existing key is not a number.
func (w *workspace) nextKeyLocked() any {
	var (
		highest float64
		floats  bool
	)
	for _, row := range w.records {
		value, ok := w.cfg.KeyOf(row)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			floats = true
			highest = max(highest, v)
		case int:
			highest = max(highest, float64(v))
		default:
			return uuid.NewString()
		}
	}
	if floats {
		return highest + 1
	}
	return int(highest) + 1
}

func (w *workspace) lastSaved() schema.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saved
}

// components mounts one lookup collection per data-file entry under /api.
func (w *workspace) components() map[string]*lookup.Component {
	out := make(map[string]*lookup.Component, len(w.lookups))
	for name, rows := range w.lookups {
		out[name] = lookup.New(rows, lookup.WithRoutePath("/api/"+name))
	}
	return out
}

// fetcher answers remote bindings from the lookup collections in process.
func (w *workspace) fetcher() options.Fetcher {
	comps := w.components()
	names := make([]string, 0, len(comps))
	for name := range comps {
		names = append(names, name)
	}
	sort.Strings(names)

	var chain options.Fetcher
	for _, name := range names {
		chain = comps[name].Fetcher("", chain)
	}
	if chain == nil {
		return options.FetcherFunc(func(_ context.Context, req options.Request) ([]map[string]any, error) {
			return nil, fmt.Errorf("no lookup collection for %q", req.Endpoint)
		})
	}
	return chain
}
