package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Store holds screen configurations loaded from disk, keyed by screen id.
type Store struct {
	screens map[string]Configuration
}

type documentFile struct {
	Screens map[string]Configuration `json:"screens" yaml:"screens" toml:"screens"`
}

// LoadFS walks fsys and parses every JSON, YAML or TOML screen document.
// Each document declares one or more screens under a top-level "screens" map.
// Screens are validated after defaults are applied; the first invalid screen
// aborts loading.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{screens: make(map[string]Configuration)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isScreenFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}

		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for rawID, cfg := range doc.Screens {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("schema: file %s defines an empty screen id", path)
			}
			if _, exists := store.screens[id]; exists {
				return fmt.Errorf("schema: duplicate screen %q (file %s)", id, path)
			}
			if cfg.ID == "" {
				cfg.ID = id
			}
			cfg = cfg.WithDefaults()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("schema: screen %q (file %s): %w", id, path, err)
			}
			store.screens[id] = cfg
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Screen returns the configuration registered under id.
func (s *Store) Screen(id string) (Configuration, bool) {
	if s == nil {
		return Configuration{}, false
	}
	cfg, ok := s.screens[id]
	return cfg, ok
}

// IDs lists loaded screen ids in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.screens))
	for id := range s.screens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any screens.
func (s *Store) Empty() bool {
	return s == nil || len(s.screens) == 0
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("schema: file %s is empty", source)
	}

	var err error
	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return documentFile{}, fmt.Errorf("schema: parse %s: %w", source, err)
	}
	return doc, nil
}

func isScreenFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".toml":
		return true
	default:
		return false
	}
}
