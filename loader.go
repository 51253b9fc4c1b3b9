package crudgrid

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/schema/openapi"
)

// LoadScreens parses every screen document under fsys.
func LoadScreens(fsys fs.FS) (*schema.Store, error) {
	return schema.LoadFS(fsys)
}

// LoadScreen returns one screen from the documents under fsys.
func LoadScreen(fsys fs.FS, id string) (Configuration, error) {
	store, err := schema.LoadFS(fsys)
	if err != nil {
		return Configuration{}, err
	}
	cfg, ok := store.Screen(id)
	if !ok {
		return Configuration{}, fmt.Errorf("crudgrid: unknown screen %q", id)
	}
	return cfg, nil
}

// FromOpenAPI loads the document at src and derives a screen from its
// component schema.
func FromOpenAPI(ctx context.Context, loader *openapi.Loader, src openapi.Source, component string, options ...openapi.BuildOption) (Configuration, error) {
	if loader == nil {
		loader = openapi.NewLoader()
	}
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return Configuration{}, err
	}
	return openapi.Build(doc, component, options...)
}
