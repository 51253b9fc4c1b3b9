// Command generate-screen derives a screen document from an OpenAPI
// component so it can be edited by hand and loaded with --config.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/schema/openapi"
)

type screenDocument struct {
	Screens map[string]schema.Configuration `yaml:"screens"`
}

func main() {
	source := flag.String("source", "", "OpenAPI document path or URL")
	component := flag.String("component", "", "component schema to derive")
	id := flag.String("id", "", "screen id (defaults to the component name)")
	output := flag.String("output", "", "output file (stdout if empty)")
	depth := flag.Int("max-depth", openapi.DefaultMaxDepth, "nested object depth flattened into columns")
	flag.Parse()

	if err := run(*source, *component, *id, *output, *depth); err != nil {
		fmt.Fprintln(os.Stderr, "generate-screen:", err)
		os.Exit(1)
	}
}

func run(source, component, id, output string, depth int) error {
	if source == "" || component == "" {
		return fmt.Errorf("-source and -component are required")
	}
	src, err := openapi.ParseSource(source)
	if err != nil {
		return err
	}
	cfg, err := deriveScreen(src, component, depth)
	if err != nil {
		return err
	}
	if id == "" {
		id = component
	}
	cfg.ID = ""

	data, err := yaml.Marshal(screenDocument{Screens: map[string]schema.Configuration{id: cfg}})
	if err != nil {
		return fmt.Errorf("encode screen: %w", err)
	}
	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Screen %q written to %s\n", id, output)
	return nil
}

func deriveScreen(src openapi.Source, component string, depth int) (schema.Configuration, error) {
	loader := openapi.NewLoader(
		openapi.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		openapi.WithValidation(true),
	)
	doc, err := loader.Load(context.Background(), src)
	if err != nil {
		return schema.Configuration{}, err
	}
	return openapi.Build(doc, component, openapi.WithMaxDepth(depth))
}
