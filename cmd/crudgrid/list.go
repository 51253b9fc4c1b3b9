package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/query"
	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/view"
	"github.com/goliatone/go-crudgrid/pkg/view/html"
	"github.com/goliatone/go-crudgrid/pkg/view/text"
)

const formatJSON = "json"

type listOptions struct {
	search       string
	filters      []string
	sort         string
	page         int
	pageSize     int
	layout       string
	presentation string
	format       string
	width        int
}

func (a *app) newListCmd() *cobra.Command {
	opts := listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of the grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runList(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.search, "search", "s", "", "global search term")
	flags.StringArrayVarP(&opts.filters, "filter", "f", nil, "column filter as field=term (repeatable)")
	flags.StringVar(&opts.sort, "sort", "", "sort column as field or field:desc")
	flags.IntVarP(&opts.page, "page", "p", 1, "page number, starting at 1")
	flags.IntVar(&opts.pageSize, "page-size", 0, "rows per page (defaults to the screen setting)")
	flags.StringVar(&opts.layout, "layout", "", "row layout: table or cards")
	flags.StringVar(&opts.presentation, "presentation", "", "form container: overlay, panel or page")
	flags.StringVarP(&opts.format, "format", "o", text.Name, "output format: text, html or json")
	flags.IntVar(&opts.width, "max-width", 0, "truncate text cells to this many columns")
	return cmd
}

func (a *app) runList(cmd *cobra.Command, opts listOptions) error {
	ws, err := a.openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	orch, err := ws.orchestrator(
		crud.WithLogger(a.logger),
		crud.WithQueryOptions(query.WithDebounce(0)),
	)
	if err != nil {
		return err
	}
	defer orch.Close()

	if err := applyQuery(orch.Query(), opts); err != nil {
		return err
	}
	if err := applyLayout(orch, opts.layout, opts.presentation); err != nil {
		return err
	}

	vm := orch.View()
	if opts.format == formatJSON {
		page, err := view.BuildPage(vm)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	registry, err := a.renderers(opts.width)
	if err != nil {
		return err
	}
	renderer, err := registry.Get(opts.format)
	if err != nil {
		return fmt.Errorf("%w (available: %s, %s)", err, strings.Join(registry.List(), ", "), formatJSON)
	}
	out, err := renderer.Render(cmd.Context(), vm)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}

func (a *app) renderers(width int) (*view.Registry, error) {
	registry := view.NewRegistry()
	textOpts := []text.Option{text.WithColor(!a.settings.noColor)}
	if width > 0 {
		textOpts = append(textOpts, text.WithMaxCellWidth(width))
	}
	registry.MustRegister(text.New(textOpts...))

	htmlRenderer, err := html.New()
	if err != nil {
		return nil, err
	}
	if err := registry.Register(htmlRenderer); err != nil {
		return nil, err
	}
	return registry, nil
}

// applyQuery replays the command-line query in the order a user would type it:
// search, filters, sort, page size and then the page.
func applyQuery(ctrl *query.Controller, opts listOptions) error {
	if opts.search != "" {
		ctrl.SetGlobalFilter(opts.search)
	}
	for _, raw := range opts.filters {
		field, term, ok := strings.Cut(raw, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return fmt.Errorf("invalid filter %q, want field=term", raw)
		}
		if !ctrl.SetColumnFilter(field, term) {
			return fmt.Errorf("column %q cannot be filtered", field)
		}
	}
	if opts.sort != "" {
		field, direction, _ := strings.Cut(opts.sort, ":")
		switch query.Direction(strings.ToLower(direction)) {
		case query.DirectionNone, query.DirectionAsc:
			if !ctrl.SetSort(field) {
				return fmt.Errorf("column %q cannot be sorted", field)
			}
		case query.DirectionDesc:
			if !ctrl.SetSort(field) || !ctrl.SetSort(field) {
				return fmt.Errorf("column %q cannot be sorted", field)
			}
		default:
			return fmt.Errorf("invalid sort direction %q, want asc or desc", direction)
		}
	}
	if opts.pageSize > 0 && !ctrl.SetPageSize(opts.pageSize) {
		return fmt.Errorf("invalid page size %d", opts.pageSize)
	}
	ctrl.Flush()
	if opts.page < 1 {
		return fmt.Errorf("invalid page %d", opts.page)
	}
	if opts.page > 1 && !ctrl.SetPage(opts.page-1) {
		return fmt.Errorf("invalid page %d", opts.page)
	}
	return nil
}

func applyLayout(orch *crud.Orchestrator, listMode, presentation string) error {
	layout, err := view.SelectLayout(orch.Config(), view.Layout{
		ListMode:     schema.ListMode(listMode),
		Presentation: schema.Presentation(presentation),
	})
	if err != nil {
		return err
	}
	if err := orch.SetListMode(layout.ListMode); err != nil {
		return err
	}
	return orch.SetPresentation(layout.Presentation)
}
