// Package text renders a grid screen as aligned plain text for terminals.
package text

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/view"
)

// Name is the registry key of the text renderer.
const Name = "text"

// DefaultMaxCellWidth caps a column before cells are truncated.
const DefaultMaxCellWidth = 40

type Option func(*Renderer)

// WithColor toggles ANSI styling. Color is also suppressed when stdout is not
// a terminal.
func WithColor(enabled bool) Option {
	return func(r *Renderer) {
		r.color = enabled
	}
}

// WithMaxCellWidth overrides DefaultMaxCellWidth.
func WithMaxCellWidth(width int) Option {
	return func(r *Renderer) {
		if width > 3 {
			r.maxWidth = width
		}
	}
}

// WithBuildOptions forwards options to view.BuildPage.
func WithBuildOptions(opts ...view.BuildOption) Option {
	return func(r *Renderer) {
		r.build = append(r.build, opts...)
	}
}

// Renderer paints a view model as text.
type Renderer struct {
	color    bool
	maxWidth int
	build    []view.BuildOption
	strip    *bluemonday.Policy

	heading *color.Color
	muted   *color.Color
	alert   *color.Color
}

var _ view.Renderer = (*Renderer)(nil)

// New constructs the text renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{
		color:    true,
		maxWidth: DefaultMaxCellWidth,
		strip:    bluemonday.StrictPolicy(),
		heading:  color.New(color.Bold),
		muted:    color.New(color.Faint),
		alert:    color.New(color.FgRed),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if !r.color {
		r.heading.DisableColor()
		r.muted.DisableColor()
		r.alert.DisableColor()
	}
	return r
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Render writes the list, the pager, then any open form or confirmation.
func (r *Renderer) Render(_ context.Context, vm crud.ViewModel) ([]byte, error) {
	page, err := view.BuildPage(vm, r.build...)
	if err != nil {
		return nil, fmt.Errorf("text renderer: build page: %w", err)
	}

	var b bytes.Buffer
	if page.Title != "" {
		fmt.Fprintln(&b, r.heading.Sprint(page.Title))
	}
	if page.Global != "" {
		fmt.Fprintf(&b, "Search: %s\n", page.Global)
	}
	for _, header := range page.Columns {
		if header.Filter != "" {
			fmt.Fprintf(&b, "Filter %s: %s\n", header.Label, header.Filter)
		}
	}

	if page.Layout.ListMode == schema.ListCards {
		r.cards(&b, page)
	} else {
		r.table(&b, page)
	}
	r.pager(&b, page.Pager)

	if page.Form != nil {
		r.form(&b, page)
	}
	if page.Confirm != nil {
		fmt.Fprintf(&b, "\n%s\n", r.alert.Sprintf("Delete %s? [y/N]", page.Confirm.Label))
	}
	return b.Bytes(), nil
}

func (r *Renderer) table(b *bytes.Buffer, page view.Page) {
	withActions := hasActions(page.Rows)

	headers := make([]string, 0, len(page.Columns)+1)
	for _, column := range page.Columns {
		label := column.Label
		switch column.Sort {
		case "asc":
			label += " ^"
		case "desc":
			label += " v"
		}
		headers = append(headers, label)
	}
	if withActions {
		headers = append(headers, "Actions")
	}

	grid := make([][]string, 0, len(page.Rows))
	for _, row := range page.Rows {
		line := make([]string, 0, len(headers))
		for _, cell := range row.Cells {
			line = append(line, r.cellText(cell))
		}
		if withActions {
			line = append(line, actionLabel(row))
		}
		grid = append(grid, line)
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
		for _, line := range grid {
			if w := runewidth.StringWidth(line[i]); w > widths[i] {
				widths[i] = w
			}
		}
		if widths[i] > r.maxWidth {
			widths[i] = r.maxWidth
		}
	}

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}

	fmt.Fprintln(b, r.heading.Sprint(r.line(headers, widths)))
	fmt.Fprintln(b, r.line(rule, widths))
	if len(grid) == 0 {
		fmt.Fprintln(b, r.muted.Sprint(page.EmptyText))
		return
	}
	for _, line := range grid {
		fmt.Fprintln(b, r.line(line, widths))
	}
}

func (r *Renderer) line(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		cell = runewidth.Truncate(cell, widths[i], "...")
		b.WriteString(runewidth.FillRight(cell, widths[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func (r *Renderer) cards(b *bytes.Buffer, page view.Page) {
	if len(page.Rows) == 0 {
		fmt.Fprintln(b, r.muted.Sprint(page.EmptyText))
		return
	}
	for i, row := range page.Rows {
		if i > 0 {
			fmt.Fprintln(b)
		}
		fmt.Fprintln(b, r.heading.Sprintf("#%s", row.Key))
		if card, ok := row.Card.(string); ok && card != "" {
			fmt.Fprintf(b, "  %s\n", r.stripMarkup(card))
		} else {
			for _, cell := range row.Cells {
				fmt.Fprintf(b, "  %s: %s\n", cell.Label, r.cellText(cell))
			}
		}
		if label := actionLabel(row); label != "" {
			fmt.Fprintf(b, "  [%s]\n", label)
		}
	}
}

func (r *Renderer) pager(b *bytes.Buffer, p view.Pager) {
	summary := p.Summary
	switch {
	case p.Infinite && p.HasNext:
		summary += " | more available"
	case !p.Infinite && p.PageCount > 0:
		summary += fmt.Sprintf(" | page %d of %d", p.Page, p.PageCount)
	}
	fmt.Fprintln(b, r.muted.Sprint(summary))
}

func (r *Renderer) form(b *bytes.Buffer, page view.Page) {
	f := page.Form
	fmt.Fprintf(b, "\n%s\n", r.heading.Sprintf("[%s] %s", page.Layout.Presentation, f.Title))
	for _, field := range f.Fields {
		label := field.Label
		if field.Required {
			label += " *"
		}
		value := field.Value
		if len(field.Options) > 0 {
			value = optionSummary(field)
		}
		line := strings.TrimRight(fmt.Sprintf("  %s: %s", label, value), " ")
		if field.Disabled {
			line += " [disabled]"
		}
		if field.Hint != "" {
			line += " (" + field.Hint + ")"
		}
		fmt.Fprintln(b, line)
		for _, msg := range field.Errors {
			fmt.Fprintln(b, r.alert.Sprintf("    ! %s", msg))
		}
	}
	if f.Submitting {
		fmt.Fprintln(b, r.muted.Sprint("  saving..."))
	}
}

func (r *Renderer) cellText(cell view.Cell) string {
	if cell.Markup != "" {
		if text := r.stripMarkup(cell.Markup); text != "" {
			return text
		}
	}
	return cell.Text
}

func (r *Renderer) stripMarkup(markup string) string {
	text := html.UnescapeString(r.strip.Sanitize(markup))
	return strings.Join(strings.Fields(text), " ")
}

func hasActions(rows []view.RowView) bool {
	for _, row := range rows {
		if row.CanEdit || row.CanDelete {
			return true
		}
	}
	return false
}

func actionLabel(row view.RowView) string {
	var actions []string
	if row.CanEdit {
		actions = append(actions, "edit")
	}
	if row.CanDelete {
		actions = append(actions, "delete")
	}
	return strings.Join(actions, " ")
}

// optionSummary renders "Selected (A, B*, C)" with the chosen options starred.
func optionSummary(field view.FieldView) string {
	var selected, all []string
	for _, opt := range field.Options {
		label := opt.Label
		if opt.Selected {
			selected = append(selected, opt.Label)
			label += "*"
		}
		all = append(all, label)
	}
	return strings.TrimSpace(strings.Join(selected, ", ") + " (" + strings.Join(all, ", ") + ")")
}
