package view

import (
	"fmt"
	"slices"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/form"
	"github.com/goliatone/go-crudgrid/pkg/predicate"
	"github.com/goliatone/go-crudgrid/pkg/query"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Page is the renderer-neutral shape of one screen. Every renderer paints the
// same Page; only the chrome and the row layout differ.
type Page struct {
	Title        string       `json:"title,omitempty"`
	Layout       Layout       `json:"layout"`
	GlobalSearch bool         `json:"globalSearch"`
	Global       string       `json:"global,omitempty"`
	Columns      []Header     `json:"columns"`
	Rows         []RowView    `json:"rows"`
	EmptyText    string       `json:"emptyText,omitempty"`
	Pager        Pager        `json:"pager"`
	Form         *FormView    `json:"form,omitempty"`
	Confirm      *ConfirmView `json:"confirm,omitempty"`
	Saving       bool         `json:"saving"`
	Deleting     bool         `json:"deleting"`
}

// Header is one column heading with its interactive state.
type Header struct {
	Field      string `json:"field"`
	Label      string `json:"label"`
	Sortable   bool   `json:"sortable"`
	Filterable bool   `json:"filterable"`
	Sort       string `json:"sort,omitempty"`
	Filter     string `json:"filter,omitempty"`
	Width      string `json:"width,omitempty"`
	Align      string `json:"align,omitempty"`
	Class      string `json:"class,omitempty"`
}

// Cell is one painted value. Markup is set when the column has a custom
// renderer and is untrusted until a renderer sanitises it.
type Cell struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Text   string `json:"text"`
	Markup string `json:"markup,omitempty"`
	Align  string `json:"align,omitempty"`
	Class  string `json:"class,omitempty"`
}

// RowView is one painted row.
type RowView struct {
	Key       string `json:"key"`
	Index     int    `json:"index"`
	Cells     []Cell `json:"cells"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
	// Card is the card renderer output for this row, when one is configured.
	Card any `json:"card,omitempty"`
}

// Pager describes the paging controls. Page is 1-based; Prev and Next are
// page indexes ready to hand back to SetPage.
type Pager struct {
	Page        int    `json:"page"`
	PageIndex   int    `json:"pageIndex"`
	PageSize    int    `json:"pageSize"`
	PageCount   int    `json:"pageCount"`
	TotalRows   int    `json:"totalRows"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	Prev        int    `json:"prev"`
	Next        int    `json:"next"`
	HasPrev     bool   `json:"hasPrev"`
	HasNext     bool   `json:"hasNext"`
	Infinite    bool   `json:"infinite"`
	Summary     string `json:"summary"`
	SizeOptions []int  `json:"sizeOptions,omitempty"`
}

// FormView is the open form, independent of the chrome it is shown in.
type FormView struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Creating   bool        `json:"creating"`
	State      string      `json:"state"`
	Submitting bool        `json:"submitting"`
	Fields     []FieldView `json:"fields"`
}

// FieldView is one form input.
type FieldView struct {
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	Kind        string       `json:"kind"`
	Value       string       `json:"value"`
	Selected    []string     `json:"selected,omitempty"`
	Options     []OptionView `json:"options,omitempty"`
	Required    bool         `json:"required"`
	Disabled    bool         `json:"disabled"`
	Placeholder string       `json:"placeholder,omitempty"`
	Help        string       `json:"help,omitempty"`
	Hint        string       `json:"hint,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
}

// OptionView is one choice with its selection state.
type OptionView struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// ConfirmView is the pending delete confirmation.
type ConfirmView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// BuildOption customises BuildPage.
type BuildOption func(*buildConfig)

type buildConfig struct {
	layout      Layout
	cardActions func(row schema.Row) schema.CardActions
}

// WithLayout overrides the layout recorded on the view model.
func WithLayout(layout Layout) BuildOption {
	return func(cfg *buildConfig) {
		cfg.layout = layout
	}
}

// WithCardActions supplies the callbacks handed to the card renderer for each
// row.
func WithCardActions(fn func(row schema.Row) schema.CardActions) BuildOption {
	return func(cfg *buildConfig) {
		cfg.cardActions = fn
	}
}

// BuildPage maps a view model into a Page. It has no side effects.
func BuildPage(vm crud.ViewModel, opts ...BuildOption) (Page, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.layout.Presentation == "" {
		cfg.layout.Presentation = vm.Presentation
	}
	if cfg.layout.ListMode == "" {
		cfg.layout.ListMode = vm.ListMode
	}
	layout, err := SelectLayout(vm.Config, cfg.layout)
	if err != nil {
		return Page{}, err
	}

	conf := vm.Config.WithDefaults()
	page := Page{
		Title:        conf.Title,
		Layout:       layout,
		GlobalSearch: conf.Table.GlobalSearch,
		Global:       vm.Query.Global,
		Columns:      headers(conf.Table.Columns, vm.Query),
		EmptyText:    conf.Table.EmptyText,
		Pager:        pager(vm, conf),
		Saving:       vm.Saving,
		Deleting:     vm.Deleting,
	}
	if page.EmptyText == "" {
		page.EmptyText = "No records found"
	}

	offset := 0
	if conf.ListBehavior != schema.ListInfinite {
		offset = vm.Query.PageIndex * vm.Query.PageSize
	}
	for i, row := range vm.Rows {
		rv := RowView{
			Key:       conf.KeyString(row),
			Index:     offset + i,
			CanEdit:   conf.Actions.Allowed(schema.ActionEdit, row),
			CanDelete: conf.Actions.Allowed(schema.ActionDelete, row),
		}
		for _, column := range conf.Table.Columns {
			rv.Cells = append(rv.Cells, cell(column, row))
		}
		if layout.ListMode == schema.ListCards && conf.Cards != nil && conf.Cards.Render != nil {
			var actions schema.CardActions
			if cfg.cardActions != nil {
				actions = cfg.cardActions(row)
			}
			rv.Card = conf.Cards.Render(row, actions, rv.Index)
		}
		page.Rows = append(page.Rows, rv)
	}

	if vm.Form != nil {
		page.Form = formView(*vm.Form)
	}
	if vm.Confirm != nil {
		page.Confirm = &ConfirmView{
			Key:   conf.KeyString(vm.Confirm),
			Label: confirmLabel(conf, vm.Confirm),
		}
	}
	return page, nil
}

func headers(columns []schema.Column, state query.State) []Header {
	out := make([]Header, 0, len(columns))
	for _, column := range columns {
		h := Header{
			Field:      column.Field,
			Label:      column.Label(),
			Sortable:   column.IsSortable(),
			Filterable: column.IsFilterable(),
			Width:      column.Width,
			Align:      column.Align,
			Class:      column.Class,
		}
		if state.Sort.Active() && state.Sort.Field == column.Field {
			h.Sort = string(state.Sort.Direction)
		}
		if f, ok := state.Filters[column.Field]; ok {
			h.Filter = f.Text
		}
		out = append(out, h)
	}
	return out
}

func cell(column schema.Column, row schema.Row) Cell {
	c := Cell{
		Field: column.Field,
		Label: column.Label(),
		Text:  predicate.Stringify(column.Value(row)),
		Align: column.Align,
		Class: column.Class,
	}
	if column.Render != nil {
		c.Markup = column.Render(row)
	}
	return c
}

func pager(vm crud.ViewModel, conf schema.Configuration) Pager {
	p := Pager{
		PageIndex: vm.Query.PageIndex,
		Page:      vm.Query.PageIndex + 1,
		PageSize:  vm.Query.PageSize,
		PageCount: vm.PageCount,
		TotalRows: vm.TotalRows,
		Infinite:  conf.ListBehavior == schema.ListInfinite,
	}
	if len(conf.Table.PageSizeOptions) > 0 {
		p.SizeOptions = slices.Clone(conf.Table.PageSizeOptions)
	}
	if len(vm.Rows) > 0 {
		if p.Infinite {
			p.From = 1
		} else {
			p.From = p.PageIndex*p.PageSize + 1
		}
		p.To = p.From + len(vm.Rows) - 1
	}
	p.HasPrev = !p.Infinite && p.PageIndex > 0
	p.HasNext = vm.HasMore
	if p.HasPrev {
		p.Prev = p.PageIndex - 1
	}
	p.Next = p.PageIndex
	if p.HasNext {
		p.Next = p.PageIndex + 1
	}
	switch {
	case p.To == 0:
		p.Summary = fmt.Sprintf("0 of %d", p.TotalRows)
	case p.Infinite:
		p.Summary = fmt.Sprintf("%d of %d", p.To, p.TotalRows)
	default:
		p.Summary = fmt.Sprintf("%d-%d of %d", p.From, p.To, p.TotalRows)
	}
	return p
}

func formView(snap form.Snapshot) *FormView {
	fv := &FormView{
		ID:         snap.ID,
		Creating:   snap.Creating,
		State:      string(snap.State),
		Submitting: snap.State == form.StateSubmitting,
		Title:      "Edit record",
	}
	if snap.Creating {
		fv.Title = "New record"
	}
	for _, fs := range snap.Fields {
		if !fs.Visible {
			continue
		}
		field := fs.Field
		v := FieldView{
			Name:        field.Name,
			Label:       field.DisplayLabel(),
			Kind:        string(field.InputKind()),
			Required:    field.Required,
			Disabled:    fs.Disabled || fv.Submitting,
			Placeholder: field.Placeholder,
			Help:        field.Help,
			Hint:        fs.Hint,
			Errors:      slices.Clone(fs.Errors),
		}
		if field.InputKind() == schema.KindMultiSelect {
			v.Selected = form.Selection(fs.Value)
		} else {
			v.Value = predicate.Stringify(fs.Value)
			if v.Value != "" {
				v.Selected = []string{v.Value}
			}
		}
		for _, opt := range fs.Options {
			v.Options = append(v.Options, OptionView{
				Label:    opt.Label,
				Value:    opt.Value,
				Selected: slices.Contains(v.Selected, opt.Value),
			})
		}
		fv.Fields = append(fv.Fields, v)
	}
	return fv
}

// confirmLabel names the row in the confirmation prompt: the first column
// with a value, else the primary key.
func confirmLabel(conf schema.Configuration, row schema.Row) string {
	for _, column := range conf.Table.Columns {
		if column.Field == conf.PrimaryKey {
			continue
		}
		if text := predicate.Stringify(column.Value(row)); text != "" {
			return text
		}
	}
	if key := conf.KeyString(row); key != "" {
		return "#" + key
	}
	return "this record"
}
