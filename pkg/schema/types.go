package schema

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/rule"
)

// Row is a caller-owned record. The engine reads rows through the primary key
// and the column/field accessors declared here and never writes to them.
type Row = map[string]any

// MatchMode selects how a filter term is compared with a column value.
type MatchMode string

const (
	MatchContains   MatchMode = "contains"
	MatchStartsWith MatchMode = "startsWith"
	MatchEndsWith   MatchMode = "endsWith"
	MatchEquals     MatchMode = "equals"
)

// FieldKind enumerates the input kinds a form field can take.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindEmail       FieldKind = "email"
	KindNumber      FieldKind = "number"
	KindDate        FieldKind = "date"
	KindSelect      FieldKind = "select"
	KindMultiSelect FieldKind = "multiselect"
	KindTextArea    FieldKind = "textarea"
	KindFile        FieldKind = "file"
)

// Presentation is the container chrome a form is painted in.
type Presentation string

const (
	PresentationOverlay Presentation = "overlay"
	PresentationPanel   Presentation = "panel"
	PresentationPage    Presentation = "page"
)

// ListBehavior controls whether the list pages or grows.
type ListBehavior string

const (
	ListPaged    ListBehavior = "paged"
	ListInfinite ListBehavior = "infinite"
)

// ListMode controls how each row is painted.
type ListMode string

const (
	ListTable ListMode = "table"
	ListCards ListMode = "cards"
)

// Action names a per-row affordance.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Column describes one list column. Sortable, Filterable and Searchable
// default to true when nil.
type Column struct {
	Field      string    `json:"field" yaml:"field" toml:"field" validate:"required"`
	Header     string    `json:"header,omitempty" yaml:"header,omitempty" toml:"header,omitempty"`
	Sortable   *bool     `json:"sortable,omitempty" yaml:"sortable,omitempty" toml:"sortable,omitempty"`
	Filterable *bool     `json:"filterable,omitempty" yaml:"filterable,omitempty" toml:"filterable,omitempty"`
	Searchable *bool     `json:"searchable,omitempty" yaml:"searchable,omitempty" toml:"searchable,omitempty"`
	Match      MatchMode `json:"match,omitempty" yaml:"match,omitempty" toml:"match,omitempty" validate:"omitempty,oneof=contains startsWith endsWith equals"`
	Width      string    `json:"width,omitempty" yaml:"width,omitempty" toml:"width,omitempty"`
	Align      string    `json:"align,omitempty" yaml:"align,omitempty" toml:"align,omitempty" validate:"omitempty,oneof=left center right"`
	Class      string    `json:"class,omitempty" yaml:"class,omitempty" toml:"class,omitempty"`

	// Render paints the cell. Renderers treat the output as untrusted markup.
	Render func(row Row) string `json:"-" yaml:"-" toml:"-"`
	// Accessor overrides the dotted-path lookup of Field.
	Accessor func(row Row) any `json:"-" yaml:"-" toml:"-"`
}

func (c Column) IsSortable() bool   { return flag(c.Sortable) }
func (c Column) IsFilterable() bool { return flag(c.Filterable) }
func (c Column) IsSearchable() bool { return flag(c.Searchable) }

// MatchMode returns the configured mode, defaulting to substring matching.
func (c Column) MatchMode() MatchMode {
	if c.Match == "" {
		return MatchContains
	}
	return c.Match
}

// Label returns the header, deriving one from the field key when empty.
func (c Column) Label() string {
	if strings.TrimSpace(c.Header) != "" {
		return c.Header
	}
	return DefaultLabeler(c.Field)
}

// Value reads the column value from row.
func (c Column) Value(row Row) any {
	if c.Accessor != nil {
		return c.Accessor(row)
	}
	value, _ := valuepath.Get(row, c.Field)
	return value
}

// Option is one choice of a select field.
type Option struct {
	Label string `json:"label" yaml:"label" toml:"label" msgpack:"l"`
	Value string `json:"value" yaml:"value" toml:"value" msgpack:"v"`
}

// TransformFunc maps fetched candidate records into options.
type TransformFunc func(records []map[string]any) []Option

// RemoteBinding sources a field's options from another collection, scoped by
// the current values of the fields named in DependsOn.
type RemoteBinding struct {
	Endpoint    string            `json:"endpoint" yaml:"endpoint" toml:"endpoint" validate:"required"`
	LabelKey    string            `json:"labelKey,omitempty" yaml:"labelKey,omitempty" toml:"labelKey,omitempty"`
	ValueKey    string            `json:"valueKey,omitempty" yaml:"valueKey,omitempty" toml:"valueKey,omitempty"`
	DependsOn   []string          `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty" toml:"dependsOn,omitempty"`
	ResultsPath string            `json:"resultsPath,omitempty" yaml:"resultsPath,omitempty" toml:"resultsPath,omitempty"`
	Params      map[string]string `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`

	Transform TransformFunc `json:"-" yaml:"-" toml:"-"`
}

// Field describes one input of the create/edit form.
type Field struct {
	Name        string    `json:"name" yaml:"name" toml:"name" validate:"required"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Kind        FieldKind `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty" validate:"omitempty,oneof=text email number date select multiselect textarea file"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
	Min         *float64  `json:"min,omitempty" yaml:"min,omitempty" toml:"min,omitempty"`
	Max         *float64  `json:"max,omitempty" yaml:"max,omitempty" toml:"max,omitempty"`
	Pattern     string    `json:"pattern,omitempty" yaml:"pattern,omitempty" toml:"pattern,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty" toml:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty" yaml:"help,omitempty" toml:"help,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty" validate:"dive"`
	// DependsOn hides the field (and skips its validation) until every named
	// field has a value.
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty" toml:"dependsOn,omitempty"`
	// VisibleWhen is a rule over the form values; the field is hidden and
	// skipped by validation while it does not match.
	VisibleWhen string         `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty" toml:"visibleWhen,omitempty"`
	Remote      *RemoteBinding `json:"remote,omitempty" yaml:"remote,omitempty" toml:"remote,omitempty"`
}

// DisplayLabel returns Label or a label derived from Name.
func (f Field) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return DefaultLabeler(f.Name)
}

// InputKind returns Kind, defaulting to text.
func (f Field) InputKind() FieldKind {
	if f.Kind == "" {
		return KindText
	}
	return f.Kind
}

// HasChoices reports whether the field picks from an option list.
func (f Field) HasChoices() bool {
	kind := f.InputKind()
	return kind == KindSelect || kind == KindMultiSelect
}

// RemoteDependencies lists the fields the remote binding is scoped by.
func (f Field) RemoteDependencies() []string {
	if f.Remote == nil {
		return nil
	}
	return f.Remote.DependsOn
}

// TableSpec configures the list.
type TableSpec struct {
	Columns         []Column `json:"columns" yaml:"columns" toml:"columns" validate:"required,min=1,dive"`
	GlobalSearch    bool     `json:"globalSearch,omitempty" yaml:"globalSearch,omitempty" toml:"globalSearch,omitempty"`
	PageSize        int      `json:"pageSize,omitempty" yaml:"pageSize,omitempty" toml:"pageSize,omitempty" validate:"omitempty,min=1"`
	PageSizeOptions []int    `json:"pageSizeOptions,omitempty" yaml:"pageSizeOptions,omitempty" toml:"pageSizeOptions,omitempty" validate:"omitempty,dive,min=1"`
	EmptyText       string   `json:"emptyText,omitempty" yaml:"emptyText,omitempty" toml:"emptyText,omitempty"`
	// ServerSide delegates filtering, sorting and paging to the caller.
	ServerSide bool `json:"serverSide,omitempty" yaml:"serverSide,omitempty" toml:"serverSide,omitempty"`
}

// FormSpec lists form fields in display order.
type FormSpec struct {
	Fields []Field `json:"fields" yaml:"fields" toml:"fields" validate:"dive"`
}

// CardActions are the helper callbacks handed to a card renderer.
type CardActions struct {
	OnEdit   func()
	OnDelete func()
}

// CardSpec configures the card grid. Render is used by code-driven renderers;
// Template is a pongo2 snippet used by the HTML renderer when Render is nil.
type CardSpec struct {
	Template string                                            `json:"template,omitempty" yaml:"template,omitempty" toml:"template,omitempty"`
	Render   func(row Row, actions CardActions, index int) any `json:"-" yaml:"-" toml:"-"`
}

// ActionsSpec enables row actions. EditWhen and DeleteWhen are rules over the
// row (see package rule); Visible is an optional per-row predicate for code
// configured screens.
type ActionsSpec struct {
	Edit       *bool                             `json:"edit,omitempty" yaml:"edit,omitempty" toml:"edit,omitempty"`
	Delete     *bool                             `json:"delete,omitempty" yaml:"delete,omitempty" toml:"delete,omitempty"`
	EditWhen   string                            `json:"editWhen,omitempty" yaml:"editWhen,omitempty" toml:"editWhen,omitempty"`
	DeleteWhen string                            `json:"deleteWhen,omitempty" yaml:"deleteWhen,omitempty" toml:"deleteWhen,omitempty"`
	Visible    func(action Action, row Row) bool `json:"-" yaml:"-" toml:"-"`
}

// Allowed reports whether action is enabled and visible for row.
func (a ActionsSpec) Allowed(action Action, row Row) bool {
	var when string
	switch action {
	case ActionEdit:
		if !flag(a.Edit) {
			return false
		}
		when = a.EditWhen
	case ActionDelete:
		if !flag(a.Delete) {
			return false
		}
		when = a.DeleteWhen
	default:
		return false
	}
	if when != "" {
		if ok, err := rule.Match(when, row); err != nil || !ok {
			return false
		}
	}
	if a.Visible == nil {
		return true
	}
	return a.Visible(action, row)
}

// Configuration is the single declarative object a screen is built from. It
// is not mutated after construction.
type Configuration struct {
	ID           string       `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Title        string       `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	PrimaryKey   string       `json:"primaryKey" yaml:"primaryKey" toml:"primaryKey" validate:"required"`
	Table        TableSpec    `json:"table" yaml:"table" toml:"table"`
	Form         FormSpec     `json:"form" yaml:"form" toml:"form"`
	Cards        *CardSpec    `json:"cards,omitempty" yaml:"cards,omitempty" toml:"cards,omitempty"`
	Presentation Presentation `json:"presentation,omitempty" yaml:"presentation,omitempty" toml:"presentation,omitempty" validate:"omitempty,oneof=overlay panel page"`
	ListBehavior ListBehavior `json:"listBehavior,omitempty" yaml:"listBehavior,omitempty" toml:"listBehavior,omitempty" validate:"omitempty,oneof=paged infinite"`
	ListMode     ListMode     `json:"listMode,omitempty" yaml:"listMode,omitempty" toml:"listMode,omitempty" validate:"omitempty,oneof=table cards"`
	Actions      ActionsSpec  `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty"`
}

// DefaultPageSize is used when the table spec omits one.
const DefaultPageSize = 10

// WithDefaults returns a copy with every optional knob resolved.
func (c Configuration) WithDefaults() Configuration {
	out := c
	if out.Table.PageSize <= 0 {
		out.Table.PageSize = DefaultPageSize
	}
	if out.Presentation == "" {
		out.Presentation = PresentationOverlay
	}
	if out.ListBehavior == "" {
		out.ListBehavior = ListPaged
	}
	if out.ListMode == "" {
		out.ListMode = ListTable
	}
	return out
}

// Column looks a column up by field key.
func (c Configuration) Column(field string) (Column, bool) {
	for _, column := range c.Table.Columns {
		if column.Field == field {
			return column, true
		}
	}
	return Column{}, false
}

// Field looks a form field up by name.
func (c Configuration) Field(name string) (Field, bool) {
	for _, field := range c.Form.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// KeyOf returns the primary key of row.
func (c Configuration) KeyOf(row Row) (any, bool) {
	value, ok := valuepath.Get(row, c.PrimaryKey)
	if !ok || valuepath.IsEmpty(value) {
		return nil, false
	}
	return value, true
}

// KeyString is KeyOf rendered as a string, used for row identity in views.
func (c Configuration) KeyString(row Row) string {
	value, ok := c.KeyOf(row)
	if !ok {
		return ""
	}
	return fmt.Sprint(value)
}

func flag(value *bool) bool {
	if value == nil {
		return true
	}
	return *value
}

// Bool returns a pointer to v, for the optional flags above.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v, for Min/Max bounds.
func Float(v float64) *float64 { return &v }
