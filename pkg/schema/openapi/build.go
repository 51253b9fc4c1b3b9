package openapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// ExtensionKey is the vendor extension read from components and properties.
const ExtensionKey = "x-crudgrid"

// DefaultMaxDepth bounds how deep nested objects are flattened.
const DefaultMaxDepth = 3

// longTextThreshold turns strings with a larger maxLength into text areas.
const longTextThreshold = 255

var ErrUnknownComponent = errors.New("openapi: unknown component")

// BuildOption tunes derivation.
type BuildOption func(*buildOptions)

type buildOptions struct {
	primaryKey string
	maxDepth   int
}

// WithPrimaryKey overrides the primary key, which otherwise comes from the
// component extension or an "id" property.
func WithPrimaryKey(key string) BuildOption {
	return func(o *buildOptions) {
		o.primaryKey = key
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) BuildOption {
	return func(o *buildOptions) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

type screenExtension struct {
	Title           string              `json:"title"`
	PrimaryKey      string              `json:"primaryKey"`
	Order           []string            `json:"order"`
	Presentation    schema.Presentation `json:"presentation"`
	ListMode        schema.ListMode     `json:"listMode"`
	ListBehavior    schema.ListBehavior `json:"listBehavior"`
	PageSize        int                 `json:"pageSize"`
	PageSizeOptions []int               `json:"pageSizeOptions"`
	GlobalSearch    *bool               `json:"globalSearch"`
	ServerSide      bool                `json:"serverSide"`
	EmptyText       string              `json:"emptyText"`
	EditWhen        string              `json:"editWhen"`
	DeleteWhen      string              `json:"deleteWhen"`
}

type columnExtension struct {
	Header     string           `json:"header"`
	Sortable   *bool            `json:"sortable"`
	Filterable *bool            `json:"filterable"`
	Searchable *bool            `json:"searchable"`
	Match      schema.MatchMode `json:"match"`
	Width      string           `json:"width"`
	Align      string           `json:"align"`
	Class      string           `json:"class"`
	Hidden     bool             `json:"hidden"`
}

type fieldExtension struct {
	Label       string          `json:"label"`
	Kind        string          `json:"kind"`
	Placeholder string          `json:"placeholder"`
	Help        string          `json:"help"`
	DependsOn   []string        `json:"dependsOn"`
	VisibleWhen string          `json:"visibleWhen"`
	Options     []schema.Option `json:"options"`
	Hidden      bool            `json:"hidden"`
}

type propertyExtension struct {
	Column columnExtension       `json:"column"`
	Field  fieldExtension        `json:"field"`
	Remote *schema.RemoteBinding `json:"remote"`
}

// Build derives a validated configuration from the named component schema of
// doc. The component name becomes the screen id.
func Build(doc *openapi3.T, component string, opts ...BuildOption) (schema.Configuration, error) {
	if doc == nil || doc.Components == nil {
		return schema.Configuration{}, fmt.Errorf("%w: %s", ErrUnknownComponent, component)
	}
	ref, ok := doc.Components.Schemas[component]
	if !ok || ref == nil || ref.Value == nil {
		return schema.Configuration{}, fmt.Errorf("%w: %s", ErrUnknownComponent, component)
	}
	return BuildSchema(component, ref.Value, opts...)
}

// BuildSchema derives a configuration from an object schema.
func BuildSchema(id string, s *openapi3.Schema, opts ...BuildOption) (schema.Configuration, error) {
	o := buildOptions{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	if s == nil {
		return schema.Configuration{}, fmt.Errorf("openapi: component %q has no schema", id)
	}

	var ext screenExtension
	if err := decodeExtension(extensionOf(s), &ext); err != nil {
		return schema.Configuration{}, fmt.Errorf("openapi: component %q: %w", id, err)
	}

	base := effective(s)
	if len(base.Properties) == 0 {
		return schema.Configuration{}, fmt.Errorf("openapi: component %q has no properties", id)
	}

	cfg := schema.Configuration{
		ID:           id,
		Title:        firstNonEmpty(ext.Title, s.Title, base.Title, schema.DefaultLabeler(id)),
		PrimaryKey:   firstNonEmpty(o.primaryKey, ext.PrimaryKey),
		Presentation: ext.Presentation,
		ListMode:     ext.ListMode,
		ListBehavior: ext.ListBehavior,
		Table: schema.TableSpec{
			GlobalSearch:    ext.GlobalSearch == nil || *ext.GlobalSearch,
			PageSize:        ext.PageSize,
			PageSizeOptions: ext.PageSizeOptions,
			EmptyText:       ext.EmptyText,
			ServerSide:      ext.ServerSide,
		},
		Actions: schema.ActionsSpec{EditWhen: ext.EditWhen, DeleteWhen: ext.DeleteWhen},
	}
	if cfg.PrimaryKey == "" {
		if _, ok := base.Properties["id"]; ok {
			cfg.PrimaryKey = "id"
		}
	}

	b := &builder{cfg: &cfg, maxDepth: o.maxDepth, visiting: map[*openapi3.Schema]bool{base: true}}
	if err := b.walk("", base, ext.Order, 1); err != nil {
		return schema.Configuration{}, fmt.Errorf("openapi: component %q: %w", id, err)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return schema.Configuration{}, fmt.Errorf("openapi: component %q: %w", id, err)
	}
	return cfg, nil
}

type builder struct {
	cfg      *schema.Configuration
	maxDepth int
	visiting map[*openapi3.Schema]bool
}

func (b *builder) walk(prefix string, s *openapi3.Schema, order []string, depth int) error {
	for _, name := range orderedProperties(s, order) {
		ref := s.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		path := prefix + name

		var ext propertyExtension
		if err := decodeExtension(extensionOf(prop), &ext); err != nil {
			return fmt.Errorf("property %q: %w", path, err)
		}

		base := effective(prop)
		if schemaType(base) == "object" && len(base.Properties) > 0 && ext.Remote == nil {
			if depth >= b.maxDepth || b.visiting[base] {
				continue
			}
			b.visiting[base] = true
			err := b.walk(path+".", base, nil, depth+1)
			delete(b.visiting, base)
			if err != nil {
				return err
			}
			continue
		}

		b.addColumn(path, prop, base, ext)
		b.addField(path, prop, base, ext, slices.Contains(s.Required, name))
	}
	return nil
}

func (b *builder) addColumn(path string, prop, base *openapi3.Schema, ext propertyExtension) {
	if ext.Column.Hidden {
		return
	}
	typ := schemaType(base)
	if typ == "object" && ext.Remote == nil {
		return
	}
	if typ == "array" {
		if items := itemSchema(base); items != nil && schemaType(items) == "object" {
			return
		}
	}
	if base.Format == "binary" {
		return
	}

	column := schema.Column{
		Field:      path,
		Header:     firstNonEmpty(ext.Column.Header, prop.Title, base.Title),
		Sortable:   ext.Column.Sortable,
		Filterable: ext.Column.Filterable,
		Searchable: ext.Column.Searchable,
		Match:      ext.Column.Match,
		Width:      ext.Column.Width,
		Align:      ext.Column.Align,
		Class:      ext.Column.Class,
	}
	if column.Align == "" && (typ == "integer" || typ == "number") && ext.Remote == nil {
		column.Align = "right"
	}
	b.cfg.Table.Columns = append(b.cfg.Table.Columns, column)
}

func (b *builder) addField(path string, prop, base *openapi3.Schema, ext propertyExtension, required bool) {
	if ext.Field.Hidden || prop.ReadOnly || base.ReadOnly || path == b.cfg.PrimaryKey {
		return
	}
	kind := inferKind(base, ext)
	if kind == "" {
		return
	}

	field := schema.Field{
		Name:        path,
		Label:       firstNonEmpty(ext.Field.Label, prop.Title, base.Title),
		Kind:        kind,
		Required:    required,
		Pattern:     base.Pattern,
		Placeholder: ext.Field.Placeholder,
		Help:        firstNonEmpty(ext.Field.Help, prop.Description, base.Description),
		Default:     prop.Default,
		DependsOn:   ext.Field.DependsOn,
		VisibleWhen: ext.Field.VisibleWhen,
		Remote:      ext.Remote,
	}
	if field.Default == nil {
		field.Default = base.Default
	}

	switch kind {
	case schema.KindNumber:
		field.Min = copyFloat(base.Min)
		field.Max = copyFloat(base.Max)
	case schema.KindText, schema.KindEmail, schema.KindTextArea:
		if base.MinLength > 0 {
			field.Min = schema.Float(float64(base.MinLength))
		}
		if base.MaxLength != nil {
			field.Max = schema.Float(float64(*base.MaxLength))
		}
	case schema.KindMultiSelect:
		if base.MinItems > 0 {
			field.Min = schema.Float(float64(base.MinItems))
		}
		if base.MaxItems != nil {
			field.Max = schema.Float(float64(*base.MaxItems))
		}
	}

	if field.HasChoices() && field.Remote == nil {
		field.Options = ext.Field.Options
		if len(field.Options) == 0 {
			field.Options = choicesOf(base)
		}
	}
	b.cfg.Form.Fields = append(b.cfg.Form.Fields, field)
}

func inferKind(s *openapi3.Schema, ext propertyExtension) schema.FieldKind {
	if ext.Field.Kind != "" {
		return schema.FieldKind(ext.Field.Kind)
	}
	typ := schemaType(s)
	if ext.Remote != nil {
		if typ == "array" {
			return schema.KindMultiSelect
		}
		return schema.KindSelect
	}
	switch typ {
	case "integer", "number":
		if len(s.Enum) > 0 {
			return schema.KindSelect
		}
		return schema.KindNumber
	case "boolean":
		return schema.KindSelect
	case "array":
		if items := itemSchema(s); items != nil && len(items.Enum) > 0 {
			return schema.KindMultiSelect
		}
		return ""
	case "object":
		return ""
	}
	if len(s.Enum) > 0 {
		return schema.KindSelect
	}
	switch s.Format {
	case "date", "date-time":
		return schema.KindDate
	case "email":
		return schema.KindEmail
	case "binary", "byte":
		return schema.KindFile
	}
	if s.MaxLength != nil && *s.MaxLength > longTextThreshold {
		return schema.KindTextArea
	}
	return schema.KindText
}

func choicesOf(s *openapi3.Schema) []schema.Option {
	values := s.Enum
	switch schemaType(s) {
	case "boolean":
		return []schema.Option{{Label: "Yes", Value: "true"}, {Label: "No", Value: "false"}}
	case "array":
		if items := itemSchema(s); items != nil {
			values = items.Enum
		}
	}
	options := make([]schema.Option, 0, len(values))
	for _, value := range values {
		if value == nil {
			continue
		}
		text := fmt.Sprint(value)
		options = append(options, schema.Option{Label: schema.DefaultLabeler(text), Value: text})
	}
	return options
}

// effective unwraps single-member allOf wrappers, the usual way a $ref gains
// a title or extension.
func effective(s *openapi3.Schema) *openapi3.Schema {
	for s != nil && schemaType(s) == "" && len(s.Properties) == 0 && len(s.AllOf) == 1 {
		inner := s.AllOf[0]
		if inner == nil || inner.Value == nil {
			break
		}
		s = inner.Value
	}
	return s
}

// extensionOf merges the extension of s over those of its allOf members.
func extensionOf(s *openapi3.Schema) map[string]any {
	merged := map[string]any{}
	for _, ref := range s.AllOf {
		if ref == nil || ref.Value == nil {
			continue
		}
		maps.Copy(merged, extensionOf(ref.Value))
	}
	if own, ok := s.Extensions[ExtensionKey].(map[string]any); ok {
		maps.Copy(merged, own)
	} else if raw, ok := s.Extensions[ExtensionKey]; ok && raw != nil {
		merged[""] = raw
	}
	return merged
}

func decodeExtension(raw map[string]any, target any) error {
	if len(raw) == 0 {
		return nil
	}
	if bad, ok := raw[""]; ok {
		return fmt.Errorf("%s must be an object, got %T", ExtensionKey, bad)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ExtensionKey, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", ExtensionKey, err)
	}
	return nil
}

func orderedProperties(s *openapi3.Schema, order []string) []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range order {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil {
		return ""
	}
	for _, typ := range s.Type.Slice() {
		if typ != "null" {
			return typ
		}
	}
	return ""
}

func itemSchema(s *openapi3.Schema) *openapi3.Schema {
	if s.Items == nil {
		return nil
	}
	return effective(s.Items.Value)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return schema.Float(*v)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
