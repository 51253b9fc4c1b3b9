package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-crudgrid/pkg/rule"
)

// ErrInvalidConfiguration wraps every configuration validation failure.
var ErrInvalidConfiguration = errors.New("schema: invalid configuration")

// ConfigError lists every problem found in a Configuration.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schema: invalid configuration: %s", strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

var (
	validateOnce sync.Once
	structs      *validator.Validate
)

// Validator returns the shared struct validator. The form engine reuses it for
// field-level rules such as email.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		structs = validator.New(validator.WithRequiredStructEnabled())
	})
	return structs
}

// Validate checks struct tags and the cross references tags cannot express:
// unique column/field names, dependency targets, patterns and bounds.
func (c Configuration) Validate() error {
	var problems []string

	if err := Validator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, describeFieldError(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	seenColumns := make(map[string]struct{}, len(c.Table.Columns))
	for _, column := range c.Table.Columns {
		if column.Field == "" {
			continue
		}
		if _, dup := seenColumns[column.Field]; dup {
			problems = append(problems, fmt.Sprintf("duplicate column %q", column.Field))
		}
		seenColumns[column.Field] = struct{}{}
	}

	names := make(map[string]struct{}, len(c.Form.Fields))
	for _, field := range c.Form.Fields {
		if field.Name == "" {
			continue
		}
		if _, dup := names[field.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate form field %q", field.Name))
		}
		names[field.Name] = struct{}{}
	}

	for _, field := range c.Form.Fields {
		for _, dep := range field.DependsOn {
			if _, ok := names[dep]; !ok || dep == field.Name {
				problems = append(problems, fmt.Sprintf("field %q depends on unknown field %q", field.Name, dep))
			}
		}
		for _, dep := range field.RemoteDependencies() {
			if _, ok := names[dep]; !ok || dep == field.Name {
				problems = append(problems, fmt.Sprintf("field %q remote options depend on unknown field %q", field.Name, dep))
			}
		}
		if field.Pattern != "" {
			if _, err := regexp.Compile(field.Pattern); err != nil {
				problems = append(problems, fmt.Sprintf("field %q pattern: %v", field.Name, err))
			}
		}
		if field.Min != nil && field.Max != nil && *field.Min > *field.Max {
			problems = append(problems, fmt.Sprintf("field %q min %v exceeds max %v", field.Name, *field.Min, *field.Max))
		}
		if field.VisibleWhen != "" {
			if _, err := rule.Compile(field.VisibleWhen); err != nil {
				problems = append(problems, fmt.Sprintf("field %q visibleWhen: %v", field.Name, err))
			}
		}
		if field.Remote != nil && !field.HasChoices() {
			problems = append(problems, fmt.Sprintf("field %q has remote options but kind %q", field.Name, field.InputKind()))
		}
	}

	for _, when := range [][2]string{{"editWhen", c.Actions.EditWhen}, {"deleteWhen", c.Actions.DeleteWhen}} {
		if when[1] == "" {
			continue
		}
		if _, err := rule.Compile(when[1]); err != nil {
			problems = append(problems, fmt.Sprintf("actions %s: %v", when[0], err))
		}
	}

	if cycle := dependencyCycle(c.Form.Fields); cycle != "" {
		problems = append(problems, "dependency cycle through "+cycle)
	}

	if len(problems) == 0 {
		return nil
	}
	return &ConfigError{Problems: problems}
}

func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", path, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", path, fe.Tag())
	}
}

// dependencyCycle returns the first field found on a dependency cycle.
func dependencyCycle(fields []Field) string {
	edges := make(map[string][]string, len(fields))
	for _, field := range fields {
		deps := append([]string(nil), field.DependsOn...)
		deps = append(deps, field.RemoteDependencies()...)
		edges[field.Name] = deps
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(edges))
	var visit func(string) string
	visit = func(name string) string {
		switch state[name] {
		case visiting:
			return name
		case done:
			return ""
		}
		state[name] = visiting
		for _, dep := range edges[name] {
			if found := visit(dep); found != "" {
				return found
			}
		}
		state[name] = done
		return ""
	}
	for _, field := range fields {
		if found := visit(field.Name); found != "" {
			return found
		}
	}
	return ""
}
