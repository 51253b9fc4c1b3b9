// Package openapi derives grid screen configurations from OpenAPI 3 component
// schemas using kin-openapi.
//
// Every scalar property of the component becomes a column and a form field.
// Nested objects are flattened into dotted paths. Read-only properties and the
// primary key are listed but never edited. Kinds are inferred from the
// property type and format: numbers, dates, emails, binary uploads, enums as
// selects, arrays of enums as multi-selects, long strings as text areas.
//
// The x-crudgrid extension refines the result. On the component it carries
// screen settings:
//
//	x-crudgrid:
//	  title: Policies
//	  primaryKey: id
//	  order: [id, insurer, status]
//	  presentation: panel
//	  pageSize: 25
//
// On a property it carries column, field and remote overrides:
//
//	x-crudgrid:
//	  column: {header: Insurer, align: right, hidden: false}
//	  field: {label: Insurer, kind: textarea, dependsOn: [kind]}
//	  remote: {endpoint: /api/insurers, labelKey: name, dependsOn: [kind]}
package openapi
