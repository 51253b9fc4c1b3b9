// Package schema defines the declarative screen contract shared by every
// component of the grid engine: the Configuration, its ordered Column
// descriptors, and the ordered form Field descriptors (validation bounds,
// static options or a RemoteBinding scoped by dependency fields). Values are
// plain structs so screens can be written as Go literals or loaded from
// JSON, YAML or TOML documents via LoadFS; renderer and accessor hooks are
// code-only and never serialised.
package schema
