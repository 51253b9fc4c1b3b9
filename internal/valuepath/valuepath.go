// Package valuepath reads and writes values inside record maps using dotted
// paths ("company.id", "tags.0"). Records are never mutated by readers;
// writers operate on copies produced by Clone.
package valuepath

import (
	"fmt"
	"strconv"
	"strings"
)

// Get resolves path inside root. A literal key that contains dots wins over
// traversal so flattened records ("company.id": 3) keep working.
func Get(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	if value, ok := root[path]; ok {
		return value, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	current := any(root)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Set writes value at path, creating intermediate maps. Numeric segments are
// treated as map keys; records edited by forms are flat or nested objects.
func Set(root map[string]any, path string, value any) error {
	if root == nil {
		return fmt.Errorf("valuepath: root map is nil")
	}
	if path == "" {
		return fmt.Errorf("valuepath: path is required")
	}
	segments := strings.Split(path, ".")
	node := root
	for i, segment := range segments {
		if i == len(segments)-1 {
			node[segment] = value
			return nil
		}
		child, ok := node[segment].(map[string]any)
		if !ok || child == nil {
			if existing, present := node[segment]; present && existing != nil {
				return fmt.Errorf("valuepath: segment %q of %q is not an object", segment, path)
			}
			child = make(map[string]any)
			node[segment] = child
		}
		node = child
	}
	return nil
}

// Clone returns a deep copy of src. Maps and slices are copied recursively,
// everything else is shared.
func Clone(src map[string]any) map[string]any {
	if src == nil {
		return make(map[string]any)
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = DeepCopy(v)
	}
	return out
}

// DeepCopy copies maps and slices recursively.
func DeepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = DeepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = DeepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}

// Merge deep-merges patch over base into a new map. Nested objects merge key
// by key; any other patch value replaces the base value.
func Merge(base, patch map[string]any) map[string]any {
	out := Clone(base)
	for key, value := range patch {
		incoming, isMap := value.(map[string]any)
		existing, wasMap := out[key].(map[string]any)
		if isMap && wasMap {
			out[key] = Merge(existing, incoming)
			continue
		}
		out[key] = DeepCopy(value)
	}
	return out
}

// IsEmpty reports whether a form value counts as unset: nil, blank strings and
// empty collections.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	case []string:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}
