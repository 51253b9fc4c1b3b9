// Package lookup serves in-memory record collections as listing endpoints for
// remote option bindings.
//
// The handler answers GET and HEAD requests with {"data": [...records]}. The
// search parameter matches the configured search fields (prefix matches rank
// first), the limit parameter is clamped, and any other parameter filters on
// the record key of the same name. That last rule is what scopes dependent
// options: the option resolver sends each dependency value under the
// dependency field's name.
package lookup
