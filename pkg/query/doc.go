// Package query owns the query state of a grid screen (page, page size, sort,
// column filters and the global search term) and the local recomputation used
// when the grid filters, sorts and pages rows in memory.
//
// A Controller settles every transition through one hook. Text input settles
// after a debounce window driven by a Scheduler; page and sort changes settle
// immediately. In server mode the settled State is converted to a Descriptor
// for the caller; in local mode it is fed to Compute.
package query
