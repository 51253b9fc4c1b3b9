// Package crud wires a screen configuration to its query controller, its row
// snapshot and the create, edit and delete flows.
//
// The orchestrator never inserts or patches rows itself. After a successful
// write it signals success and asks the caller to refetch: server mode
// re-emits the current query descriptor, local mode calls Refetch.
package crud
