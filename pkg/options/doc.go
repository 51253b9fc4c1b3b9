// Package options resolves the choice list of select fields. Static options
// are returned as declared; remote bindings are fetched from a listing
// endpoint filtered by the current values of the fields they depend on, and
// cached by endpoint plus those values.
package options
