// Package form implements the create/edit form instance of a grid screen.
//
// An Engine holds the editable values of one record, resolves the options of
// choice fields through an OptionResolver, validates visible fields against
// their declared rules and produces the merged record handed to a save
// callback. Instances move through clean, dirty, submitting and then closed,
// invalid or failed; edits are rejected while a submission is in flight.
package form
