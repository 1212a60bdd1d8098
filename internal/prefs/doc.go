// Package prefs persists the node preferences as a single fixed-size binary
// record: radio tuning, node name and position, channel slots, and console
// sink flags.
//
// Loading is forgiving by design: a missing or truncated file silently
// falls back to compiled-in defaults. Saving rewrites the whole record.
// The layout carries no schema version tag; a field-width or ordering
// change silently corrupts previously stored state on load. That risk is
// inherited from the record format and deliberately not remediated here.
package prefs
