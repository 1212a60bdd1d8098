// Package console fans console text out across multiple byte sinks and
// reads operator input with sink-order priority.
//
// Sink 0 is the primary console (stdio on a host build); it is always
// enabled and always accepts writes. Secondary sinks are enabled and
// disabled at runtime and written best-effort: when a secondary sink's
// outbound buffer is full, bytes are silently dropped for that sink rather
// than blocking the node.
package console
